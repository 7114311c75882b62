// Package assets bundles the files the server needs at runtime:
// the default appliance catalog and the SQLite schema migrations.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed appliances.yaml migrations/*.sql
var FS embed.FS

// Appliances returns the raw default catalog document.
func Appliances() ([]byte, error) {
	return FS.ReadFile("appliances.yaml")
}

// Migrations returns the migrations directory as its own filesystem root.
func Migrations() (fs.FS, error) {
	return fs.Sub(FS, "migrations")
}
