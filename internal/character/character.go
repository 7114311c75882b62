// internal/character/character.go
//
// Avatar roster for character selection.
// The chosen Appearance is carried through a session and persisted with the
// game state; nothing else in the game depends on which avatar was picked.

package character

import (
	"errors"
	"strings"
)

// ErrUnknownCharacter is returned when a selection does not match the roster.
var ErrUnknownCharacter = errors.New("unknown character")

// Appearance describes the avatar a player picked.
// The zero value means "nothing chosen".
type Appearance struct {
	ID     int    `json:"id"`
	Name   string `json:"name,omitempty"`
	ImgSrc string `json:"imgSrc,omitempty"`
}

// IsZero reports whether no appearance has been set.
func (a Appearance) IsZero() bool {
	return a.ID == 0 && a.Name == "" && a.ImgSrc == ""
}

// Default is used when the player skips character selection.
var Default = Appearance{ID: 0, Name: "Default", ImgSrc: "pics/char1.png"}

var roster = []Appearance{
	{ID: 1, Name: "Adam", ImgSrc: "/images/char1.jpg"},
	{ID: 2, Name: "Alex", ImgSrc: "/images/char2.jpg"},
	{ID: 3, Name: "Amelia", ImgSrc: "/images/char3.jpg"},
	{ID: 4, Name: "Bob", ImgSrc: "/images/char4.jpg"},
}

// Roster returns a copy of the selectable characters.
func Roster() []Appearance {
	return append([]Appearance(nil), roster...)
}

// Lookup finds a roster entry by id.
func Lookup(id int) (Appearance, error) {
	for _, a := range roster {
		if a.ID == id {
			return a, nil
		}
	}
	return Appearance{}, ErrUnknownCharacter
}

// Choose resolves a selection; id 0 picks Default.
func Choose(id int) (Appearance, error) {
	if id == 0 {
		return Default, nil
	}
	return Lookup(id)
}

// Validate checks an appearance received from a client snapshot.
// Empty appearances are valid (they are replaced at session start).
func Validate(a Appearance) error {
	if a.IsZero() {
		return nil
	}
	if strings.TrimSpace(a.Name) == "" {
		return errors.New("character name is required")
	}
	if len(a.Name) > 64 || len(a.ImgSrc) > 256 {
		return errors.New("character fields too long")
	}
	return nil
}
