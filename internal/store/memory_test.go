package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hychen958/Water-trekkie-gov/internal/game"
	"github.com/hychen958/Water-trekkie-gov/internal/store"
	"github.com/hychen958/Water-trekkie-gov/internal/store/storetest"
)

func TestMemoryStore_Contract(t *testing.T) {
	storetest.Run(t, store.NewMemoryStore())
}

func TestMemoryStoreRequiresOwner(t *testing.T) {
	err := store.NewMemoryStore().Save(context.Background(), "", &game.State{})
	assert.Error(t, err)
}
