//go:build integration

package chats

import (
	"testing"

	"codeberg.org/luchgpt/server/internal/storage/storagetest"
)

func TestPostgresStore(t *testing.T) {
	runStoreContract(t, func(t *testing.T) (Store, func() int64) {
		pool := storagetest.NewPool(t)

		return NewRepository(pool), func() int64 {
			return storagetest.CreateUser(t, pool)
		}
	})
}
