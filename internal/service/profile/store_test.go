package profile

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halwest-tech/kurdish-chat/backend/internal/model/profile"
)

func sampleProfile() profile.Profile {
	return profile.Profile{
		Name:      "Shene",
		Email:     "shene@example.krd",
		CreatedAt: "2024-03-21T10:00:00Z",
		Language:  "ku",
		Theme:     "light",
	}
}

func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "missing-user")
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, store.Write(ctx, "", sampleProfile()), ErrUserIDMissing)

	require.NoError(t, store.Write(ctx, "uid-1", sampleProfile()))
	got, err := store.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.Equal(t, "uid-1", got.UserID)
	require.Equal(t, "Shene", got.Name)
	require.Equal(t, "ku", got.Language)

	updated := sampleProfile()
	updated.Theme = "dark"
	require.NoError(t, store.Write(ctx, "uid-1", updated))
	got, err = store.Get(ctx, "uid-1")
	require.NoError(t, err)
	require.Equal(t, "dark", got.Theme)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set, skipping mongo integration test")
	}

	store, err := ConnectMongo(context.Background(), uri, "kurdishChatTest")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.collection.Drop(context.Background())
		_ = store.Close(context.Background())
	})

	exerciseStore(t, store)
}

func TestSQLStore(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set, skipping mysql integration test")
	}

	store, err := OpenMySQL(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.db.Migrator().DropTable(&profile.Profile{})
		_ = store.Close()
	})

	exerciseStore(t, store)
}
