//go:build integration
// +build integration

package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupBackend starts a PostgreSQL container and returns a connected client.
func setupBackend(t *testing.T) *Client {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("engsite"),
		postgres.WithUsername("engsite"),
		postgres.WithPassword("engsite"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	url, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	client, err := Connect(ctx, Config{URL: url, MaxConns: 4}, nil)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestTableCRUD(t *testing.T) {
	client := setupBackend(t)
	ctx := context.Background()
	require.NoError(t, client.EnsureSchema(ctx, "buttons"))

	tbl := client.Table("buttons")
	require.NoError(t, tbl.Insert(ctx, "b2", []byte(`{"id":"b2","section":"hero","order":10}`)))
	require.NoError(t, tbl.Upsert(ctx, "b1", []byte(`{"id":"b1","section":"hero","order":2}`)))
	require.NoError(t, tbl.Upsert(ctx, "b3", []byte(`{"id":"b3","section":"footer","order":1}`)))

	docs, err := tbl.Select(ctx, Eq("section", "hero"), OrderBy("order", false))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.JSONEq(t, `{"id":"b1","section":"hero","order":2}`, string(docs[0]))
	assert.JSONEq(t, `{"id":"b2","section":"hero","order":10}`, string(docs[1]))

	require.NoError(t, tbl.Update(ctx, "b3", []byte(`{"id":"b3","section":"hero","order":0}`)))
	docs, err = tbl.Select(ctx, Eq("section", "hero"), OrderBy("order", false), Limit(1))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.JSONEq(t, `{"id":"b3","section":"hero","order":0}`, string(docs[0]))

	require.NoError(t, tbl.Delete(ctx, "b3"))
	assert.ErrorIs(t, tbl.Delete(ctx, "b3"), ErrNotFound)
	assert.ErrorIs(t, tbl.Update(ctx, "missing", []byte(`{}`)), ErrNotFound)
}
