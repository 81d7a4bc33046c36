package settings

import (
	"context"
	"testing"

	"github.com/mosaic-erp/reinsurance/internal/database"
	testutil "github.com/mosaic-erp/reinsurance/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepository_GetSetDelete(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, database.NameConfig)
	defer cleanup()
	repo := NewRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	v, err := repo.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, v)

	desc := "first"
	require.NoError(t, repo.Set(ctx, "a", "1.5", &desc))
	require.NoError(t, repo.Set(ctx, "a", "2", nil))
	require.NoError(t, repo.SetFloat(ctx, "b", 12))

	f, err := repo.GetFloat(ctx, "a", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, f)

	n, err := repo.GetInt(ctx, "b", 0)
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	all, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "2", "b": "12"}, all)

	require.NoError(t, repo.Delete(ctx, "a"))
	require.NoError(t, repo.Delete(ctx, "a"))
	f, err = repo.GetFloat(ctx, "a", 7)
	require.NoError(t, err)
	assert.Equal(t, 7.0, f)
}
