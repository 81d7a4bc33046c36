package policies_test

import (
	"context"
	"testing"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/database"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/modules/currency"
	"github.com/mosaic-erp/reinsurance/internal/modules/policies"
	testutil "github.com/mosaic-erp/reinsurance/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteRepo(t *testing.T) *policies.SQLiteRepository {
	db, cleanup := testutil.NewTestDB(t, database.NamePortfolio)
	t.Cleanup(cleanup)
	return policies.NewSQLiteRepository(db.Conn(), zerolog.Nop())
}

func TestSQLiteRepository_RoundTripsFullRecord(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	activated := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	p := policies.Policy{
		ID:             "p-1",
		Reference:      "DIR-2026-001",
		Channel:        domain.ChannelDirect,
		Status:         policies.StatusActive,
		ActivationDate: &activated,
		Currency:       "EUR",
		ExchangeRate:   13500,
		GrossPremium:   1000,
		SumInsured:     currency.NewAmountPair(currency.SideWritten, 50000, 13500),
		Reinsurers:     domain.Panel{{ID: "r1", Name: "Lead Re", SharePct: 40, CommissionPct: 10}},
		Installments:   policies.Installments{{ID: "i1", DueDate: activated, DueAmount: 500}},
	}
	p.Recompute()

	saved, err := repo.SavePolicy(ctx, p)
	require.NoError(t, err)
	assert.False(t, saved.CreatedAt.IsZero())

	got, err := repo.GetPolicy(ctx, "p-1")
	require.NoError(t, err)

	assert.Equal(t, policies.StatusActive, got.Status)
	assert.True(t, got.ActivationDate.Equal(activated))
	assert.InDelta(t, 675000000, got.SumInsured.National, 1e-6)
	require.Len(t, got.Reinsurers, 1)
	assert.Equal(t, "Lead Re", got.Reinsurers[0].Name)
	assert.InDelta(t, 400, got.CededPremiumForeign, 1e-9)
	require.Len(t, got.Installments, 1)
	assert.Equal(t, "i1", got.Installments[0].ID)
}

func TestSQLiteRepository_SoftDeleteAndFilter(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	for _, p := range []policies.Policy{
		{ID: "a", Channel: domain.ChannelDirect, Status: policies.StatusPending},
		{ID: "b", Channel: domain.ChannelInward, Status: policies.StatusActive},
		{ID: "c", Channel: domain.ChannelInward, Status: policies.StatusPending},
	} {
		_, err := repo.SavePolicy(ctx, p)
		require.NoError(t, err)
	}

	require.NoError(t, repo.DeletePolicy(ctx, "c"))

	all, err := repo.ListPolicies(ctx, policies.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	inward, err := repo.ListPolicies(ctx, policies.ListFilter{Channel: domain.ChannelInward, IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, inward, 2)

	pending, err := repo.ListPolicies(ctx, policies.ListFilter{Status: policies.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "a", pending[0].ID)

	require.NoError(t, repo.RestorePolicy(ctx, "c"))
	got, err := repo.GetPolicy(ctx, "c")
	require.NoError(t, err)
	assert.False(t, got.Deleted)
}

func TestSQLiteRepository_NotFound(t *testing.T) {
	repo := newSQLiteRepo(t)

	_, err := repo.GetPolicy(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = repo.DeletePolicy(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
