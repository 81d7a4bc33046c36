package slips

import (
	"context"
	"testing"

	"github.com/mosaic-erp/reinsurance/internal/database"
	"github.com/mosaic-erp/reinsurance/internal/domain"
	testutil "github.com/mosaic-erp/reinsurance/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRepository(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, database.NamePortfolio)
	defer cleanup()
	repo := NewSQLiteRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	signed := clock
	s := Slip{
		ID:         "s1",
		SlipNumber: "SL-9",
		Status:     StatusSigned,
		SignedDate: &signed,
	}
	s.SetPanel(domain.Panel{{ID: "r1", Name: "Lead Re", SharePct: 100}})

	_, err := repo.SaveSlip(ctx, s)
	require.NoError(t, err)
	_, err = repo.SaveSlip(ctx, Slip{ID: "s2", Status: StatusDraft})
	require.NoError(t, err)

	got, err := repo.GetSlip(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Lead Re", got.BrokerReinsurer)
	require.NotNil(t, got.SignedDate)
	assert.True(t, got.SignedDate.Equal(signed))

	signedOnly, err := repo.ListSlips(ctx, ListFilter{Status: StatusSigned})
	require.NoError(t, err)
	require.Len(t, signedOnly, 1)

	require.NoError(t, repo.DeleteSlip(ctx, "s2"))
	visible, err := repo.ListSlips(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	_, err = repo.GetSlip(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDecodeSlip_NormalizesLegacyStatus(t *testing.T) {
	db, cleanup := testutil.NewTestDB(t, database.NamePortfolio)
	defer cleanup()
	repo := NewSQLiteRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	_, err := repo.SaveSlip(ctx, Slip{ID: "legacy", Status: Status("Active")})
	require.NoError(t, err)

	got, err := repo.GetSlip(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, StatusBound, got.Status)
}
