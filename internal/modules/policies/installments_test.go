package policies

import (
	"testing"
	"time"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestInstallments_AddKeepsDueDateOrder(t *testing.T) {
	var s Installments
	s, second, err := s.Add(day(20), 500)
	require.NoError(t, err)
	s, first, err := s.Add(day(5), 250)
	require.NoError(t, err)

	require.Len(t, s, 2)
	assert.Equal(t, first.ID, s[0].ID)
	assert.Equal(t, second.ID, s[1].ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestInstallments_MarkPaidAndOutstanding(t *testing.T) {
	s, a, _ := Installments(nil).Add(day(1), 1000)
	s, b, _ := s.Add(day(15), 1000)

	paid, err := s.MarkPaid(a.ID, day(3), 1000)
	require.NoError(t, err)
	paid, err = paid.MarkPaid(b.ID, day(16), 400)
	require.NoError(t, err)

	assert.InDelta(t, 600, paid.Outstanding(), 1e-9)
	assert.InDelta(t, 2000, s.Outstanding(), 1e-9, "original schedule untouched")

	overdue := paid.Overdue(day(20))
	require.Len(t, overdue, 1)
	assert.Equal(t, b.ID, overdue[0].ID)
}

func TestInstallments_Errors(t *testing.T) {
	s, it, _ := Installments(nil).Add(day(1), 100)

	_, err := s.MarkPaid("missing", day(2), 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.MarkPaid(it.ID, time.Time{}, 10)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = s.Add(time.Time{}, 10)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = s.Add(day(2), -1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = s.Remove("missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	left, err := s.Remove(it.ID)
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Len(t, s, 1)
}

func TestInstallment_OverpaymentIsNotNegative(t *testing.T) {
	it := Installment{DueAmount: 100, PaidAmount: 150}
	assert.Equal(t, 0.0, it.Outstanding())
}
