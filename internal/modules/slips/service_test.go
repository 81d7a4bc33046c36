package slips

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/mosaic-erp/reinsurance/internal/domain"
	"github.com/mosaic-erp/reinsurance/internal/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *MemoryRepository, *[]*events.Event) {
	t.Helper()
	repo := NewMemoryRepository()
	bus := events.NewBus(zerolog.Nop())
	var got []*events.Event
	bus.Subscribe(events.SlipStatusChanged, func(e *events.Event) { got = append(got, e) })
	svc := NewService(repo, newTestMachine(), events.NewManager(bus, zerolog.Nop()), zerolog.Nop())
	return svc, repo, &got
}

func TestService_CreateStartsInDraft(t *testing.T) {
	svc, _, _ := newTestService(t)

	s, err := svc.Create(context.Background(), CreateInput{
		SlipNumber:       "SL-001",
		InsuredName:      "Tashkent Metro",
		Currency:         "eur",
		LimitOfLiability: 5000000,
		Reinsurers:       []domain.Reinsurer{{Name: "Lead Re", SharePct: 50}},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, s.Status)
	assert.Equal(t, domain.Currency("EUR"), s.Currency)
	assert.Equal(t, "Lead Re", s.BrokerReinsurer)
}

func TestService_TransitionPersistsAndEmits(t *testing.T) {
	svc, repo, got := newTestService(t)
	ctx := context.Background()
	s, err := svc.Create(ctx, CreateInput{SlipNumber: "SL-2"})
	require.NoError(t, err)

	s, err = svc.Transition(ctx, s.ID, Request{Action: ActionSubmitForReview})
	require.NoError(t, err)
	s, err = svc.Transition(ctx, s.ID, Request{Action: ActionDecline})
	assert.True(t, errors.Is(err, ErrPromptCancelled))
	assert.Equal(t, StatusPending, s.Status)

	reason := "No appetite"
	s, err = svc.Transition(ctx, s.ID, Request{Action: ActionDecline, Reason: &reason})
	require.NoError(t, err)
	assert.Equal(t, StatusDeclined, s.Status)

	stored, err := repo.GetSlip(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "No appetite", stored.DeclineReason)

	require.Len(t, *got, 2)
	last := (*got)[1]
	assert.Equal(t, "DECLINED", last.Data["to"])
	assert.Equal(t, FieldDeclinedDate, last.Data["stamped"])
}

func TestService_FailedSaveKeepsPreviousState(t *testing.T) {
	svc, repo, got := newTestService(t)
	ctx := context.Background()
	s, err := svc.Create(ctx, CreateInput{SlipNumber: "SL-3"})
	require.NoError(t, err)

	repo.FailNext = errors.New("locked")
	_, err = svc.Transition(ctx, s.ID, Request{Action: ActionSubmitForReview})
	assert.ErrorIs(t, err, domain.ErrPersistence)

	current, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, current.Status)
	assert.Empty(t, *got)
}

func TestService_PanelEditsKeepLeadInSync(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	s, err := svc.Create(ctx, CreateInput{SlipNumber: "SL-4"})
	require.NoError(t, err)

	s, err = svc.AddReinsurer(ctx, s.ID, domain.Reinsurer{Name: "Alpha Re", SharePct: 30})
	require.NoError(t, err)
	s, err = svc.AddReinsurer(ctx, s.ID, domain.Reinsurer{Name: "Beta Re", SharePct: 20})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Re", s.BrokerReinsurer)

	newName := "Alpha Reinsurance"
	s, err = svc.UpdateReinsurer(ctx, s.ID, s.Reinsurers[0].ID, domain.ReinsurerPatch{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Reinsurance", s.BrokerReinsurer)

	s, err = svc.RemoveReinsurer(ctx, s.ID, s.Reinsurers[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Beta Re", s.BrokerReinsurer)
}

func TestService_PanelEditsRejectInvalidShares(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{SlipNumber: "SL-BAD", Reinsurers: []domain.Reinsurer{{Name: "Neg Re", SharePct: -5}}})
	assert.ErrorIs(t, err, domain.ErrValidation)

	s, err := svc.Create(ctx, CreateInput{SlipNumber: "SL-5"})
	require.NoError(t, err)
	s, err = svc.AddReinsurer(ctx, s.ID, domain.Reinsurer{Name: "Alpha Re", SharePct: 40})
	require.NoError(t, err)

	_, err = svc.AddReinsurer(ctx, s.ID, domain.Reinsurer{Name: "Neg Re", SharePct: -10})
	assert.ErrorIs(t, err, domain.ErrValidation)

	nan := math.NaN()
	_, err = svc.UpdateReinsurer(ctx, s.ID, s.Reinsurers[0].ID, domain.ReinsurerPatch{CommissionPct: &nan})
	assert.ErrorIs(t, err, domain.ErrValidation)

	got, err := svc.Get(ctx, s.ID)
	require.NoError(t, err)
	require.Len(t, got.Reinsurers, 1)
	assert.Equal(t, 40.0, got.Reinsurers[0].SharePct)
	assert.Zero(t, got.Reinsurers[0].CommissionPct)
}

func TestService_DeleteRestoreAndDetails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	s, err := svc.Create(ctx, CreateInput{SlipNumber: "SL-5"})
	require.NoError(t, err)

	limit := 750000.0
	s, err = svc.UpdateDetails(ctx, s.ID, DetailsInput{LimitOfLiability: &limit})
	require.NoError(t, err)
	assert.Equal(t, 750000.0, s.LimitOfLiability)

	require.NoError(t, svc.Delete(ctx, s.ID))
	list, err := svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = svc.Transition(ctx, s.ID, Request{Action: ActionSubmitForReview})
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, svc.Restore(ctx, s.ID))
	list, err = svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
