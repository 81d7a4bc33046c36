package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name  string
	err   error
	calls atomic.Int32
}

func (j *countingJob) Run() error {
	j.calls.Add(1)
	return j.err
}

func (j *countingJob) Name() string { return j.name }

func TestScheduler_AddJobAndRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	ok := &countingJob{name: "ok"}
	failing := &countingJob{name: "failing", err: errors.New("boom")}

	require.NoError(t, s.AddJob("0 0 3 * * *", ok))
	require.NoError(t, s.AddJob("@every 1h", failing))
	assert.Error(t, s.AddJob("@hourly", ok), "duplicate name")
	assert.Error(t, s.AddJob("not a schedule", &countingJob{name: "bad"}))

	require.NoError(t, s.RunNow("ok"))
	assert.EqualError(t, s.RunNow("failing"), "boom")
	assert.Error(t, s.RunNow("missing"))
	assert.Equal(t, int32(1), ok.calls.Load())

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "failing", jobs[0].Name)
	assert.Equal(t, "boom", jobs[0].LastError)
	assert.NotNil(t, jobs[0].LastRun)
	assert.Equal(t, "ok", jobs[1].Name)
	assert.Empty(t, jobs[1].LastError)
}

func TestScheduler_StartStop(t *testing.T) {
	s := New(zerolog.Nop())
	require.NoError(t, s.AddJob("@every 1h", &countingJob{name: "idle"}))
	s.Start()

	assert.Len(t, s.Jobs(), 1)
	s.Stop()
}

type fakeSyncer struct {
	got []string
	err error
}

func (f *fakeSyncer) SyncUSDRates(ctx context.Context, currencies []string) error {
	f.got = currencies
	return f.err
}

func TestSyncExchangeRatesJob(t *testing.T) {
	syncer := &fakeSyncer{}
	job := NewSyncExchangeRatesJob(syncer, []string{"EUR", "UZS"}, zerolog.Nop())

	assert.Equal(t, "sync_exchange_rates", job.Name())
	require.NoError(t, job.Run())
	assert.Equal(t, []string{"EUR", "UZS"}, syncer.got)

	syncer.err = errors.New("all rate fetches failed")
	assert.Error(t, job.Run())
}
