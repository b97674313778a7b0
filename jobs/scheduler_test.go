package jobs

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dosada05/roster-system/db"
	"github.com/Dosada05/roster-system/models"
)

type fakePool struct {
	state db.State
	err   error
	pings int
}

func (p *fakePool) Ping(context.Context) error {
	p.pings++
	return p.err
}

func (p *fakePool) State() db.State { return p.state }

type fakeReporter struct {
	refs []models.DanglingTeamRef
	err  error
}

func (r *fakeReporter) ReportDangling(context.Context) ([]models.DanglingTeamRef, error) {
	return r.refs, r.err
}

func newTestScheduler(t *testing.T, pool *fakePool, reporter *fakeReporter) (*Scheduler, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s, err := NewScheduler(pool, reporter, Intervals{HealthCheck: time.Hour, DriftReport: time.Hour}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })
	return s, &buf
}

func TestCheckPool_LogsTransitionsOnce(t *testing.T) {
	pool := &fakePool{state: db.StateUninitialized}
	s, buf := newTestScheduler(t, pool, &fakeReporter{})

	pool.state = db.StateReady
	s.CheckPool(context.Background())
	s.CheckPool(context.Background())

	assert.Equal(t, 2, pool.pings)
	assert.Equal(t, 1, bytes.Count(buf.Bytes(), []byte("database pool state changed")))
	assert.Contains(t, buf.String(), "to=READY")
}

func TestCheckPool_FailureIsWarning(t *testing.T) {
	pool := &fakePool{state: db.StateReady}
	s, buf := newTestScheduler(t, pool, &fakeReporter{})

	pool.state = db.StateFailed
	pool.err = db.ErrUnavailable
	s.CheckPool(context.Background())

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "to=FAILED")
}

func TestReportDrift(t *testing.T) {
	t.Run("logs dangling players", func(t *testing.T) {
		reporter := &fakeReporter{refs: []models.DanglingTeamRef{{PlayerID: "player_1", TeamID: "Los Halcones"}}}
		s, buf := newTestScheduler(t, &fakePool{}, reporter)

		s.ReportDrift(context.Background())

		assert.Contains(t, buf.String(), "players reference unknown teams")
		assert.Contains(t, buf.String(), "player_1")
	})

	t.Run("quiet when clean", func(t *testing.T) {
		s, buf := newTestScheduler(t, &fakePool{}, &fakeReporter{})

		s.ReportDrift(context.Background())

		assert.NotContains(t, buf.String(), "unknown teams")
	})

	t.Run("error is logged", func(t *testing.T) {
		s, buf := newTestScheduler(t, &fakePool{}, &fakeReporter{err: errors.New("boom")})

		s.ReportDrift(context.Background())

		assert.Contains(t, buf.String(), "drift report failed")
	})
}
