package daemon

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingSyncer struct {
	mu      sync.Mutex
	years   []int
	failFor map[int]error
	block   chan struct{}
	entered chan struct{}
}

func (s *recordingSyncer) Sync(ctx context.Context, year int) (int, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.years = append(s.years, year)
	if err := s.failFor[year]; err != nil {
		return 0, err
	}
	return 10 + year%10, nil
}

func (s *recordingSyncer) calls() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.years...)
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestRunOnce_SyncsCurrentAndNextYear(t *testing.T) {
	s := &recordingSyncer{}
	r := NewRefresher(s, time.Hour, zaptest.NewLogger(t))
	r.now = fixedNow

	require.NoError(t, r.RunOnce(context.Background()))
	assert.Equal(t, []int{2025, 2026}, s.calls())

	st := r.GetStatus()
	assert.False(t, st.Running)
	assert.Equal(t, map[int]int{2025: 15, 2026: 16}, st.Synced)
	assert.Empty(t, st.LastError)
	assert.Equal(t, fixedNow(), st.LastRunTime)
}

func TestRunOnce_PartialFailure(t *testing.T) {
	boom := errors.New("source down")
	s := &recordingSyncer{failFor: map[int]error{2026: boom}}
	r := NewRefresher(s, time.Hour, zaptest.NewLogger(t))
	r.now = fixedNow

	err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []int{2025, 2026}, s.calls(), "a failing year does not stop the others")

	st := r.GetStatus()
	assert.Equal(t, map[int]int{2025: 15}, st.Synced)
	assert.Contains(t, st.LastError, "year 2026")
}

func TestRunOnce_DoesNotOverlap(t *testing.T) {
	s := &recordingSyncer{block: make(chan struct{}), entered: make(chan struct{}, 2)}
	r := NewRefresher(s, time.Hour, zaptest.NewLogger(t))
	r.now = fixedNow

	done := make(chan error, 1)
	go func() {
		done <- r.RunOnce(context.Background())
	}()
	<-s.entered

	assert.True(t, r.GetStatus().Running)
	assert.ErrorIs(t, r.RunOnce(context.Background()), ErrAlreadyRunning)

	close(s.block)
	require.NoError(t, <-done)
	assert.Equal(t, []int{2025, 2026}, s.calls())
}

func TestRun_RefreshesImmediatelyAndStops(t *testing.T) {
	s := &recordingSyncer{}
	r := NewRefresher(s, time.Hour, zaptest.NewLogger(t))
	r.now = fixedNow

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- r.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(s.calls()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}

func TestRun_RejectsNonPositiveInterval(t *testing.T) {
	r := NewRefresher(&recordingSyncer{}, 0, zaptest.NewLogger(t))
	assert.Error(t, r.Run(context.Background()))
}
