package delivery

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dailyq/dailyq/internal/store"
)

const day = "2025-01-01"

// recordingStore logs the order of store calls.
type recordingStore struct {
	store.QuestionStore
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingStore) log(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recordingStore) Reserve(_ context.Context, date string, count int, device string) ([]store.QuestionRecord, error) {
	r.log(fmt.Sprintf("reserve %s %s %d", date, device, count))
	return nil, r.err
}

func (r *recordingStore) Remaining(_ context.Context, date, device string) (int, error) {
	r.log("remaining " + date + " " + device)
	return 0, nil
}

func (r *recordingStore) ResetDeliveries(_ context.Context, date, device string) (int, error) {
	r.log("reset " + date + " " + device)
	return 0, nil
}

func openStore(t *testing.T, mode store.DeliveryMode) *store.SQLStore {
	t.Helper()
	s, err := store.Open(context.Background(), store.Options{
		Path:   filepath.Join(t.TempDir(), "questions.sqlite"),
		Mode:   mode,
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seed(t *testing.T, s store.QuestionStore, n int) {
	t.Helper()
	var recs []store.QuestionRecord
	base := time.Date(2025, 1, 1, 6, 0, 0, 0, time.UTC)
	for i := 1; i <= n; i++ {
		recs = append(recs, store.QuestionRecord{
			ID:           fmt.Sprintf("daily-%s-d2-%03d", day, i),
			QuestionDate: day,
			ZH:           fmt.Sprintf("第%d句", i),
			ReferenceEn:  fmt.Sprintf("sentence %d", i),
			Difficulty:   2,
			Tags:         []string{"travel", "food"},
			Hints: []store.Hint{
				{Category: "lexical", Text: "a"},
				{Category: "syntactic", Text: "b"},
			},
			Model:     "mock",
			CreatedAt: base.Add(time.Duration(i) * time.Microsecond),
		})
	}
	_, err := s.SaveMany(context.Background(), recs)
	require.NoError(t, err)
}

func TestReserve_BlankDevice(t *testing.T) {
	rs := &recordingStore{}
	c := NewCoordinator(rs, nil, zerolog.Nop())

	for _, dev := range []string{"", "   ", "\t"} {
		_, err := c.Reserve(context.Background(), dev, day, 3, false)
		var invalid *InvalidDeviceIDError
		require.ErrorAs(t, err, &invalid)
	}
	_, err := c.Remaining(context.Background(), day, " ")
	assert.Error(t, err)
	_, err = c.Reset(context.Background(), day, "")
	assert.Error(t, err)

	assert.Empty(t, rs.calls)
}

func TestReserve_BadDate(t *testing.T) {
	rs := &recordingStore{}
	c := NewCoordinator(rs, nil, zerolog.Nop())
	_, err := c.Reserve(context.Background(), "d1", "01/01/2025", 3, false)
	assert.Error(t, err)
	assert.Empty(t, rs.calls)
}

func TestReserve_CallOrder(t *testing.T) {
	rs := &recordingStore{}
	c := NewCoordinator(rs, nil, zerolog.Nop())

	res, err := c.Reserve(context.Background(), "  d1 ", day, 3, true)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"reset 2025-01-01 d1",
		"reserve 2025-01-01 d1 3",
		"remaining 2025-01-01 d1",
	}, rs.calls)
	assert.Equal(t, "d1", res.DeviceID)
	assert.Zero(t, res.Delivered)
	assert.NotNil(t, res.Questions)
}

func TestReserve_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("reserve: connection refused")
	rs := &recordingStore{err: boom}
	c := NewCoordinator(rs, nil, zerolog.Nop())

	_, err := c.Reserve(context.Background(), "d1", day, 1, false)
	assert.ErrorIs(t, err, boom)
}

// A device drains the day, then gets nothing.
func TestReserve_ExhaustsDevice(t *testing.T) {
	s := openStore(t, store.PerDevice)
	seed(t, s, 3)
	c := NewCoordinator(s, nil, zerolog.Nop())
	ctx := context.Background()

	res, err := c.Reserve(ctx, "d1", day, 5, false)
	require.NoError(t, err)
	assert.Equal(t, 5, res.Requested)
	assert.Equal(t, 3, res.Delivered)
	assert.Zero(t, res.Remaining)
	require.Len(t, res.Questions, 3)
	assert.Equal(t, "第1句", res.Questions[0].ZH)
	assert.Len(t, res.Questions[0].Hints, 2)

	res, err = c.Reserve(ctx, "d1", day, 5, false)
	require.NoError(t, err)
	assert.Zero(t, res.Delivered)
	assert.Zero(t, res.Remaining)
	assert.Empty(t, res.Questions)
}

func TestReserve_ForceResetRedelivers(t *testing.T) {
	s := openStore(t, store.PerDevice)
	seed(t, s, 2)
	c := NewCoordinator(s, nil, zerolog.Nop())
	ctx := context.Background()

	first, err := c.Reserve(ctx, "d1", day, 2, false)
	require.NoError(t, err)
	again, err := c.Reserve(ctx, "d1", day, 2, true)
	require.NoError(t, err)
	assert.Equal(t, first.Questions, again.Questions)
}

func TestRemainingAndReset(t *testing.T) {
	s := openStore(t, store.PerDevice)
	seed(t, s, 4)
	c := NewCoordinator(s, nil, zerolog.Nop())
	ctx := context.Background()

	_, err := c.Reserve(ctx, "d1", day, 3, false)
	require.NoError(t, err)

	left, err := c.Remaining(ctx, day, "d1")
	require.NoError(t, err)
	assert.Equal(t, 1, left)

	n, err := c.Reset(ctx, day, "d1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	left, err = c.Remaining(ctx, day, "d1")
	require.NoError(t, err)
	assert.Equal(t, 4, left)
}

// Two devices racing in exclusive mode never share a question.
func TestReserve_ExclusiveDevicesDisjoint(t *testing.T) {
	s := openStore(t, store.Exclusive)
	seed(t, s, 3)
	c := NewCoordinator(s, nil, zerolog.Nop())

	var (
		mu  sync.Mutex
		got = map[string][]string{}
	)
	g, ctx := errgroup.WithContext(context.Background())
	for _, dev := range []string{"d1", "d2"} {
		g.Go(func() error {
			res, err := c.Reserve(ctx, dev, day, 2, false)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for _, q := range res.Questions {
				got[q.ID] = append(got[q.ID], dev)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.LessOrEqual(t, len(got), 3)
	for id, devs := range got {
		assert.Len(t, devs, 1, "%s went to %v", id, devs)
	}
}

func TestReserve_ConcurrentSameDevice(t *testing.T) {
	s := openStore(t, store.PerDevice)
	seed(t, s, 5)
	c := NewCoordinator(s, nil, zerolog.Nop())

	var (
		mu    sync.Mutex
		seen  = map[string]int{}
		total int
	)
	g, ctx := errgroup.WithContext(context.Background())
	for range 10 {
		g.Go(func() error {
			res, err := c.Reserve(ctx, "d1", day, 1, false)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			total += res.Delivered
			for _, q := range res.Questions {
				seen[q.ID]++
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 5, total)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}
}
