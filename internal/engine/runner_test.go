package engine

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"imbridge/internal/classify"
)

func idOfInt(i int) string { return strconv.Itoa(i) }

func TestRunSettlesEveryItem(t *testing.T) {
	sink := &memorySink{}
	r := NewRunner(2, time.Second, sink, zaptest.NewLogger(t))

	items := []int{1, 2, 3, 4, 5, 6}
	report := Run(context.Background(), r, "test", items, idOfInt, func(_ context.Context, i int) error {
		switch i {
		case 2:
			panic("boom")
		case 4:
			return errors.New("transient")
		case 5:
			return classify.ErrMalformed
		}
		return nil
	})

	require.Len(t, report.Outcomes, len(items))
	assert.Equal(t, StatusOK, report.Outcomes[0].Status)
	assert.Equal(t, StatusPanic, report.Outcomes[1].Status)
	assert.Equal(t, StatusOK, report.Outcomes[2].Status)
	assert.Equal(t, StatusFailed, report.Outcomes[3].Status)
	assert.Equal(t, StatusSkipped, report.Outcomes[4].Status)
	assert.Equal(t, StatusOK, report.Outcomes[5].Status)
	assert.Equal(t, "test", report.BatchKind)

	require.Len(t, sink.items, 2)
	statuses := []string{sink.items[0].Status, sink.items[1].Status}
	assert.ElementsMatch(t, []string{"panic", "failed"}, statuses)
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	r := NewRunner(3, 0, nil, zaptest.NewLogger(t))

	var running, peak atomic.Int32
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}
	Run(context.Background(), r, "test", items, idOfInt, func(_ context.Context, _ int) error {
		n := running.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Positive(t, peak.Load())
}

func TestRunAppliesItemTimeout(t *testing.T) {
	r := NewRunner(1, 20*time.Millisecond, nil, zaptest.NewLogger(t))

	report := Run(context.Background(), r, "test", []int{1}, idOfInt, func(ctx context.Context, _ int) error {
		<-ctx.Done()
		return ctx.Err()
	})

	require.Len(t, report.Outcomes, 1)
	assert.Equal(t, StatusFailed, report.Outcomes[0].Status)
	assert.ErrorIs(t, report.Outcomes[0].Err, context.DeadlineExceeded)
}

func TestRunEmptyBatch(t *testing.T) {
	r := NewRunner(1, 0, nil, zaptest.NewLogger(t))
	report := Run(context.Background(), r, "test", nil, idOfInt, func(context.Context, int) error {
		t.Fatal("task must not run")
		return nil
	})
	assert.Empty(t, report.Outcomes)
}
