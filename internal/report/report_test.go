package report

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	r := New("daily")
	assert.Len(t, r.ID, 26)
	assert.NoError(t, r.Err())

	r.Record(KindChannel, "C1", nil)
	r.Record(KindChannel, "C2", errors.New("disk full"))
	r.Skip(KindChannel, "C3", "no messages")

	other := New("daily")
	other.Record(KindChannel, "C4", nil)
	r.Merge(other)
	r.Merge(r)

	assert.Equal(t, 2, r.Count(StatusOK))
	assert.Equal(t, 1, r.Count(StatusFailed))
	assert.Equal(t, 1, r.Count(StatusSkipped))

	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel C2: disk full")
	assert.Contains(t, err.Error(), "1 of 4 units failed")

	assert.False(t, r.Finish().FinishedAt.IsZero())
}

func TestRunConcurrentRecord(t *testing.T) {
	r := New("poll")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Record(KindMessage, "m", nil)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Count(StatusOK))
}
