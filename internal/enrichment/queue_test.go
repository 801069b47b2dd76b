package enrichment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/lead-enricher/internal/entity"
)

type recordingEnricher struct {
	mu      sync.Mutex
	domains []string
	active  int
	maxSeen int
	err     error
	done    chan struct{}
}

func (r *recordingEnricher) EnrichCompany(_ context.Context, c *entity.Company) (*Result, error) {
	r.mu.Lock()
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.active--
	r.domains = append(r.domains, c.Domain)
	r.mu.Unlock()
	if r.done != nil {
		r.done <- struct{}{}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &Result{Company: c, Persisted: true}, nil
}

func TestQueue_ProcessesSequentially(t *testing.T) {
	rec := &recordingEnricher{done: make(chan struct{}, 3)}
	tracker := NewTracker()
	q := NewQueue(rec, tracker, 10)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)

	accepted := q.Submit(
		&entity.Company{ID: uuid.New(), Domain: "a.com"},
		&entity.Company{ID: uuid.New(), Domain: "b.com"},
		nil,
		&entity.Company{ID: uuid.New(), Domain: "c.com"},
	)
	assert.Equal(t, 3, accepted)

	for i := 0; i < 3; i++ {
		select {
		case <-rec.done:
		case <-time.After(2 * time.Second):
			t.Fatal("queue did not drain")
		}
	}

	cancel()
	q.Wait()
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"a.com", "b.com", "c.com"}, rec.domains)
	assert.Equal(t, 1, rec.maxSeen)
}

func TestQueue_FullDropsAndForgets(t *testing.T) {
	tracker := NewTracker()
	q := NewQueue(&recordingEnricher{}, tracker, 1)

	first := &entity.Company{ID: uuid.New(), Domain: "a.com"}
	second := &entity.Company{ID: uuid.New(), Domain: "b.com"}
	assert.Equal(t, 1, q.Submit(first, second))
	assert.Equal(t, 1, q.Pending())
	assert.True(t, tracker.IsAnalyzing(first.ID))
	assert.False(t, tracker.IsAnalyzing(second.ID))
}

func TestQueue_FailureClearsTracker(t *testing.T) {
	rec := &recordingEnricher{err: errors.New("boom"), done: make(chan struct{}, 1)}
	tracker := NewTracker()
	q := NewQueue(rec, tracker, 1)

	ctx, cancel := context.WithCancel(context.Background())
	q.Start(ctx)

	c := &entity.Company{ID: uuid.New(), Domain: "a.com"}
	require.Equal(t, 1, q.Submit(c))
	<-rec.done

	cancel()
	q.Wait()
	assert.False(t, tracker.IsAnalyzing(c.ID))
}
