package enrichment

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/octobees/lead-enricher/internal/entity"
)

const defaultQueueSize = 100

// CompanyEnricher enriches an already registered company.
type CompanyEnricher interface {
	EnrichCompany(ctx context.Context, company *entity.Company) (*Result, error)
}

// Queue enriches registered companies one at a time in the background.
type Queue struct {
	enricher CompanyEnricher
	tracker  *Tracker
	jobs     chan *entity.Company
	wg       sync.WaitGroup
	once     sync.Once
}

// NewQueue builds a queue holding up to size pending companies.
func NewQueue(enricher CompanyEnricher, tracker *Tracker, size int) *Queue {
	if size <= 0 {
		size = defaultQueueSize
	}
	return &Queue{enricher: enricher, tracker: tracker, jobs: make(chan *entity.Company, size)}
}

// Start launches the worker. It stops when ctx is done.
func (q *Queue) Start(ctx context.Context) {
	q.once.Do(func() {
		q.wg.Add(1)
		go q.run(ctx)
	})
}

// Wait blocks until the worker has stopped.
func (q *Queue) Wait() {
	q.wg.Wait()
}

// Submit enqueues companies without blocking and returns how many were accepted.
// Companies that do not fit are dropped and logged.
func (q *Queue) Submit(companies ...*entity.Company) int {
	accepted := 0
	for _, c := range companies {
		if c == nil {
			continue
		}
		q.tracker.Start(c.ID, c.Domain)
		select {
		case q.jobs <- c:
			accepted++
		default:
			q.tracker.Forget(c.ID)
			zap.L().Warn("enrichment queue full, company dropped", zap.String("domain", c.Domain))
		}
	}
	return accepted
}

// Pending returns the number of companies waiting for the worker.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

func (q *Queue) run(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-q.jobs:
			q.process(ctx, c)
		}
	}
}

func (q *Queue) process(ctx context.Context, c *entity.Company) {
	log := zap.L().With(zap.String("domain", c.Domain), zap.String("company_id", c.ID.String()))
	defer func() {
		if r := recover(); r != nil {
			log.Error("enrichment panicked", zap.Any("panic", r))
			q.tracker.Advance(c.ID, StageFailed)
		}
	}()

	res, err := q.enricher.EnrichCompany(ctx, c)
	if err != nil {
		log.Warn("queued enrichment failed", zap.Error(err))
		q.tracker.Advance(c.ID, StageFailed)
		return
	}
	if !res.Persisted {
		log.Warn("queued enrichment not persisted", zap.String("error", res.PersistError))
	}
}
