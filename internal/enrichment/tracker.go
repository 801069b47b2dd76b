package enrichment

import (
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Stage is the position of a record in the enrichment pipeline.
type Stage string

const (
	StageCreated           Stage = "created"
	StageExtracting        Stage = "extracting"
	StageExtracted         Stage = "extracted"
	StageExtractionFailed  Stage = "extraction_failed"
	StageSummarizing       Stage = "summarizing"
	StageAnalyzingChannels Stage = "analyzing_channels"
	StageDetectingTech     Stage = "detecting_tech"
	StageMerging           Stage = "merging"
	StagePersisted         Stage = "persisted"
	StageFailed            Stage = "failed"
)

// Terminal reports whether the pipeline is done with the record.
func (s Stage) Terminal() bool {
	return s == StagePersisted || s == StageFailed
}

// Progress is the tracked state of one record.
type Progress struct {
	CompanyID uuid.UUID `json:"company_id"`
	Domain    string    `json:"domain"`
	Stage     Stage     `json:"stage"`

	// Branches lists the parallel analysis steps still running.
	Branches  []Stage   `json:"branches,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tracker records which companies are being analyzed and how far along they are.
// Entries are dropped when they reach a terminal stage.
type Tracker struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*Progress
	now     func() time.Time
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[uuid.UUID]*Progress), now: time.Now}
}

// Start registers id as created unless it is already tracked.
func (t *Tracker) Start(id uuid.UUID, domain string) {
	if t == nil || id == uuid.Nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entries[id]; ok {
		return
	}
	t.entries[id] = &Progress{CompanyID: id, Domain: domain, Stage: StageCreated, UpdatedAt: t.now()}
}

// Advance moves id to stage. Terminal stages remove the entry.
func (t *Tracker) Advance(id uuid.UUID, stage Stage) {
	if t == nil || id == uuid.Nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if stage.Terminal() {
		delete(t.entries, id)
		return
	}
	p, ok := t.entries[id]
	if !ok {
		p = &Progress{CompanyID: id}
		t.entries[id] = p
	}
	p.Stage = stage
	p.UpdatedAt = t.now()
}

// BranchStarted marks a parallel analysis step as running.
func (t *Tracker) BranchStarted(id uuid.UUID, branch Stage) {
	t.updateBranches(id, func(b []Stage) []Stage {
		if slices.Contains(b, branch) {
			return b
		}
		return append(b, branch)
	})
}

// BranchFinished marks a parallel analysis step as done.
func (t *Tracker) BranchFinished(id uuid.UUID, branch Stage) {
	t.updateBranches(id, func(b []Stage) []Stage {
		return slices.DeleteFunc(b, func(s Stage) bool { return s == branch })
	})
}

func (t *Tracker) updateBranches(id uuid.UUID, fn func([]Stage) []Stage) {
	if t == nil || id == uuid.Nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.entries[id]
	if !ok {
		return
	}
	p.Branches = fn(p.Branches)
	p.UpdatedAt = t.now()
}

// Forget drops id without recording a stage.
func (t *Tracker) Forget(id uuid.UUID) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

// IsAnalyzing reports whether id is tracked.
func (t *Tracker) IsAnalyzing(id uuid.UUID) bool {
	if t == nil {
		return false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[id]
	return ok
}

// Snapshot returns a copy of every tracked entry, oldest update first.
func (t *Tracker) Snapshot() []Progress {
	if t == nil {
		return []Progress{}
	}
	t.mu.RLock()
	out := make([]Progress, 0, len(t.entries))
	for _, p := range t.entries {
		cp := *p
		cp.Branches = slices.Clone(p.Branches)
		out = append(out, cp)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].Domain < out[j].Domain
		}
		return out[i].UpdatedAt.Before(out[j].UpdatedAt)
	})
	return out
}
