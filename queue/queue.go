// Package queue runs lead analyses in the background and mirrors its
// progress into the state tree. Items flow pending, running, then done or
// failed; after every transition the full item list is written to
// queue.items and a computed queue.summary keeps per-status counts
// current for anything watching the tree.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hammywammy/oslira-core/api"
	"github.com/hammywammy/oslira-core/observability"
	"github.com/hammywammy/oslira-core/state"
)

// State paths the queue maintains.
const (
	PathItems   = "queue.items"
	PathSummary = "queue.summary"
)

// Status of a queued analysis.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Item is a single lead analysis tracked by the queue.
type Item struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Type     string  `json:"type"`
	Status   Status  `json:"status"`
	Score    float64 `json:"score,omitempty"`
	Summary  string  `json:"summary,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Analyzer submits a lead for analysis. *api.Client satisfies this.
type Analyzer interface {
	AnalyzeLead(ctx context.Context, username, analysisType string) (*api.LeadAnalysis, error)
}

// Queue dispatches queued analyses to a fixed pool of workers.
type Queue struct {
	analyzer    Analyzer
	state       *state.Manager
	concurrency int
	observer    observability.Observer

	mu    sync.Mutex
	items []*Item

	work   chan string
	cancel context.CancelFunc
	wg     sync.WaitGroup
	idle   sync.WaitGroup
}

// Option customizes Queue construction.
type Option func(*Queue)

// WithConcurrency sets the number of workers. Values below one fall back
// to a single worker.
func WithConcurrency(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.concurrency = n
		}
	}
}

// WithObserver attaches an observer for queue lifecycle events.
func WithObserver(obs observability.Observer) Option {
	return func(q *Queue) { q.observer = obs }
}

// New creates a Queue over the given analyzer and state manager. Workers
// do not start until Init.
func New(analyzer Analyzer, st *state.Manager, opts ...Option) *Queue {
	q := &Queue{
		analyzer:    analyzer,
		state:       st,
		concurrency: 1,
		work:        make(chan string, 64),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.observer = observability.Normalize(q.observer)
	return q
}

// Init registers the computed summary, publishes the empty item list and
// starts the worker pool. The workers live until Cleanup; the passed
// context only covers initialization itself.
func (q *Queue) Init(_ context.Context) error {
	if err := q.state.Computed(PathSummary, q.summarize, PathItems); err != nil {
		return err
	}
	q.publish()

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	for i := 0; i < q.concurrency; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}

	q.emit(EventStarted, observability.LevelInfo, map[string]any{
		"workers": q.concurrency,
	})
	return nil
}

// Cleanup stops accepting work and waits for in-flight analyses to finish.
func (q *Queue) Cleanup(_ context.Context) error {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
	q.emit(EventStopped, observability.LevelInfo, nil)
	return nil
}

// Enqueue adds a lead analysis and returns its item ID. The item becomes
// visible at queue.items immediately with status pending.
func (q *Queue) Enqueue(username, analysisType string) (string, error) {
	item := &Item{
		ID:       uuid.NewString(),
		Username: username,
		Type:     analysisType,
		Status:   StatusPending,
	}

	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
	q.publish()

	q.idle.Add(1)
	select {
	case q.work <- item.ID:
	default:
		q.idle.Done()
		q.fail(item.ID, ErrQueueFull.Error())
		return "", ErrQueueFull
	}

	q.emit(EventEnqueued, observability.LevelDebug, map[string]any{
		"id":       item.ID,
		"username": username,
		"type":     analysisType,
	})
	return item.ID, nil
}

// Items returns a copy of the current item list in enqueue order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.snapshotLocked()
}

// Item returns the item with the given ID.
func (q *Queue) Item(id string) (Item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, item := range q.items {
		if item.ID == id {
			return *item, true
		}
	}
	return Item{}, false
}

// Drain blocks until every enqueued item has reached a terminal status or
// the context is cancelled.
func (q *Queue) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.idle.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-q.work:
			q.run(ctx, id)
			q.idle.Done()
		}
	}
}

func (q *Queue) run(ctx context.Context, id string) {
	item, ok := q.transition(id, StatusRunning, nil)
	if !ok {
		return
	}

	analysis, err := q.analyzer.AnalyzeLead(ctx, item.Username, item.Type)
	if err != nil {
		q.fail(id, err.Error())
		return
	}

	q.transition(id, StatusDone, analysis)
	q.emit(EventCompleted, observability.LevelDebug, map[string]any{
		"id":    id,
		"score": analysis.Score,
	})
}

func (q *Queue) fail(id, reason string) {
	q.mu.Lock()
	for _, item := range q.items {
		if item.ID == id {
			item.Status = StatusFailed
			item.Error = reason
			break
		}
	}
	q.mu.Unlock()
	q.publish()

	q.emit(EventFailed, observability.LevelWarn, map[string]any{
		"id":    id,
		"error": reason,
	})
}

func (q *Queue) transition(id string, status Status, analysis *api.LeadAnalysis) (Item, bool) {
	q.mu.Lock()
	var found *Item
	for _, item := range q.items {
		if item.ID == id {
			found = item
			break
		}
	}
	if found == nil {
		q.mu.Unlock()
		return Item{}, false
	}
	found.Status = status
	if analysis != nil {
		found.Score = analysis.Score
		found.Summary = analysis.Summary
	}
	snapshot := *found
	q.mu.Unlock()
	q.publish()
	return snapshot, true
}

// publish writes the current item list to queue.items, which in turn
// recomputes queue.summary.
func (q *Queue) publish() {
	q.mu.Lock()
	items := q.snapshotLocked()
	q.mu.Unlock()
	q.state.Set(PathItems, items)
}

func (q *Queue) snapshotLocked() []Item {
	items := make([]Item, len(q.items))
	for i, item := range q.items {
		items[i] = *item
	}
	return items
}

// Summary holds per-status counts derived from the item list.
type Summary struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Running int `json:"running"`
	Done    int `json:"done"`
	Failed  int `json:"failed"`
}

func (q *Queue) summarize() any {
	items, _ := q.state.Get(PathItems).([]Item)
	s := Summary{Total: len(items)}
	for _, item := range items {
		switch item.Status {
		case StatusPending:
			s.Pending++
		case StatusRunning:
			s.Running++
		case StatusDone:
			s.Done++
		case StatusFailed:
			s.Failed++
		}
	}
	return s
}

func (q *Queue) emit(t observability.EventType, level observability.Level, data map[string]any) {
	q.observer.OnEvent(context.Background(), observability.Event{
		Type:   t,
		Level:  level,
		Time:   time.Now(),
		Source: "queue",
		Data:   data,
	})
}
