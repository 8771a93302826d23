// Package tracker owns the per-session list of uploaded files and drives
// their analysis against the classifier service. Each item moves strictly
// forward through its lifecycle; the only way back in is the user-initiated
// re-analyze.
package tracker

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/dermascan/internal/classifier"
)

// Status is an upload item's lifecycle state.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// terminal reports whether no request is in flight for the status.
func (s Status) terminal() bool {
	return s == StatusCompleted || s == StatusError
}

var (
	// ErrUnknownItem indicates the identifier matches no tracked item.
	ErrUnknownItem = errors.New("unknown upload item")
	// ErrNotCompleted indicates the operation needs a completed analysis.
	ErrNotCompleted = errors.New("item has no completed analysis")
	// ErrInFlight indicates a request is already running for the item.
	ErrInFlight = errors.New("analysis already in progress")
)

// genericFailure is shown when an analysis error carries no message.
const genericFailure = "Analysis failed"

// File is one dropped file handed to Add.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Item is the externally visible state of one tracked upload.
type Item struct {
	ID          string                 `json:"id"`
	Filename    string                 `json:"filename"`
	ContentType string                 `json:"content_type"`
	Size        int64                  `json:"size"`
	Progress    int                    `json:"progress"`
	Status      Status                 `json:"status"`
	Result      *classifier.Prediction `json:"result,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

type entry struct {
	Item
	data []byte
}

// Tracker holds one session's upload items. All exported methods are safe
// for concurrent use; any number of items may be in flight at once.
type Tracker struct {
	mu       sync.Mutex
	client   classifier.Client
	logger   *zap.Logger
	items    map[string]*entry
	order    []string
	selected string

	progressInterval time.Duration
}

const defaultProgressInterval = 300 * time.Millisecond

// New constructs a tracker backed by the given classifier client.
func New(client classifier.Client, logger *zap.Logger) *Tracker {
	return &Tracker{
		client:           client,
		logger:           logger.Named("tracker"),
		items:            make(map[string]*entry),
		progressInterval: defaultProgressInterval,
	}
}

// Add registers the accepted image files and starts one analysis request
// per item. Files without an image MIME type are skipped silently. The
// returned items are snapshots in their initial queued state.
func (t *Tracker) Add(files []File) []Item {
	var added []Item
	t.mu.Lock()
	for _, f := range files {
		if !strings.HasPrefix(strings.ToLower(f.ContentType), "image/") {
			continue
		}
		e := &entry{
			Item: Item{
				ID:          uuid.NewString(),
				Filename:    f.Name,
				ContentType: f.ContentType,
				Size:        int64(len(f.Data)),
				Status:      StatusQueued,
			},
			data: f.Data,
		}
		t.items[e.ID] = e
		t.order = append(t.order, e.ID)
		added = append(added, e.Item)
	}
	t.mu.Unlock()

	for _, item := range added {
		go t.run(item.ID, StatusUploading)
	}
	return added
}

// run performs one analysis request for the item and applies the outcome.
// The predict call deliberately uses a background context: there is no
// cancellation path, and a slow response lands whenever it resolves.
func (t *Tracker) run(id string, inFlight Status) {
	t.mu.Lock()
	e, ok := t.items[id]
	if !ok {
		t.mu.Unlock()
		return
	}
	e.Status = inFlight
	e.Error = ""
	e.Progress = 0
	filename := e.Filename
	data := e.data
	t.mu.Unlock()

	done := make(chan struct{})
	go t.advanceProgress(id, done)

	prediction, err := t.client.Predict(context.Background(), filename, data)
	close(done)
	t.apply(id, prediction, err)
}

// advanceProgress applies cosmetic randomized increments while the item's
// request is in flight. The value is an approximation, not a byte count; it
// stays below 100 until completion forces it there.
func (t *Tracker) advanceProgress(id string, done <-chan struct{}) {
	ticker := time.NewTicker(t.progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			t.mu.Lock()
			if e, ok := t.items[id]; ok && !e.Status.terminal() {
				e.Progress += 5 + rand.Intn(15)
				if e.Progress > 90 {
					e.Progress = 90
				}
			}
			t.mu.Unlock()
		}
	}
}

// apply records the outcome of a resolved request, matching by identifier.
// A response for an item the user already removed is dropped.
func (t *Tracker) apply(id string, prediction *classifier.Prediction, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.items[id]
	if !ok {
		t.logger.Debug("discarding response for removed item", zap.String("item_id", id))
		return
	}

	if err != nil {
		e.Status = StatusError
		e.Result = nil
		e.Error = err.Error()
		if e.Error == "" {
			e.Error = genericFailure
		}
		t.logger.Warn("analysis failed",
			zap.String("item_id", id),
			zap.String("filename", e.Filename),
			zap.Error(err))
		return
	}

	e.Status = StatusCompleted
	e.Result = prediction
	e.Error = ""
	e.Progress = 100
	t.logger.Info("analysis completed",
		zap.String("item_id", id),
		zap.String("prediction_id", prediction.PredictionID),
		zap.String("class", prediction.Result.ClassName))
}

// Snapshot returns the items in insertion order.
func (t *Tracker) Snapshot() []Item {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Item, 0, len(t.order))
	for _, id := range t.order {
		if e, ok := t.items[id]; ok {
			out = append(out, e.Item)
		}
	}
	return out
}

// Selected returns the identifier of the selected item, or "".
func (t *Tracker) Selected() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.selected
}

// Select marks a completed item as current and returns its prediction so
// the caller can hand it to the results page.
func (t *Tracker) Select(id string) (*classifier.Prediction, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.items[id]
	if !ok {
		return nil, ErrUnknownItem
	}
	if e.Status != StatusCompleted || e.Result == nil {
		return nil, ErrNotCompleted
	}
	t.selected = id
	return e.Result, nil
}

// Remove discards an item and its retained bytes. Removing the selected
// item clears the selection; removing anything else leaves it alone. There
// is no server-side effect, and an in-flight response for the removed item
// becomes a no-op.
func (t *Tracker) Remove(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.items[id]; !ok {
		return false
	}
	delete(t.items, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	if t.selected == id {
		t.selected = ""
	}
	return true
}

// Reanalyze resubmits a settled item's retained bytes. It is the only
// user-initiated recovery path.
func (t *Tracker) Reanalyze(id string) error {
	t.mu.Lock()
	e, ok := t.items[id]
	if !ok {
		t.mu.Unlock()
		return ErrUnknownItem
	}
	if !e.Status.terminal() {
		t.mu.Unlock()
		return ErrInFlight
	}
	e.Status = StatusAnalyzing
	e.Error = ""
	e.Progress = 0
	t.mu.Unlock()

	go t.run(id, StatusAnalyzing)
	return nil
}

// Registry hands out one tracker per browser session.
type Registry struct {
	mu       sync.Mutex
	client   classifier.Client
	logger   *zap.Logger
	trackers map[string]*Tracker
}

// NewRegistry constructs an empty registry.
func NewRegistry(client classifier.Client, logger *zap.Logger) *Registry {
	return &Registry{
		client:   client,
		logger:   logger,
		trackers: make(map[string]*Tracker),
	}
}

// ForSession returns the session's tracker, creating it on first use.
func (r *Registry) ForSession(sessionID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[sessionID]
	if !ok {
		t = New(r.client, r.logger)
		r.trackers[sessionID] = t
	}
	return t
}
