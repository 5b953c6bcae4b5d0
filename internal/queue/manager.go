package queue

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"lectern/internal/logging"
	"lectern/internal/parse"
	"lectern/internal/services"
)

// Manager owns the session's queue items. All mutation goes through its
// methods so the queue/unresolved invariants hold.
type Manager struct {
	mu sync.Mutex

	logger *slog.Logger

	items      map[string]*Item
	order      []string
	unresolved map[string]*Item
	unresOrder []string

	globalPause bool
	// Item ids the global toggle paused, so disabling it leaves
	// individually paused items alone.
	globalPaused map[string]struct{}
}

// NewManager constructs an empty queue manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:       logging.NewComponentLogger(logger, "queue"),
		items:        make(map[string]*Item),
		unresolved:   make(map[string]*Item),
		globalPaused: make(map[string]struct{}),
	}
}

// NewItem builds a queue item for a file. The caller fills Meta before
// handing the item to Enqueue or HoldUnresolved.
func NewItem(file FileRef, filename string, parsed parse.Parsed, meta Metadata) *Item {
	now := time.Now().UTC()
	return &Item{
		ID:         uuid.NewString(),
		File:       file,
		Filename:   filename,
		Parsed:     parsed,
		Status:     StatusPending,
		TotalBytes: file.SizeBytes,
		Meta:       meta,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Enqueue adds a resolved item to the main queue as pending.
func (m *Manager) Enqueue(item *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item.Status = StatusPending
	item.Meta.NeedsManualSelection = false
	item.UpdatedAt = time.Now().UTC()
	m.items[item.ID] = item
	m.order = append(m.order, item.ID)
	m.sortLocked()
}

// HoldUnresolved places an item in the unresolved bucket. It will not be
// scheduled until resolved manually or through a later matcher hit.
func (m *Manager) HoldUnresolved(item *Item) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item.Status = StatusPending
	item.Meta.NeedsManualSelection = true
	item.UpdatedAt = time.Now().UTC()
	m.unresolved[item.ID] = item
	m.unresOrder = append(m.unresOrder, item.ID)
}

// Get returns a copy of an item from either collection.
func (m *Manager) Get(id string) (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		return item.clone(), true
	}
	if item, ok := m.unresolved[id]; ok {
		return item.clone(), true
	}
	return Item{}, false
}

// Items returns copies of the main-queue items in display order.
func (m *Manager) Items() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Item, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id].clone())
	}
	return out
}

// UnresolvedItems returns copies of the items awaiting manual selection.
func (m *Manager) UnresolvedItems() []Item {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Item, 0, len(m.unresOrder))
	for _, id := range m.unresOrder {
		out = append(out, m.unresolved[id].clone())
	}
	return out
}

// ResolveManually moves an unresolved item into the main queue with the
// chosen library at confidence 100. Returns ErrAlreadyResolved when the
// item already left the bucket and ErrNotFound for unknown ids.
func (m *Manager) ResolveManually(id, libraryID, libraryName string) (Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.unresolved[id]
	if !ok {
		if _, resolved := m.items[id]; resolved {
			return Item{}, ErrAlreadyResolved
		}
		return Item{}, ErrNotFound
	}

	delete(m.unresolved, id)
	m.unresOrder = removeID(m.unresOrder, id)

	item.Meta.LibraryID = libraryID
	item.Meta.LibraryName = libraryName
	item.Meta.Confidence = 100
	item.Meta.NeedsManualSelection = false
	item.Status = StatusPending
	item.UpdatedAt = time.Now().UTC()

	m.items[id] = item
	m.order = append(m.order, id)
	m.sortLocked()

	m.logger.Info("item resolved manually",
		logging.String(logging.FieldItemID, id),
		logging.String(logging.FieldFilename, item.Filename),
		logging.String(logging.FieldLibrary, libraryName))

	return item.clone(), nil
}

// NextPending returns the first schedulable item in display order.
func (m *Manager) NextPending() (Item, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.globalPause {
		return Item{}, false
	}
	for _, id := range m.order {
		item := m.items[id]
		if item.Status == StatusPending && !item.IsPaused {
			return item.clone(), true
		}
	}
	return Item{}, false
}

// MarkProcessing transitions a pending item to processing and installs the
// attempt's abort handle.
func (m *Manager) MarkProcessing(id string, abort context.CancelCauseFunc) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if item.Status != StatusPending {
		return ErrInvalidTransition
	}
	item.Status = StatusProcessing
	item.ErrorMessage = ""
	item.IsPaused = false
	item.abort = abort
	item.UpdatedAt = time.Now().UTC()
	return nil
}

// MarkCompleted finalizes a successful transfer.
func (m *Manager) MarkCompleted(id string) {
	m.setTerminal(id, StatusCompleted, "")
}

// MarkError records a failed attempt. Error is terminal per attempt; only
// re-enqueueing by the orchestrator retries it.
func (m *Manager) MarkError(id, message string) {
	m.setTerminal(id, StatusError, message)
}

func (m *Manager) setTerminal(id string, status Status, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return
	}
	item.Status = status
	item.ErrorMessage = message
	item.abort = nil
	if status == StatusCompleted {
		item.Progress = 100
		item.EstimatedSecondsRemaining = 0
	}
	item.UpdatedAt = time.Now().UTC()
}

// MarkPaused parks an item after its transfer attempt was aborted by a
// user pause. UploadedBytes are preserved for display continuity.
func (m *Manager) MarkPaused(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return
	}
	item.Status = StatusPaused
	item.IsPaused = true
	item.abort = nil
	item.UpdatedAt = time.Now().UTC()
}

// Pause aborts an in-flight transfer (or parks a pending item). Bytes
// transferred so far stay on the item.
func (m *Manager) Pause(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	switch item.Status {
	case StatusPending:
		item.Status = StatusPaused
		item.IsPaused = true
	case StatusProcessing:
		if item.abort != nil {
			item.abort(services.ErrUserPause)
			item.abort = nil
		}
		item.Status = StatusPaused
		item.IsPaused = true
	case StatusPaused:
		// An explicit pause on a globally paused item makes the pause
		// stick once the global toggle is lifted.
		delete(m.globalPaused, id)
		return nil
	default:
		return ErrInvalidTransition
	}
	delete(m.globalPaused, id)
	item.UpdatedAt = time.Now().UTC()
	return nil
}

// ReEnqueue puts an errored item back in the pending pool for another
// attempt. The previous error message is kept until the attempt starts.
func (m *Manager) ReEnqueue(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if item.Status != StatusError {
		return ErrInvalidTransition
	}
	item.Status = StatusPending
	item.Progress = 0
	item.UploadedBytes = 0
	item.UpdatedAt = time.Now().UTC()
	return nil
}

// Resume re-enters a paused item into the pending pool. A fresh abort
// handle is installed when the next attempt starts.
func (m *Manager) Resume(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if item.Status != StatusPaused {
		return ErrInvalidTransition
	}
	item.Status = StatusPending
	item.IsPaused = false
	item.abort = nil
	item.UpdatedAt = time.Now().UTC()
	delete(m.globalPaused, id)
	return nil
}

// Cancel aborts any in-flight transfer and removes the item from both
// collections. The returned flag reports whether a transfer was in flight,
// in which case partial remote data may need manual cleanup.
func (m *Manager) Cancel(id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		wasProcessing := item.Status == StatusProcessing
		if item.abort != nil {
			item.abort(services.ErrUserCancel)
			item.abort = nil
		}
		item.Status = StatusCancelled
		delete(m.items, id)
		delete(m.globalPaused, id)
		m.order = removeID(m.order, id)
		return wasProcessing, nil
	}
	if _, ok := m.unresolved[id]; ok {
		delete(m.unresolved, id)
		m.unresOrder = removeID(m.unresOrder, id)
		return false, nil
	}
	return false, ErrNotFound
}

// ToggleGlobalPause flips the coarse pause switch. Enabling aborts every
// processing item into paused. Disabling restores the items the toggle
// paused; items paused individually stay paused until resumed.
func (m *Manager) ToggleGlobalPause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.globalPause = !m.globalPause
	if m.globalPause {
		for id, item := range m.items {
			if item.Status != StatusProcessing {
				continue
			}
			if item.abort != nil {
				item.abort(services.ErrUserPause)
				item.abort = nil
			}
			item.Status = StatusPaused
			item.IsPaused = true
			item.UpdatedAt = time.Now().UTC()
			m.globalPaused[id] = struct{}{}
		}
	} else {
		for id := range m.globalPaused {
			item, ok := m.items[id]
			if ok && item.Status == StatusPaused {
				item.Status = StatusPending
				item.IsPaused = false
				item.UpdatedAt = time.Now().UTC()
			}
		}
		m.globalPaused = make(map[string]struct{})
	}
	return m.globalPause
}

// GlobalPause reports the coarse pause switch.
func (m *Manager) GlobalPause() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.globalPause
}

// UpdateProgress records transfer progress for an in-flight item.
func (m *Manager) UpdateProgress(id string, uploaded, total int64, percent, speed, eta float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[id]
	if !ok {
		return
	}
	item.UploadedBytes = uploaded
	if total > 0 {
		item.TotalBytes = total
	}
	item.Progress = percent
	item.UploadSpeedBytesPerSec = speed
	item.EstimatedSecondsRemaining = eta
	item.UpdatedAt = time.Now().UTC()
}

// SetDuration caches the probed video duration on an item.
func (m *Manager) SetDuration(id string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if item, ok := m.items[id]; ok {
		item.Meta.VideoDurationSeconds = seconds
		return
	}
	if item, ok := m.unresolved[id]; ok {
		item.Meta.VideoDurationSeconds = seconds
	}
}

// Counts aggregates the session's queue state.
func (m *Manager) Counts() Counts {
	m.mu.Lock()
	defer m.mu.Unlock()

	var counts Counts
	for _, item := range m.items {
		switch item.Status {
		case StatusPending:
			counts.Pending++
		case StatusProcessing:
			counts.Processing++
		case StatusPaused:
			counts.Paused++
		case StatusCompleted:
			counts.Completed++
		case StatusError:
			counts.Error++
		case StatusCancelled:
			counts.Cancelled++
		}
	}
	counts.Unresolved = len(m.unresolved)
	return counts
}

// Clear aborts all in-flight work and empties both collections.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range m.items {
		if item.abort != nil {
			item.abort(services.ErrUserCancel)
			item.abort = nil
		}
	}
	m.items = make(map[string]*Item)
	m.order = nil
	m.unresolved = make(map[string]*Item)
	m.unresOrder = nil
	m.globalPause = false
	m.globalPaused = make(map[string]struct{})
}

// sortLocked orders the queue by grouping base name, then by question
// number, keeping numbered question sequences contiguous.
func (m *Manager) sortLocked() {
	sort.SliceStable(m.order, func(a, b int) bool {
		itemA, itemB := m.items[m.order[a]], m.items[m.order[b]]
		baseA, numA := itemA.SortKey()
		baseB, numB := itemB.SortKey()
		if baseA != baseB {
			return baseA < baseB
		}
		return numA < numB
	})
}

func removeID(ids []string, target string) []string {
	for i, id := range ids {
		if id == target {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
