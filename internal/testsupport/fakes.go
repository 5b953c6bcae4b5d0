package testsupport

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"lectern/internal/catalog"
	"lectern/internal/sheetport"
	"lectern/internal/storage"
)

// FakeCatalog is an in-memory catalog.Service.
type FakeCatalog struct {
	mu          sync.Mutex
	Libraries   []catalog.Library
	Collections map[string][]catalog.Collection
	created     int
}

func NewFakeCatalog(libraries ...catalog.Library) *FakeCatalog {
	return &FakeCatalog{
		Libraries:   libraries,
		Collections: make(map[string][]catalog.Collection),
	}
}

func (f *FakeCatalog) ListLibraries(ctx context.Context) ([]catalog.Library, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Library(nil), f.Libraries...), nil
}

func (f *FakeCatalog) ListCollections(ctx context.Context, libraryID string) ([]catalog.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]catalog.Collection(nil), f.Collections[libraryID]...), nil
}

func (f *FakeCatalog) EnsureCollection(ctx context.Context, libraryID, name string) (catalog.Collection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, col := range f.Collections[libraryID] {
		if col.Name == name {
			return col, nil
		}
	}
	f.created++
	col := catalog.Collection{ID: fmt.Sprintf("col-%d", f.created), Name: name}
	f.Collections[libraryID] = append(f.Collections[libraryID], col)
	return col, nil
}

// CreatedCount reports how many collections EnsureCollection created.
func (f *FakeCatalog) CreatedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.created
}

// FakeUploader is an in-memory storage.Uploader. It emits progress in
// fixed steps and honors context cancellation between steps.
type FakeUploader struct {
	mu       sync.Mutex
	uploads  []storage.Request
	FailWith error
	// FailOn makes only the named file fail, with FailWith or a default
	// transport error.
	FailOn string
	Steps  int
	// Gate, when set, is closed by the test to let uploads proceed past
	// the first progress report.
	Gate chan struct{}
}

func NewFakeUploader() *FakeUploader {
	return &FakeUploader{Steps: 4}
}

func (f *FakeUploader) Upload(ctx context.Context, req storage.Request, onProgress func(storage.Progress)) (storage.Info, error) {
	steps := f.Steps
	if steps < 1 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return storage.Info{}, context.Cause(ctx)
		default:
		}
		if onProgress != nil {
			onProgress(storage.Progress{
				UploadedBytes: req.SizeBytes * int64(i) / int64(steps),
				TotalBytes:    req.SizeBytes,
			})
		}
		if i == 1 && f.Gate != nil {
			select {
			case <-f.Gate:
			case <-ctx.Done():
				return storage.Info{}, context.Cause(ctx)
			}
		}
	}
	if f.FailOn != "" && f.FailOn == req.Filename {
		err := f.FailWith
		if err == nil {
			err = errors.New("simulated transport failure")
		}
		return storage.Info{}, err
	}
	if f.FailOn == "" && f.FailWith != nil {
		return storage.Info{}, f.FailWith
	}

	f.mu.Lock()
	f.uploads = append(f.uploads, req)
	f.mu.Unlock()
	return storage.Info{RemoteID: req.LibraryID + "/" + req.Filename, SizeBytes: req.SizeBytes}, nil
}

// Uploads returns a copy of the completed requests.
func (f *FakeUploader) Uploads() []storage.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]storage.Request(nil), f.uploads...)
}

// FakeSheetPort is an in-memory sheetport.Port. Respond, when set,
// overrides the default all-updated behavior.
type FakeSheetPort struct {
	mu      sync.Mutex
	calls   [][]sheetport.Row
	Respond func(rows []sheetport.Row) (sheetport.Response, error)
}

func NewFakeSheetPort() *FakeSheetPort {
	return &FakeSheetPort{}
}

func (f *FakeSheetPort) UpdateRows(ctx context.Context, rows []sheetport.Row) (sheetport.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]sheetport.Row(nil), rows...))
	respond := f.Respond
	f.mu.Unlock()

	if respond != nil {
		return respond(rows)
	}
	resp := sheetport.Response{Success: true, HasAggregate: true}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, sheetport.RowResult{MatchKey: row.MatchKey, Outcome: sheetport.OutcomeUpdated})
		resp.Aggregate.Updated++
	}
	return resp, nil
}

// Calls returns a copy of every UpdateRows invocation.
func (f *FakeSheetPort) Calls() [][]sheetport.Row {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]sheetport.Row, len(f.calls))
	copy(out, f.calls)
	return out
}
