package queue_test

import (
	"context"
	"errors"
	"testing"

	"lectern/internal/logging"
	"lectern/internal/parse"
	"lectern/internal/queue"
	"lectern/internal/services"
)

func newItem(t *testing.T, filename string, meta queue.Metadata) *queue.Item {
	t.Helper()
	return queue.NewItem(queue.FileRef{Path: "/videos/" + filename, SizeBytes: 1 << 20}, filename, parse.Parse(filename), meta)
}

func TestEnqueueOrdersQuestionSequences(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())

	meta := queue.Metadata{LibraryName: "S1-AR-Ahmed", CollectionName: "T1-2026"}
	for _, name := range []string{
		"S1 AR T1 U1 L2 P0046 Ahmed Q3.mp4",
		"S1 AR T1 U1 L1 P0046 Ahmed.mp4",
		"S1 AR T1 U1 L2 P0046 Ahmed Q1.mp4",
		"S1 AR T1 U1 L2 P0046 Ahmed Q2.mp4",
	} {
		mgr.Enqueue(newItem(t, name, meta))
	}

	items := mgr.Items()
	got := make([]string, 0, len(items))
	for _, item := range items {
		got = append(got, item.Filename)
	}
	want := []string{
		"S1 AR T1 U1 L1 P0046 Ahmed.mp4",
		"S1 AR T1 U1 L2 P0046 Ahmed Q1.mp4",
		"S1 AR T1 U1 L2 P0046 Ahmed Q2.mp4",
		"S1 AR T1 U1 L2 P0046 Ahmed Q3.mp4",
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestQueueAndUnresolvedStayDisjoint(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())

	resolved := newItem(t, "S2 EN T1 P0100 Sara.mp4", queue.Metadata{LibraryName: "S2-EN-Sara", CollectionName: "T1-2026"})
	mgr.Enqueue(resolved)

	held := newItem(t, "S3 SCI T2 P0200 Omar.mp4", queue.Metadata{SuggestedLibraryName: "S3-SCI-Omar", CollectionName: "T2-2026"})
	mgr.HoldUnresolved(held)

	if len(mgr.Items()) != 1 || len(mgr.UnresolvedItems()) != 1 {
		t.Fatalf("expected one item per collection, got %d/%d", len(mgr.Items()), len(mgr.UnresolvedItems()))
	}

	item, err := mgr.ResolveManually(held.ID, "lib-200", "S3-SCI-Omar 2026")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if item.Meta.Confidence != 100 || item.Meta.NeedsManualSelection {
		t.Fatalf("resolved item not finalized: %+v", item.Meta)
	}
	if len(mgr.Items()) != 2 || len(mgr.UnresolvedItems()) != 0 {
		t.Fatalf("item did not move between collections")
	}

	if _, err := mgr.ResolveManually(held.ID, "lib-200", "S3-SCI-Omar 2026"); !errors.Is(err, queue.ErrAlreadyResolved) {
		t.Fatalf("second resolve: got %v want ErrAlreadyResolved", err)
	}
	if _, err := mgr.ResolveManually("missing", "x", "y"); !errors.Is(err, queue.ErrNotFound) {
		t.Fatalf("unknown id: got %v want ErrNotFound", err)
	}
}

func TestUnresolvedItemsNeverScheduled(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	mgr.HoldUnresolved(newItem(t, "A T1 P0001 X.mp4", queue.Metadata{}))

	if _, ok := mgr.NextPending(); ok {
		t.Fatal("unresolved item offered for scheduling")
	}
}

func TestPauseAbortsAttemptWithCause(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	item := newItem(t, "S1 AR T1 P0046 Ahmed.mp4", queue.Metadata{LibraryName: "lib"})
	mgr.Enqueue(item)

	ctx, cancel := context.WithCancelCause(context.Background())
	if err := mgr.MarkProcessing(item.ID, cancel); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := mgr.Pause(item.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if !errors.Is(context.Cause(ctx), services.ErrUserPause) {
		t.Fatalf("cause = %v, want ErrUserPause", context.Cause(ctx))
	}
	got, _ := mgr.Get(item.ID)
	if got.Status != queue.StatusPaused || !got.IsPaused {
		t.Fatalf("status after pause: %s paused=%v", got.Status, got.IsPaused)
	}

	if err := mgr.Resume(item.ID); err != nil {
		t.Fatalf("resume: %v", err)
	}
	next, ok := mgr.NextPending()
	if !ok || next.ID != item.ID {
		t.Fatal("resumed item not schedulable")
	}
}

func TestCancelRemovesAndReportsInFlight(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	item := newItem(t, "S1 AR T1 P0046 Ahmed.mp4", queue.Metadata{})
	mgr.Enqueue(item)

	ctx, cancel := context.WithCancelCause(context.Background())
	if err := mgr.MarkProcessing(item.ID, cancel); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	wasProcessing, err := mgr.Cancel(item.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !wasProcessing {
		t.Fatal("cancel of in-flight item not reported")
	}
	if !errors.Is(context.Cause(ctx), services.ErrUserCancel) {
		t.Fatalf("cause = %v, want ErrUserCancel", context.Cause(ctx))
	}
	if _, ok := mgr.Get(item.ID); ok {
		t.Fatal("cancelled item still present")
	}
}

func TestGlobalPauseStopsSchedulingAndAbortsWork(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	active := newItem(t, "A T1 P0001 X.mp4", queue.Metadata{})
	waiting := newItem(t, "B T1 P0002 Y.mp4", queue.Metadata{})
	mgr.Enqueue(active)
	mgr.Enqueue(waiting)

	ctx, cancel := context.WithCancelCause(context.Background())
	if err := mgr.MarkProcessing(active.ID, cancel); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	if paused := mgr.ToggleGlobalPause(); !paused {
		t.Fatal("toggle did not enable the pause")
	}
	if !errors.Is(context.Cause(ctx), services.ErrUserPause) {
		t.Fatalf("cause = %v, want ErrUserPause", context.Cause(ctx))
	}
	if _, ok := mgr.NextPending(); ok {
		t.Fatal("scheduling continued under global pause")
	}

	if paused := mgr.ToggleGlobalPause(); paused {
		t.Fatal("toggle did not disable the pause")
	}
	if _, ok := mgr.NextPending(); !ok {
		t.Fatal("no work offered after pause lifted")
	}
}

func TestGlobalPauseLiftLeavesIndividuallyPausedItems(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	parked := newItem(t, "A T1 P0001 X.mp4", queue.Metadata{})
	active := newItem(t, "B T1 P0002 Y.mp4", queue.Metadata{})
	mgr.Enqueue(parked)
	mgr.Enqueue(active)

	if err := mgr.Pause(parked.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}
	_, cancel := context.WithCancelCause(context.Background())
	if err := mgr.MarkProcessing(active.ID, cancel); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	mgr.ToggleGlobalPause()
	mgr.ToggleGlobalPause()

	got, _ := mgr.Get(parked.ID)
	if got.Status != queue.StatusPaused || !got.IsPaused {
		t.Fatalf("individually paused item resumed by global toggle: %s", got.Status)
	}
	got, _ = mgr.Get(active.ID)
	if got.Status != queue.StatusPending {
		t.Fatalf("globally paused item not restored: %s", got.Status)
	}
	next, ok := mgr.NextPending()
	if !ok || next.ID != active.ID {
		t.Fatalf("scheduler offered %v, want the restored item", next.ID)
	}
}

func TestMarkErrorIsTerminalForTheAttempt(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	item := newItem(t, "A T1 P0001 X.mp4", queue.Metadata{})
	mgr.Enqueue(item)

	_, cancel := context.WithCancelCause(context.Background())
	if err := mgr.MarkProcessing(item.ID, cancel); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	mgr.MarkError(item.ID, "upload failed: connection reset")

	got, _ := mgr.Get(item.ID)
	if got.Status != queue.StatusError || got.ErrorMessage == "" {
		t.Fatalf("error state not recorded: %s %q", got.Status, got.ErrorMessage)
	}
	if _, ok := mgr.NextPending(); ok {
		t.Fatal("errored item offered for scheduling")
	}

	counts := mgr.Counts()
	if counts.Error != 1 || counts.Pending != 0 {
		t.Fatalf("counts = %+v", counts)
	}
}

func TestProgressUpdatesPreservedAcrossPause(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	item := newItem(t, "A T1 P0001 X.mp4", queue.Metadata{})
	mgr.Enqueue(item)

	_, cancel := context.WithCancelCause(context.Background())
	if err := mgr.MarkProcessing(item.ID, cancel); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	mgr.UpdateProgress(item.ID, 512<<10, 1<<20, 50, 128<<10, 4)
	if err := mgr.Pause(item.ID); err != nil {
		t.Fatalf("pause: %v", err)
	}

	got, _ := mgr.Get(item.ID)
	if got.UploadedBytes != 512<<10 || got.Progress != 50 {
		t.Fatalf("progress lost on pause: %d bytes %.0f%%", got.UploadedBytes, got.Progress)
	}
}

func TestGroupsPutUnresolvedFirst(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	mgr.Enqueue(newItem(t, "S1 AR T1 P0046 Ahmed.mp4", queue.Metadata{LibraryName: "S1-AR-Ahmed", CollectionName: "T1-2026"}))
	mgr.HoldUnresolved(newItem(t, "S3 SCI T2 P0200 Omar.mp4", queue.Metadata{SuggestedLibraryName: "S3-SCI-Omar", CollectionName: "T2-2026"}))

	groups := mgr.Groups()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	if !groups[0].NeedsManualSelection {
		t.Fatal("unresolved group not listed first")
	}
	if groups[0].LibraryName != "S3-SCI-Omar" || groups[1].LibraryName != "S1-AR-Ahmed" {
		t.Fatalf("group order: %q then %q", groups[0].LibraryName, groups[1].LibraryName)
	}
}

func TestGroupsKeepUnresolvedApartFromResolvedSiblings(t *testing.T) {
	mgr := queue.NewManager(logging.NewNop())
	meta := queue.Metadata{LibraryName: "S1-AR-Ahmed", CollectionName: "T1-2026"}
	mgr.Enqueue(newItem(t, "S1 AR T1 P0046 Ahmed.mp4", meta))
	mgr.HoldUnresolved(newItem(t, "S1 AR T1 P0047 Ahmed.mp4",
		queue.Metadata{SuggestedLibraryName: "S1-AR-Ahmed", CollectionName: "T1-2026"}))

	groups := mgr.Groups()
	if len(groups) != 2 {
		t.Fatalf("got %d groups, want unresolved and resolved kept apart", len(groups))
	}
	if !groups[0].NeedsManualSelection || groups[1].NeedsManualSelection {
		t.Fatalf("group flags: %v %v", groups[0].NeedsManualSelection, groups[1].NeedsManualSelection)
	}
	if len(groups[0].Items) != 1 || len(groups[1].Items) != 1 {
		t.Fatalf("items per group: %d/%d", len(groups[0].Items), len(groups[1].Items))
	}
}
