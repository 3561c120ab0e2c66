package diff

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writeTempFile: %v", err)
	}
	return path
}

func newTestController(t *testing.T, opts Options) (*Controller, *HeadlessDriver) {
	t.Helper()
	driver := NewHeadlessDriver()
	registry := NewRegistry()
	ctrl := NewController(registry, driver, opts)
	ctrl.ReloadDelay = time.Millisecond
	return ctrl, driver
}

// Scenario 1 (spec §8): accept.
func TestOpenDiffBlocking_Accept(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\ntwo\n")

	ctrl, driver := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	resultCh := make(chan Result, 1)
	errCh := make(chan error, 1)
	go func() {
		r, err := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "one\ntwo_x\n",
			TabName:         "tab1",
		})
		resultCh <- r
		errCh <- err
	}()

	waitForPending(t, ctrl.Registry, "tab1")
	state, _ := ctrl.Registry.Get("tab1")
	driver.Save(state.ProposedBufferID, "one\ntwo_x\n")

	result := <-resultCh
	if err := <-errCh; err != nil {
		t.Fatalf("OpenDiffBlocking returned error: %v", err)
	}
	if !result.Accepted || result.Content != "one\ntwo_x\n" {
		t.Fatalf("got %+v, want accepted with content %q", result, "one\ntwo_x\n")
	}
}

// Scenario 2 (spec §8): reject.
func TestOpenDiffBlocking_Reject(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\ntwo\n")

	ctrl, driver := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	resultCh := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "one\ntwo_x\n",
			TabName:         "tab1",
		})
		resultCh <- r
	}()

	waitForPending(t, ctrl.Registry, "tab1")
	state, _ := ctrl.Registry.Get("tab1")
	driver.CloseBuffer(state.ProposedBufferID)

	result := <-resultCh
	if result.Accepted || result.TabName != "tab1" {
		t.Fatalf("got %+v, want rejected with tab_name tab1", result)
	}
}

// Scenario 3 (spec §8): new file, accept.
func TestOpenDiffBlocking_NewFileAccept(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.txt")

	ctrl, driver := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	resultCh := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "hello\n",
			TabName:         "tab2",
		})
		resultCh <- r
	}()

	waitForPending(t, ctrl.Registry, "tab2")
	state, _ := ctrl.Registry.Get("tab2")
	if !state.IsNewFile {
		t.Fatalf("expected IsNewFile=true for absent old file")
	}
	driver.Save(state.ProposedBufferID, "hello world\n")

	result := <-resultCh
	if !result.Accepted || result.Content != "hello world\n" {
		t.Fatalf("got %+v, want accepted with content %q", result, "hello world\n")
	}
}

// Scenario 4 (spec §8): unsaved changes.
func TestOpenDiffBlocking_UnsavedChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\ntwo\n")

	ctrl, driver := newTestController(t, DefaultOptions())
	driver.MarkUnsavedChanges(path, true)
	ctx := WithSuspendable(context.Background())

	_, err := ctrl.OpenDiffBlocking(ctx, Request{
		OldFilePath:     path,
		NewFilePath:     path,
		NewFileContents: "one\ntwo_x\n",
		TabName:         "tab1",
	})

	de, ok := err.(*Error)
	if !ok || de.Kind != KindUnsavedChanges {
		t.Fatalf("got err=%v, want KindUnsavedChanges", err)
	}
	if _, exists := ctrl.Registry.Get("tab1"); exists {
		t.Fatalf("registry should remain empty after UnsavedChanges")
	}
}

// Scenario 5 (spec §8): replacement.
func TestOpenDiffBlocking_Replacement(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\ntwo\n")

	ctrl, driver := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	firstResult := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "first\n",
			TabName:         "dup",
		})
		firstResult <- r
	}()
	waitForPending(t, ctrl.Registry, "dup")

	secondResult := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "second\n",
			TabName:         "dup",
		})
		secondResult <- r
	}()

	r1 := <-firstResult
	if r1.Accepted {
		t.Fatalf("first caller should observe rejection on replacement, got %+v", r1)
	}

	waitForPending(t, ctrl.Registry, "dup")
	state, _ := ctrl.Registry.Get("dup")
	if state.NewFileContents != "second\n" {
		t.Fatalf("second diff's state should be live, got contents %q", state.NewFileContents)
	}
	driver.Save(state.ProposedBufferID, "second\n")
	r2 := <-secondResult
	if !r2.Accepted || r2.Content != "second\n" {
		t.Fatalf("second caller got %+v, want accepted with %q", r2, "second\n")
	}
}

// Scenario 6 (spec §8): inline layout.
func TestOpenDiffBlocking_InlineLayout(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "a\nb\nc\n")

	opts := DefaultOptions()
	opts.Layout = "inline"
	ctrl, driver := newTestController(t, opts)
	ctx := WithSuspendable(context.Background())

	resultCh := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "a\nB\nc\n",
			TabName:         "tab1",
		})
		resultCh <- r
	}()

	waitForPending(t, ctrl.Registry, "tab1")
	state, _ := ctrl.Registry.Get("tab1")
	if state.Layout.Kind() != LayoutInline {
		t.Fatalf("expected inline layout")
	}
	wantKinds := []LineKind{LineUnchanged, LineDeleted, LineAdded, LineUnchanged}
	if len(state.InlineKinds) != len(wantKinds) {
		t.Fatalf("got %d inline kinds, want %d", len(state.InlineKinds), len(wantKinds))
	}

	driver.Save(state.ProposedBufferID, "")

	result := <-resultCh
	if !result.Accepted || result.Content != "a\nB\nc\n" {
		t.Fatalf("got %+v, want accepted with content %q", result, "a\nB\nc\n")
	}
}

func TestCloseTab_PendingResolvesRejectedAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\n")

	ctrl, _ := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	resultCh := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "one_x\n",
			TabName:         "tab1",
		})
		resultCh <- r
	}()
	waitForPending(t, ctrl.Registry, "tab1")

	ctrl.CloseTab("tab1")

	result := <-resultCh
	if result.Accepted {
		t.Fatalf("expected rejection when closing a pending diff")
	}
	if _, exists := ctrl.Registry.Get("tab1"); exists {
		t.Fatalf("expected registry entry removed after closeTab")
	}
}

func TestCloseTab_SavedSchedulesReload(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\n")

	ctrl, driver := newTestController(t, DefaultOptions())
	reloaded := make(chan string, 1)
	driver.SetReloadNotify(func(p string) { reloaded <- p })

	ctx := WithSuspendable(context.Background())
	resultCh := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "one_x\n",
			TabName:         "tab1",
		})
		resultCh <- r
	}()
	waitForPending(t, ctrl.Registry, "tab1")
	state, _ := ctrl.Registry.Get("tab1")
	driver.Save(state.ProposedBufferID, "one_x\n")
	<-resultCh

	ctrl.CloseTab("tab1")

	select {
	case p := <-reloaded:
		if p != path {
			t.Fatalf("reload scheduled for %q, want %q", p, path)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected ScheduleReload to fire")
	}
	if _, exists := ctrl.Registry.Get("tab1"); exists {
		t.Fatalf("expected registry entry removed after closeTab")
	}
}

func TestCloseAllDiffTabs_RejectsAndClearsEverything(t *testing.T) {
	dir := t.TempDir()
	path1 := writeTempFile(t, dir, "a.txt", "one\n")
	path2 := writeTempFile(t, dir, "b.txt", "two\n")

	ctrl, _ := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	results := make(chan Result, 2)
	for i, req := range []Request{
		{OldFilePath: path1, NewFilePath: path1, NewFileContents: "one_x\n", TabName: "tab1"},
		{OldFilePath: path2, NewFilePath: path2, NewFileContents: "two_x\n", TabName: "tab2"},
	} {
		req := req
		_ = i
		go func() {
			r, _ := ctrl.OpenDiffBlocking(ctx, req)
			results <- r
		}()
	}
	waitForPending(t, ctrl.Registry, "tab1")
	waitForPending(t, ctrl.Registry, "tab2")

	closed := ctrl.CloseAllDiffTabs()
	if closed != 2 {
		t.Fatalf("CloseAllDiffTabs returned %d, want 2", closed)
	}

	r1 := <-results
	r2 := <-results
	if r1.Accepted || r2.Accepted {
		t.Fatalf("expected both diffs rejected, got %+v and %+v", r1, r2)
	}
	if _, exists := ctrl.Registry.Get("tab1"); exists {
		t.Fatalf("tab1 should be removed")
	}
	if _, exists := ctrl.Registry.Get("tab2"); exists {
		t.Fatalf("tab2 should be removed")
	}
}

func TestShutdown_ForceRejectsPendingDiffs(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\n")

	ctrl, _ := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	resultCh := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "one_x\n",
			TabName:         "tab1",
		})
		resultCh <- r
	}()
	waitForPending(t, ctrl.Registry, "tab1")

	ctrl.Shutdown()

	result := <-resultCh
	if result.Accepted {
		t.Fatalf("expected shutdown to force-reject pending diffs")
	}
	if _, exists := ctrl.Registry.Get("tab1"); exists {
		t.Fatalf("expected registry cleared after shutdown")
	}
}

// Spec §4.5/§6: "accept current diff" resolves whatever buffer the editor
// currently has focused, without an explicit tab name.
func TestAcceptCurrentDiff_ResolvesFocusedBuffer(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\ntwo\n")

	ctrl, driver := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	resultCh := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "one\ntwo_x\n",
			TabName:         "tab1",
		})
		resultCh <- r
	}()

	waitForPending(t, ctrl.Registry, "tab1")
	state, _ := ctrl.Registry.Get("tab1")
	driver.WriteBuffer(state.ProposedBufferID, "one\ntwo_y\n")
	driver.FocusBuffer(state.ProposedBufferID)

	if err := ctrl.AcceptCurrentDiff(); err != nil {
		t.Fatalf("AcceptCurrentDiff: %v", err)
	}

	result := <-resultCh
	if !result.Accepted || result.Content != "one\ntwo_y\n" {
		t.Fatalf("got %+v, want accepted with content %q", result, "one\ntwo_y\n")
	}
	if _, exists := ctrl.Registry.Get("tab1"); !exists {
		t.Fatalf("expected diff to remain registered until closeTab, same as the save hook path")
	}
}

func TestRejectCurrentDiff_ResolvesFocusedBuffer(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "a.txt", "one\ntwo\n")

	ctrl, driver := newTestController(t, DefaultOptions())
	ctx := WithSuspendable(context.Background())

	resultCh := make(chan Result, 1)
	go func() {
		r, _ := ctrl.OpenDiffBlocking(ctx, Request{
			OldFilePath:     path,
			NewFilePath:     path,
			NewFileContents: "one\ntwo_x\n",
			TabName:         "tab1",
		})
		resultCh <- r
	}()

	waitForPending(t, ctrl.Registry, "tab1")
	state, _ := ctrl.Registry.Get("tab1")
	driver.FocusBuffer(state.ProposedBufferID)

	if err := ctrl.RejectCurrentDiff(); err != nil {
		t.Fatalf("RejectCurrentDiff: %v", err)
	}

	result := <-resultCh
	if result.Accepted || result.TabName != "tab1" {
		t.Fatalf("got %+v, want rejected with tab_name tab1", result)
	}
}

func TestAcceptCurrentDiff_NoFocusedDiffBuffer(t *testing.T) {
	ctrl, _ := newTestController(t, DefaultOptions())
	err := ctrl.AcceptCurrentDiff()
	de, ok := err.(*Error)
	if !ok || de.Kind != KindSetupFailed {
		t.Fatalf("got err=%v, want KindSetupFailed", err)
	}
}

func TestRejectCurrentDiff_NoFocusedDiffBuffer(t *testing.T) {
	ctrl, _ := newTestController(t, DefaultOptions())
	err := ctrl.RejectCurrentDiff()
	de, ok := err.(*Error)
	if !ok || de.Kind != KindSetupFailed {
		t.Fatalf("got err=%v, want KindSetupFailed", err)
	}
}

func TestOpenDiffBlocking_RequiresSuspendableContext(t *testing.T) {
	ctrl, _ := newTestController(t, DefaultOptions())
	_, err := ctrl.OpenDiffBlocking(context.Background(), Request{TabName: "t"})
	de, ok := err.(*Error)
	if !ok || de.Kind != KindInternalError {
		t.Fatalf("got err=%v, want KindInternalError", err)
	}
}

// waitForPending polls the registry until tabName exists and is pending, or
// fails the test after a timeout. Used because OpenDiffBlocking is invoked
// on its own goroutine so the test can act as "the user".
func waitForPending(t *testing.T, registry *Registry, tabName string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if state, ok := registry.Get(tabName); ok && state.Status == StatusPending {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q to become pending", tabName)
}
