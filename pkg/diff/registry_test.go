package diff

import (
	"testing"
)

func newSplitStateForTest(tabName string, bufID int) *State {
	return &State{
		TabName:           tabName,
		Status:            StatusPending,
		Layout:            SplitLayout{Orientation: OrientationVertical},
		ProposedBufferID:  bufID,
		OriginalBufferID:  bufID + 1000,
		RejectPolicy:      CloseWindow,
		resumer:           newResumer(),
	}
}

func TestRegistry_ResolveSaved_TransitionsAndResumes(t *testing.T) {
	registry := NewRegistry()
	driver := NewHeadlessDriver()

	bufID, err := driver.CreateScratchBuffer("", "content\n", false)
	if err != nil {
		t.Fatalf("CreateScratchBuffer: %v", err)
	}
	state := newSplitStateForTest("t1", bufID)
	registry.Register(state)

	resultCh := make(chan Result, 1)
	go func() { resultCh <- awaitResume(state.resumer) }()

	registry.ResolveSaved(driver, "t1", bufID)

	got, ok := registry.Get("t1")
	if !ok {
		t.Fatalf("expected state still present until Cleanup")
	}
	if got.Status == StatusPending {
		t.Fatalf("status should not be pending after ResolveSaved")
	}
	if got.Result == nil {
		t.Fatalf("expected Result set after ResolveSaved")
	}

	result := <-resultCh
	if !result.Accepted || result.Content != "content\n" {
		t.Fatalf("got %+v, want accepted with content %q", result, "content\n")
	}
}

func TestRegistry_ResolveRejected_TransitionsAndResumes(t *testing.T) {
	registry := NewRegistry()
	state := newSplitStateForTest("t1", 1)
	registry.Register(state)

	resultCh := make(chan Result, 1)
	go func() { resultCh <- awaitResume(state.resumer) }()

	registry.ResolveRejected("t1")

	got, _ := registry.Get("t1")
	if got.Status != StatusRejected {
		t.Fatalf("status = %v, want rejected", got.Status)
	}
	if got.Result == nil {
		t.Fatalf("expected Result set after ResolveRejected")
	}

	result := <-resultCh
	if result.Accepted {
		t.Fatalf("expected rejected result, got %+v", result)
	}
}

func TestRegistry_ResolveSaved_NoOpWhenAlreadyResolved(t *testing.T) {
	registry := NewRegistry()
	driver := NewHeadlessDriver()
	state := newSplitStateForTest("t1", 1)
	registry.Register(state)

	go awaitResume(state.resumer)
	registry.ResolveRejected("t1")

	if _, resolved := registry.ResolveSaved(driver, "t1", 1); resolved {
		t.Fatalf("ResolveSaved should be a no-op once already rejected")
	}
	got, _ := registry.Get("t1")
	if got.Status != StatusRejected {
		t.Fatalf("status changed from rejected, got %v", got.Status)
	}
}

func TestRegistry_Cleanup_RemovesFromRegistry(t *testing.T) {
	registry := NewRegistry()
	driver := NewHeadlessDriver()
	state := newSplitStateForTest("t1", 1)
	registry.Register(state)
	go awaitResume(state.resumer)
	registry.ResolveRejected("t1")

	registry.Cleanup(driver, "t1", "test")

	if _, ok := registry.Get("t1"); ok {
		t.Fatalf("expected absent after Cleanup")
	}
}

func TestRegistry_Cleanup_IsIdempotent(t *testing.T) {
	registry := NewRegistry()
	driver := NewHeadlessDriver()

	registry.Cleanup(driver, "never-registered", "test")
	registry.Cleanup(driver, "never-registered", "test")

	if _, ok := registry.Get("never-registered"); ok {
		t.Fatalf("expected absent")
	}
}

func TestRegistry_CleanupAll_IsIdempotent(t *testing.T) {
	registry := NewRegistry()
	driver := NewHeadlessDriver()

	state1 := newSplitStateForTest("t1", 1)
	state2 := newSplitStateForTest("t2", 2)
	registry.Register(state1)
	registry.Register(state2)
	go awaitResume(state1.resumer)
	go awaitResume(state2.resumer)

	registry.CleanupAll(driver, "shutdown")
	if _, ok := registry.Get("t1"); ok {
		t.Fatalf("t1 should be gone after first CleanupAll")
	}
	if _, ok := registry.Get("t2"); ok {
		t.Fatalf("t2 should be gone after first CleanupAll")
	}

	// Second call on an already-empty registry must not panic or error.
	registry.CleanupAll(driver, "shutdown-again")
}

func TestRegistry_ReplaceIfPresent_FirstCallerRejectedBeforeSecondVisible(t *testing.T) {
	registry := NewRegistry()
	driver := NewHeadlessDriver()

	first := newSplitStateForTest("dup", 1)
	registry.Register(first)

	firstResult := make(chan Result, 1)
	go func() { firstResult <- awaitResume(first.resumer) }()

	// Simulate the controller's step 1: force-reject and tear down whatever
	// is currently registered under this tab name before the second diff's
	// state becomes visible in the registry.
	registry.ResolveRejected("dup")
	registry.Cleanup(driver, "dup", "replaced")
	result := <-firstResult
	if result.Accepted {
		t.Fatalf("expected first diff forced to reject, got %+v", result)
	}

	replaced := registry.replaceIfPresent(driver, "dup")
	if replaced {
		t.Fatalf("replaceIfPresent should be a no-op: first diff was already resolved directly")
	}

	second := newSplitStateForTest("dup", 2)
	registry.Register(second)

	got, ok := registry.Get("dup")
	if !ok || got != second {
		t.Fatalf("expected second diff's state to be the live one under tab_name dup")
	}
}

func TestRegistry_ReplaceIfPresent_ForcesRejectOfExisting(t *testing.T) {
	registry := NewRegistry()
	driver := NewHeadlessDriver()

	first := newSplitStateForTest("dup", 1)
	registry.Register(first)

	firstResult := make(chan Result, 1)
	go func() { firstResult <- awaitResume(first.resumer) }()

	replaced := registry.replaceIfPresent(driver, "dup")
	if !replaced {
		t.Fatalf("expected replaceIfPresent to report a replacement occurred")
	}

	result := <-firstResult
	if result.Accepted {
		t.Fatalf("first diff's caller should observe rejection before replacement proceeds, got %+v", result)
	}

	if _, ok := registry.Get("dup"); ok {
		t.Fatalf("expected dup removed by replaceIfPresent's Cleanup before the new Register call")
	}

	second := newSplitStateForTest("dup", 2)
	registry.Register(second)

	got, _ := registry.Get("dup")
	if got != second {
		t.Fatalf("expected second diff's state to be the live one under tab_name dup")
	}
}
