package diff

import "sync"

// Registry is the process-wide map from tab_name to live DiffState (spec
// §4.2). The teacher's DiffService keeps its sessions in a sync.Map with no
// cross-operation atomicity; this Registry instead holds a single mutex for
// the whole map, per spec §9's design note ("if multi-threading is
// introduced, gate with a single mutex — contention is negligible because
// all access is event-loop-serialized logically").
type Registry struct {
	mu    sync.Mutex
	diffs map[string]*State
}

func NewRegistry() *Registry {
	return &Registry{diffs: make(map[string]*State)}
}

// Get returns the live state for tabName, if any.
func (r *Registry) Get(tabName string) (*State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.diffs[tabName]
	return s, ok
}

// Register stores state under its TabName. It is a programmer error to call
// this while an entry already exists for that tab name — the caller must
// have force-rejected the existing diff first (spec §4.1 step 1).
func (r *Registry) Register(state *State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.diffs[state.TabName]; exists {
		panic("diff: Register called with tab_name already present: " + state.TabName)
	}
	r.diffs[state.TabName] = state
}

// ResolveSaved transitions tabName's state from pending to saved, extracts
// the final content (for a split diff, read from bufID via the supplied
// driver; for an inline diff, rebuilt from the stored inline lines), and
// resumes the blocked caller. It is a no-op if the diff is absent or
// already resolved.
func (r *Registry) ResolveSaved(driver EditorDriver, tabName string, bufID int) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.diffs[tabName]
	if !ok || !state.pending() {
		return Result{}, false
	}

	var content string
	if state.Layout.Kind() == LayoutInline {
		content = ExtractAcceptedContent(state.InlineLines, state.InlineKinds, state.NewFileContents)
	} else {
		text, err := driver.ReadBuffer(bufID)
		if err != nil {
			// Swallowed per spec §7: a stale buffer id must not prevent
			// resolution; fall back to whatever content we last knew about.
			text = state.NewFileContents
		}
		content = text
	}

	result := Result{Accepted: true, Content: content, TabName: tabName}
	state.Status = StatusSaved
	state.Result = &result
	sendResume(state.resumer, result)
	return result, true
}

// ResolveRejected transitions tabName's state from pending to rejected and
// resumes the blocked caller with a DIFF_REJECTED result.
func (r *Registry) ResolveRejected(tabName string) (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resolveRejectedLocked(tabName)
}

func (r *Registry) resolveRejectedLocked(tabName string) (Result, bool) {
	state, ok := r.diffs[tabName]
	if !ok || !state.pending() {
		return Result{}, false
	}
	result := Result{Accepted: false, TabName: tabName}
	state.Status = StatusRejected
	state.Result = &result
	sendResume(state.resumer, result)
	return result, true
}

// Cleanup tears down tabName's UI footprint and removes it from the
// registry. Idempotent: a second call on an absent tab name is a no-op.
// reason is not used; it does not change behavior.
func (r *Registry) Cleanup(driver EditorDriver, tabName string, reason string) {
	r.mu.Lock()
	state, ok := r.diffs[tabName]
	if ok {
		delete(r.diffs, tabName)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	cleanupState(driver, state)
}

func cleanupState(driver EditorDriver, state *State) {
	driver.DetachHooks(state.UIHookIDs)

	if state.ProposedBufferID != 0 {
		_ = driver.DeleteBuffer(state.ProposedBufferID)
	}
	if state.DiffWindowID != 0 && !state.CreatedNewTab {
		_ = driver.CloseWindow(state.DiffWindowID)
	}
	if state.OriginalBufferCreatedByUs && state.OriginalBufferID != 0 && state.RejectPolicy == CloseWindow {
		_ = driver.DeleteBuffer(state.OriginalBufferID)
		if state.OriginalWindowID != 0 {
			_ = driver.CloseWindow(state.OriginalWindowID)
		}
	}

	if state.CreatedNewTab && state.NewTabID != 0 {
		_ = driver.CloseTab(state.NewTabID, state.OriginalTabID)
		if state.HadAssistantTerminalInOriginalTab {
			_ = driver.EmbedAssistantTerminal(state.OriginalTabID, state.AssistantTerminalWidth)
		}
	}
}

// CleanupAll force-rejects every still-pending diff (so no suspended caller
// leaks) and then tears each one down. Used on process shutdown (spec §4.2,
// §5 ordering guarantee 4). Idempotent.
func (r *Registry) CleanupAll(driver EditorDriver, reason string) {
	r.mu.Lock()
	names := make([]string, 0, len(r.diffs))
	for name := range r.diffs {
		names = append(names, name)
	}
	for _, name := range names {
		r.resolveRejectedLocked(name)
	}
	r.mu.Unlock()

	for _, name := range names {
		r.Cleanup(driver, name, reason)
	}
}

// replaceIfPresent force-rejects and tears down any existing diff under
// tabName, so a re-request for the same tab name never leaves orphaned UI
// (spec §4.1 step 1). Returns true if a replacement happened.
func (r *Registry) replaceIfPresent(driver EditorDriver, tabName string) bool {
	r.mu.Lock()
	_, existed := r.diffs[tabName]
	if existed {
		r.resolveRejectedLocked(tabName)
	}
	r.mu.Unlock()

	if existed {
		r.Cleanup(driver, tabName, "replaced")
	}
	return existed
}
