package diff

// installHooks wires the save/close editor events to registry resolution,
// per spec §4.5. Apart from the eager new-file keep_empty case below, hooks
// never tear down UI themselves — they only flip status and resume the
// caller; cleanup is driven by closeTab, closeAllDiffTabs, shutdown, or
// replacement.
func installHooks(driver EditorDriver, registry *Registry, state *State) {
	bufID := state.ProposedBufferID
	tabName := state.TabName

	writeHook := driver.OnBufferWrite(bufID, func() {
		registry.ResolveSaved(driver, tabName, bufID)
	})
	closeHook := driver.OnBufferClose(bufID, func() {
		registry.ResolveRejected(tabName)
		maybeEagerCleanupOnNewFileReject(driver, registry, state)
	})

	state.UIHookIDs = append(state.UIHookIDs, writeHook, closeHook)
}

// maybeEagerCleanupOnNewFileReject implements the keep_empty eager-cleanup
// branch of the state machine in spec §4.5: a new-file diff rejected while
// not in a freshly-created tab, with on_new_file_reject=keep_empty, tears
// down immediately rather than waiting for closeTab, leaving the empty
// placeholder buffer as-is.
func maybeEagerCleanupOnNewFileReject(driver EditorDriver, registry *Registry, state *State) {
	if !state.IsNewFile || state.CreatedNewTab {
		return
	}
	if state.RejectPolicy != KeepEmpty {
		return
	}
	// Only the split layout has a meaningful placeholder buffer distinct
	// from the diff buffer itself; inline layout has nothing to "keep".
	if state.Layout.Kind() != LayoutSplit {
		return
	}
	registry.Cleanup(driver, state.TabName, "new-file reject, keep_empty")
}
