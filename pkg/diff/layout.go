package diff

import (
	"fmt"
	"strings"
)

// layoutEngine materializes a diff's visual representation (spec §2, §4.4).
// It is an unexported helper used only by Controller; its two entry points
// correspond exactly to the two branches of spec §4.1 step 3.
type layoutEngine struct {
	driver EditorDriver
}

// buildRollback undoes whatever partial UI state buildSplit/buildInline
// created before a later step failed (spec §4.1 "Failure handling": a setup
// failure after a new tab/window/buffer was created must not leak it; the
// BufferCreationFailed/SetupFailed kinds are "reported after rollback").
// Fields are populated incrementally as each resource is created, so
// rollback() only tears down what actually exists.
type buildRollback struct {
	driver        EditorDriver
	originalTabID int
	tabID         int
	splitWinID    int
	proposedBufID int
	diffWinID     int
}

func (rb *buildRollback) rollback() {
	if rb.diffWinID != 0 {
		_ = rb.driver.CloseWindow(rb.diffWinID)
	}
	if rb.proposedBufID != 0 {
		_ = rb.driver.DeleteBuffer(rb.proposedBufID)
	}
	if rb.splitWinID != 0 {
		_ = rb.driver.CloseWindow(rb.splitWinID)
	}
	if rb.tabID != 0 {
		_ = rb.driver.CloseTab(rb.tabID, rb.originalTabID)
	}
}

// buildSplit implements spec §4.1 steps 4-7 for the split layout: tab
// placement, window selection for the original side, proposed buffer
// construction and split rendering. Hook installation (step 8) is left to
// the caller: Controller invokes UIBinder on the returned state and then
// registers it.
func (e *layoutEngine) buildSplit(opts Options, req Request, isNewFile bool) (*State, error) {
	state := &State{
		TabName:         req.TabName,
		Layout:          SplitLayout{Orientation: opts.Orientation()},
		Status:          StatusPending,
		OldFilePath:     req.OldFilePath,
		NewFilePath:     req.NewFilePath,
		NewFileContents: req.NewFileContents,
		IsNewFile:       isNewFile,
		RejectPolicy:    opts.RejectPolicy(),
		resumer:         newResumer(),
	}

	originalTabID := e.driver.CurrentTabID()
	state.OriginalTabID = originalTabID

	rb := &buildRollback{driver: e.driver, originalTabID: originalTabID}

	if opts.OpenInNewTab {
		visible, width := e.driver.AssistantTerminalVisibleInTab(originalTabID)
		state.HadAssistantTerminalInOriginalTab = visible
		state.AssistantTerminalWidth = width

		newTabID, err := e.driver.CreateTab()
		if err != nil {
			return nil, WrapError(KindSetupFailed, "create new tab", err)
		}
		state.CreatedNewTab = true
		state.NewTabID = newTabID
		rb.tabID = newTabID

		if visible && !opts.HideTerminalInNewTab {
			if err := e.driver.EmbedAssistantTerminal(newTabID, width); err != nil {
				rb.rollback()
				return nil, WrapError(KindSetupFailed, "embed assistant terminal in new tab", err)
			}
		}
	}

	originalWinID, originalBufID, createdByUs, splitWinID, err := e.selectOriginalWindow(req, isNewFile)
	rb.splitWinID = splitWinID
	if err != nil {
		rb.rollback()
		return nil, err
	}
	state.OriginalWindowID = originalWinID
	state.OriginalBufferID = originalBufID
	state.OriginalBufferCreatedByUs = createdByUs
	state.OriginalCursorPos = e.driver.CursorPos(originalWinID)

	proposedName := fmt.Sprintf("%s (proposed)", req.TabName)
	if isNewFile {
		proposedName = "(NEW FILE - proposed)"
	}
	proposedBufID, err := e.driver.CreateScratchBuffer(proposedName, req.NewFileContents, false)
	if err != nil {
		rb.rollback()
		return nil, WrapError(KindBufferCreationFailed, "create proposed buffer", err)
	}
	state.ProposedBufferID = proposedBufID
	rb.proposedBufID = proposedBufID

	diffWinID, err := e.driver.ShowBufferInWindow(0, proposedBufID)
	if err != nil {
		rb.rollback()
		return nil, WrapError(KindSetupFailed, "show proposed buffer", err)
	}
	state.DiffWindowID = diffWinID
	rb.diffWinID = diffWinID

	if err := e.driver.EnableDiffMode(originalWinID, diffWinID); err != nil {
		rb.rollback()
		return nil, WrapError(KindSetupFailed, "enable diff mode", err)
	}
	_ = e.driver.EqualizeWindowWidths(originalWinID, diffWinID)
	_ = e.driver.PropagateFiletype(proposedBufID, req.OldFilePath)

	e.driver.TagBuffer(proposedBufID, req.TabName, false)

	return state, nil
}

// selectOriginalWindow implements spec §4.1 step 5. splitWinID is nonzero
// only when a new window was created by splitting, so the caller can roll
// it back if a later step fails.
func (e *layoutEngine) selectOriginalWindow(req Request, isNewFile bool) (winID int, bufID int, createdByUs bool, splitWinID int, err error) {
	if isNewFile {
		if winID, bufID, ok := e.driver.CurrentWindowHasEmptyScratchBuffer(); ok {
			return winID, bufID, true, 0, nil
		}
	}

	if winID, ok := e.driver.FindWindowShowing(req.OldFilePath); ok {
		bufID, err = e.driver.LoadFileIntoWindow(winID, req.OldFilePath)
		return winID, bufID, false, 0, err
	}

	if winID, ok := e.driver.MainEditorWindow(); ok {
		bufID, err = e.driver.LoadFileIntoWindow(winID, req.OldFilePath)
		return winID, bufID, false, 0, err
	}

	winID, err = e.driver.SplitWindow()
	if err != nil {
		return 0, 0, false, 0, NewError(KindNoSuitableWindow, "no main editor window and could not split one")
	}
	bufID, err = e.driver.LoadFileIntoWindow(winID, req.OldFilePath)
	if err != nil {
		// The split window itself must still be torn down by the caller;
		// report it even though this call is failing.
		return 0, 0, false, winID, WrapError(KindSetupFailed, "load original file", err)
	}
	return winID, bufID, false, winID, nil
}

// buildInline implements spec §4.4: a single read-only unified buffer.
func (e *layoutEngine) buildInline(opts Options, req Request, isNewFile bool, oldContent string) (*State, error) {
	lines, kinds := Compute(oldContent, req.NewFileContents)

	state := &State{
		TabName:         req.TabName,
		Layout:          InlineLayout{},
		Status:          StatusPending,
		OldFilePath:     req.OldFilePath,
		NewFilePath:     req.NewFilePath,
		NewFileContents: req.NewFileContents,
		IsNewFile:       isNewFile,
		InlineLines:     lines,
		InlineKinds:     kinds,
		RejectPolicy:    opts.RejectPolicy(),
		resumer:         newResumer(),
	}

	originalTabID := e.driver.CurrentTabID()
	state.OriginalTabID = originalTabID

	rb := &buildRollback{driver: e.driver, originalTabID: originalTabID}

	if opts.OpenInNewTab {
		visible, width := e.driver.AssistantTerminalVisibleInTab(originalTabID)
		state.HadAssistantTerminalInOriginalTab = visible
		state.AssistantTerminalWidth = width

		newTabID, err := e.driver.CreateTab()
		if err != nil {
			return nil, WrapError(KindSetupFailed, "create new tab", err)
		}
		state.CreatedNewTab = true
		state.NewTabID = newTabID
		rb.tabID = newTabID

		if visible && !opts.HideTerminalInNewTab {
			if err := e.driver.EmbedAssistantTerminal(newTabID, width); err != nil {
				rb.rollback()
				return nil, WrapError(KindSetupFailed, "embed assistant terminal in new tab", err)
			}
		}
	}

	bufID, err := e.driver.CreateScratchBuffer(fmt.Sprintf("%s (inline diff)", req.TabName), joinLines(lines), true)
	if err != nil {
		rb.rollback()
		return nil, WrapError(KindBufferCreationFailed, "create inline diff buffer", err)
	}
	state.ProposedBufferID = bufID
	rb.proposedBufID = bufID

	winID, err := e.driver.ShowBufferInWindow(0, bufID)
	if err != nil {
		rb.rollback()
		return nil, WrapError(KindSetupFailed, "show inline diff buffer", err)
	}
	state.DiffWindowID = winID

	_ = e.driver.PropagateFiletype(bufID, req.OldFilePath)

	firstChanged := 1
	for i, k := range kinds {
		if k != LineUnchanged {
			firstChanged = i + 1
			break
		}
	}
	_ = e.driver.SetCursor(bufID, firstChanged)

	for i, k := range kinds {
		if k != LineUnchanged {
			_ = e.driver.DecorateLine(bufID, i+1, k)
		}
	}

	e.driver.TagBuffer(bufID, req.TabName, true)

	return state, nil
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}
