package diff

// EditorDriver is the seam LayoutEngine and UIBinder call into to
// materialize buffers/windows/tabs and to be notified of user actions.
// It generalizes cline-cli's hostbridge.WindowService (ShowTextDocument,
// OpenFile, GetActiveEditor, GetOpenTabs) from VS Code's tab/editor
// vocabulary to the buffer/window/tab vocabulary spec.md's DiffState
// already uses (closer to the Neovim model the original claudecode.nvim
// integration targets).
//
// Every method that can fail returns an error; LayoutEngine is responsible
// for turning those into the *Error kinds spec §7 names and for the
// rollback spec §4.1 requires.
type EditorDriver interface {
	// CurrentTabID returns the id of the tab the assistant-driven request
	// is being serviced from.
	CurrentTabID() int

	// FileIsOpenWithUnsavedChanges reports whether path is open in the
	// editor with modifications that have not been written to disk.
	FileIsOpenWithUnsavedChanges(path string) bool

	// AssistantTerminalVisibleInTab reports whether the assistant's
	// embedded terminal is currently visible in the given tab, and its
	// current width (for later restoration).
	AssistantTerminalVisibleInTab(tabID int) (visible bool, width int)

	// CreateTab creates a new empty tab and returns its id.
	CreateTab() (int, error)

	// SwitchToTab makes tabID the active tab.
	SwitchToTab(tabID int) error

	// CloseTab closes tabID, switching focus back to fallbackTabID first if
	// fallbackTabID is nonzero.
	CloseTab(tabID int, fallbackTabID int) error

	// EmbedAssistantTerminal re-creates the assistant terminal as a side
	// split of width in tabID.
	EmbedAssistantTerminal(tabID int, width int) error

	// FindWindowShowing returns the id of a window already displaying path,
	// or ok=false.
	FindWindowShowing(path string) (winID int, ok bool)

	// MainEditorWindow returns the current main editor window (skipping
	// terminals, tree explorers, floating windows), or ok=false.
	MainEditorWindow() (winID int, ok bool)

	// CurrentWindowHasEmptyScratchBuffer reports whether the current
	// window's buffer is an empty, unnamed scratch buffer — used to avoid a
	// gratuitous split when opening a new-file diff.
	CurrentWindowHasEmptyScratchBuffer() (winID int, bufID int, ok bool)

	// SplitWindow creates a new window by splitting the current one and
	// returns its id.
	SplitWindow() (int, error)

	// EqualizeWindowWidths equalizes the widths of a and b.
	EqualizeWindowWidths(a, b int) error

	// LoadFileIntoWindow loads path's on-disk content into an existing
	// buffer shown in winID, or creates one if winID has no buffer yet, and
	// returns the buffer id.
	LoadFileIntoWindow(winID int, path string) (bufID int, err error)

	// CreateScratchBuffer creates an in-memory buffer named name, populated
	// with content, marked so writes never hit disk (readOnly governs
	// whether the user can edit it at all — false for the proposed buffer,
	// true for the inline unified buffer).
	CreateScratchBuffer(name string, content string, readOnly bool) (bufID int, err error)

	// ShowBufferInWindow displays bufID in winID (creating winID if 0 is
	// passed) and returns the window id actually used.
	ShowBufferInWindow(winID int, bufID int) (int, error)

	// EnableDiffMode turns on side-by-side diff highlighting between the
	// buffers shown in winA and winB.
	EnableDiffMode(winA, winB int) error

	// PropagateFiletype copies the syntax/filetype association from srcPath
	// onto bufID, for highlighting.
	PropagateFiletype(bufID int, srcPath string) error

	// SetCursor positions the cursor in bufID at line (1-indexed).
	SetCursor(bufID int, line int) error

	// DecorateLine applies the added/deleted highlight+sign to line
	// (1-indexed) of bufID. kind is never LineUnchanged.
	DecorateLine(bufID int, line int, kind LineKind) error

	// TagBuffer records a buffer-local back-reference: diff_tab_name, and
	// inline_diff when isInline (spec §3 invariant 7, §4.5).
	TagBuffer(bufID int, tabName string, isInline bool)

	// CurrentBufferTag reads the diff_tab_name/inline_diff tags off
	// whichever buffer currently has editor focus, so the "accept current
	// diff" / "reject current diff" commands (spec §4.5, §6) can resolve
	// their target without an explicit tab_name argument. ok is false when
	// the focused buffer carries no such tag.
	CurrentBufferTag() (tabName string, isInline bool, ok bool)

	// ReadBuffer returns the current text content of bufID, exactly as the
	// user left it, used to extract the accepted content on save.
	ReadBuffer(bufID int) (string, error)

	// CursorPos returns the current cursor position in winID, for later
	// restoration.
	CursorPos(winID int) int

	// RestoreCursor repositions the cursor in bufID to pos after a reload.
	RestoreCursor(bufID int, pos int) error

	// DeleteBuffer removes bufID. Errors are expected to be swallowed by
	// callers during cleanup (spec §7: "errors inside UI hooks are
	// swallowed").
	DeleteBuffer(bufID int) error

	// CloseWindow closes winID. See DeleteBuffer.
	CloseWindow(winID int) error

	// DetachHooks removes the hooks previously installed by OnBufferWrite /
	// OnBufferClose, identified by the ids UIBinder recorded.
	DetachHooks(hookIDs []int)

	// ScheduleReload arranges for any open buffer showing path to reload
	// its on-disk content after delay elapses (spec §5 ordering guarantee
	// 3). Non-blocking: returns immediately.
	ScheduleReload(path string, delay DurationMillis)

	// OnBufferWrite installs a write-intercepting hook on bufID: actual
	// disk writes are suppressed and onSave is invoked instead. Returns a
	// hook id for later detachment.
	OnBufferWrite(bufID int, onSave func()) int

	// OnBufferClose installs a close/unload/wipeout hook on bufID. Returns
	// a hook id for later detachment.
	OnBufferClose(bufID int, onClose func()) int
}

// DurationMillis avoids importing time into the EditorDriver contract for
// implementations that don't need real scheduling (e.g. a test double that
// fires reload synchronously).
type DurationMillis int
