package diff

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// HeadlessDriver is a concrete EditorDriver with no real GUI behind it. It
// plays the same role cline-cli's hostbridge.WindowService plays for the
// Cline CLI: a console/in-memory stand-in that records what a real editor
// would do, so the host process is runnable and testable without an actual
// attached editor. It is what cmd/hostbridge runs with, and what this
// package's tests drive the state machine through.
type HeadlessDriver struct {
	mu sync.Mutex

	nextID int

	currentTabID int

	buffers map[int]*headlessBuffer
	windows map[int]*headlessWindow
	tabs    map[int]bool

	unsavedChanges map[string]bool
	openWindowsFor map[string]int // path -> winID, for FindWindowShowing

	terminalsByTab map[int]int // tabID -> width, presence implies visible

	// focusedBufferID is whichever buffer the user is currently looking at.
	// ShowBufferInWindow moves focus onto the buffer it displays, matching
	// the natural flow of opening a diff; FocusBuffer lets tests move focus
	// elsewhere to exercise CurrentBufferTag from other starting points.
	focusedBufferID int

	// reloadNotify, if set, is invoked synchronously instead of scheduling
	// a real timer, so tests can observe ScheduleReload deterministically.
	reloadNotify func(path string)

	// failures and the closed*/deleted* slices below are test-only
	// instrumentation for exercising layoutEngine's rollback path: FailNext
	// injects a one-shot error from a named method, and the slices record
	// what rollback tore down afterward.
	failures       map[string]error
	closedWindows  []int
	deletedBuffers []int
	closedTabs     []int
}

type headlessBuffer struct {
	id       int
	name     string
	content  string
	readOnly bool
	tagTab   string
	tagInline bool

	writeHooks []func()
	closeHooks []func()
}

type headlessWindow struct {
	id    int
	bufID int
	cursorLine int
}

func NewHeadlessDriver() *HeadlessDriver {
	return &HeadlessDriver{
		buffers:        make(map[int]*headlessBuffer),
		windows:        make(map[int]*headlessWindow),
		tabs:           map[int]bool{1: true},
		unsavedChanges: make(map[string]bool),
		openWindowsFor: make(map[string]int),
		terminalsByTab: make(map[int]int),
		currentTabID:   1,
	}
}

func (d *HeadlessDriver) allocID() int {
	d.nextID++
	return d.nextID
}

// FailNext arranges for the next call to the named EditorDriver method to
// return err instead of succeeding, then clears itself. Test-only; not part
// of EditorDriver.
func (d *HeadlessDriver) FailNext(method string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures == nil {
		d.failures = make(map[string]error)
	}
	d.failures[method] = err
}

func (d *HeadlessDriver) takeFailure(method string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err, ok := d.failures[method]
	if ok {
		delete(d.failures, method)
	}
	return err
}

// ClosedWindows, DeletedBuffers and ClosedTabs are test-only accessors onto
// the rollback instrumentation above.
func (d *HeadlessDriver) ClosedWindows() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.closedWindows...)
}

func (d *HeadlessDriver) DeletedBuffers() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.deletedBuffers...)
}

func (d *HeadlessDriver) ClosedTabs() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.closedTabs...)
}

func (d *HeadlessDriver) CurrentTabID() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.currentTabID
}

// MarkUnsavedChanges is a test/setup hook: it is not part of EditorDriver
// and is only used to arrange the UnsavedChanges precondition scenario.
func (d *HeadlessDriver) MarkUnsavedChanges(path string, dirty bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unsavedChanges[path] = dirty
}

func (d *HeadlessDriver) FileIsOpenWithUnsavedChanges(path string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.unsavedChanges[path]
}

func (d *HeadlessDriver) AssistantTerminalVisibleInTab(tabID int) (bool, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	width, ok := d.terminalsByTab[tabID]
	return ok, width
}

func (d *HeadlessDriver) CreateTab() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.allocID()
	d.tabs[id] = true
	d.currentTabID = id
	return id, nil
}

func (d *HeadlessDriver) SwitchToTab(tabID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.tabs[tabID] {
		return fmt.Errorf("headless: no such tab %d", tabID)
	}
	d.currentTabID = tabID
	return nil
}

func (d *HeadlessDriver) CloseTab(tabID int, fallbackTabID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tabs, tabID)
	delete(d.terminalsByTab, tabID)
	d.closedTabs = append(d.closedTabs, tabID)
	if fallbackTabID != 0 {
		d.currentTabID = fallbackTabID
	}
	return nil
}

func (d *HeadlessDriver) EmbedAssistantTerminal(tabID int, width int) error {
	if err := d.takeFailure("EmbedAssistantTerminal"); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.terminalsByTab[tabID] = width
	return nil
}

func (d *HeadlessDriver) FindWindowShowing(path string) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.openWindowsFor[path]
	return id, ok
}

func (d *HeadlessDriver) MainEditorWindow() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id := range d.windows {
		return id, true
	}
	return 0, false
}

func (d *HeadlessDriver) CurrentWindowHasEmptyScratchBuffer() (int, int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for winID, win := range d.windows {
		buf, ok := d.buffers[win.bufID]
		if ok && buf.content == "" && buf.name == "" {
			return winID, win.bufID, true
		}
	}
	return 0, 0, false
}

func (d *HeadlessDriver) SplitWindow() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.allocID()
	d.windows[id] = &headlessWindow{id: id}
	return id, nil
}

func (d *HeadlessDriver) EqualizeWindowWidths(a, b int) error {
	return nil
}

func (d *HeadlessDriver) LoadFileIntoWindow(winID int, path string) (int, error) {
	if err := d.takeFailure("LoadFileIntoWindow"); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	content := ""
	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			content = string(data)
		}
	}

	win, ok := d.windows[winID]
	if !ok {
		win = &headlessWindow{id: winID}
		d.windows[winID] = win
	}

	bufID := d.allocID()
	d.buffers[bufID] = &headlessBuffer{id: bufID, name: path, content: content}
	win.bufID = bufID
	if path != "" {
		d.openWindowsFor[path] = winID
	}
	return bufID, nil
}

func (d *HeadlessDriver) CreateScratchBuffer(name string, content string, readOnly bool) (int, error) {
	if err := d.takeFailure("CreateScratchBuffer"); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.allocID()
	d.buffers[id] = &headlessBuffer{id: id, name: name, content: content, readOnly: readOnly}
	return id, nil
}

func (d *HeadlessDriver) ShowBufferInWindow(winID int, bufID int) (int, error) {
	if err := d.takeFailure("ShowBufferInWindow"); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if winID == 0 {
		winID = d.allocID()
	}
	win, ok := d.windows[winID]
	if !ok {
		win = &headlessWindow{id: winID}
		d.windows[winID] = win
	}
	win.bufID = bufID
	d.focusedBufferID = bufID
	return winID, nil
}

// FocusBuffer is a test/setup hook: it moves editor focus onto bufID without
// otherwise touching any window, so tests can exercise CurrentBufferTag
// against a buffer other than whichever ShowBufferInWindow last displayed.
func (d *HeadlessDriver) FocusBuffer(bufID int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.focusedBufferID = bufID
}

func (d *HeadlessDriver) EnableDiffMode(winA, winB int) error {
	if err := d.takeFailure("EnableDiffMode"); err != nil {
		return err
	}
	return nil
}

func (d *HeadlessDriver) PropagateFiletype(bufID int, srcPath string) error {
	return nil
}

func (d *HeadlessDriver) SetCursor(bufID int, line int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, win := range d.windows {
		if win.bufID == bufID {
			win.cursorLine = line
		}
	}
	return nil
}

func (d *HeadlessDriver) DecorateLine(bufID int, line int, kind LineKind) error {
	return nil
}

func (d *HeadlessDriver) TagBuffer(bufID int, tabName string, isInline bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf, ok := d.buffers[bufID]; ok {
		buf.tagTab = tabName
		buf.tagInline = isInline
	}
}

func (d *HeadlessDriver) CurrentBufferTag() (tabName string, isInline bool, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, exists := d.buffers[d.focusedBufferID]
	if !exists || buf.tagTab == "" {
		return "", false, false
	}
	return buf.tagTab, buf.tagInline, true
}

func (d *HeadlessDriver) ReadBuffer(bufID int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[bufID]
	if !ok {
		return "", fmt.Errorf("headless: no such buffer %d", bufID)
	}
	return buf.content, nil
}

// WriteBuffer is a test/setup hook simulating the user editing the proposed
// buffer before saving.
func (d *HeadlessDriver) WriteBuffer(bufID int, content string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf, ok := d.buffers[bufID]; ok {
		buf.content = content
	}
}

func (d *HeadlessDriver) CursorPos(winID int) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if win, ok := d.windows[winID]; ok {
		return win.cursorLine
	}
	return 0
}

func (d *HeadlessDriver) RestoreCursor(bufID int, pos int) error {
	return d.SetCursor(bufID, pos)
}

func (d *HeadlessDriver) DeleteBuffer(bufID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	buf, ok := d.buffers[bufID]
	if !ok {
		return fmt.Errorf("headless: no such buffer %d", bufID)
	}
	if buf.name != "" {
		delete(d.openWindowsFor, buf.name)
	}
	delete(d.buffers, bufID)
	d.deletedBuffers = append(d.deletedBuffers, bufID)
	return nil
}

func (d *HeadlessDriver) CloseWindow(winID int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.windows, winID)
	d.closedWindows = append(d.closedWindows, winID)
	return nil
}

func (d *HeadlessDriver) DetachHooks(hookIDs []int) {
	// Hooks live on the buffer itself in this driver; nothing process-wide
	// to detach. Present to satisfy the interface and to mirror the
	// teacher's pattern of an explicit (if sometimes no-op) detach step.
}

func (d *HeadlessDriver) ScheduleReload(path string, delay DurationMillis) {
	if d.reloadNotify != nil {
		d.reloadNotify(path)
		return
	}
	time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		data, err := os.ReadFile(path)
		if err != nil {
			return
		}
		d.mu.Lock()
		defer d.mu.Unlock()
		for _, buf := range d.buffers {
			if buf.name == path {
				buf.content = string(data)
			}
		}
	})
}

// SetReloadNotify lets tests observe ScheduleReload synchronously instead
// of racing a real timer.
func (d *HeadlessDriver) SetReloadNotify(fn func(path string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reloadNotify = fn
}

func (d *HeadlessDriver) OnBufferWrite(bufID int, onSave func()) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf, ok := d.buffers[bufID]; ok {
		buf.writeHooks = append(buf.writeHooks, onSave)
	}
	return d.allocID()
}

func (d *HeadlessDriver) OnBufferClose(bufID int, onClose func()) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if buf, ok := d.buffers[bufID]; ok {
		buf.closeHooks = append(buf.closeHooks, onClose)
	}
	return d.allocID()
}

// Save simulates the user saving the proposed buffer with the given final
// content, firing any installed write hooks. This is the test-facing
// equivalent of the editor's save keybinding.
func (d *HeadlessDriver) Save(bufID int, content string) {
	d.mu.Lock()
	buf, ok := d.buffers[bufID]
	if ok {
		buf.content = content
	}
	var hooks []func()
	if ok {
		hooks = append(hooks, buf.writeHooks...)
	}
	d.mu.Unlock()

	for _, h := range hooks {
		h()
	}
}

// CloseBuffer simulates the user closing/unloading/wiping out bufID, firing
// any installed close hooks.
func (d *HeadlessDriver) CloseBuffer(bufID int) {
	d.mu.Lock()
	buf, ok := d.buffers[bufID]
	var hooks []func()
	if ok {
		hooks = append(hooks, buf.closeHooks...)
	}
	d.mu.Unlock()

	for _, h := range hooks {
		h()
	}
}
