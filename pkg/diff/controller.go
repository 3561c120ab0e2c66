package diff

import (
	"context"
	"fmt"
	"os"
	"time"
)

// DefaultReloadDelay is the heuristic post-accept buffer-reload delay from
// spec §5 ordering guarantee 3 / §9 open question: "the correct bound is
// unspecified." Kept as a named, overridable constant rather than a
// filesystem-change observer (see SPEC_FULL.md §9).
const DefaultReloadDelay = 100 * time.Millisecond

// suspendableKey marks a context as safe to block in. A context.Context
// without this marker (or with it explicitly set to false) models spec
// §4.6's "execution context that cannot suspend": OpenDiffBlocking must be
// invoked from a goroutine where blocking is actually expected, not from
// inside a UI hook callback or other non-suspendable entry point.
type suspendableKey struct{}

// WithSuspendable marks ctx as a context OpenDiffBlocking may run in.
func WithSuspendable(ctx context.Context) context.Context {
	return context.WithValue(ctx, suspendableKey{}, true)
}

func isSuspendable(ctx context.Context) bool {
	v, _ := ctx.Value(suspendableKey{}).(bool)
	return v
}

// Controller is the entry point for a diff request (spec §4.1).
type Controller struct {
	Registry    *Registry
	Driver      EditorDriver
	Options     Options
	ReloadDelay time.Duration
}

func NewController(registry *Registry, driver EditorDriver, opts Options) *Controller {
	return &Controller{
		Registry:    registry,
		Driver:      driver,
		Options:     opts,
		ReloadDelay: DefaultReloadDelay,
	}
}

// OpenDiffBlocking implements spec §4.1: it validates, lays out, registers,
// and then blocks until the user accepts or rejects, returning the result
// as the RPC reply. ctx must have been produced by WithSuspendable.
func (c *Controller) OpenDiffBlocking(ctx context.Context, req Request) (Result, error) {
	if !isSuspendable(ctx) {
		return Result{}, WrapError(KindInternalError, "OpenDiffBlocking requires a suspendable context", ErrMustRunSuspendable)
	}

	// Step 1: replacement.
	c.Registry.replaceIfPresent(c.Driver, req.TabName)

	// Step 2: precondition check.
	if fileExists(req.OldFilePath) && c.Driver.FileIsOpenWithUnsavedChanges(req.OldFilePath) {
		return Result{}, NewError(KindUnsavedChanges, fmt.Sprintf("%s has unsaved changes", req.OldFilePath))
	}

	isNewFile := !fileExists(req.OldFilePath)
	engine := &layoutEngine{driver: c.Driver}

	// Step 3: layout selection.
	var state *State
	var err error
	switch c.Options.LayoutKind() {
	case LayoutInline:
		oldContent := ""
		if !isNewFile {
			data, readErr := os.ReadFile(req.OldFilePath)
			if readErr != nil {
				return Result{}, WrapError(KindSetupFailed, "read original file", readErr)
			}
			oldContent = string(data)
		}
		state, err = engine.buildInline(c.Options, req, isNewFile, oldContent)
	default:
		state, err = engine.buildSplit(c.Options, req, isNewFile)
	}
	if err != nil {
		return Result{}, err
	}

	// Step 8: install hooks.
	installHooks(c.Driver, c.Registry, state)

	// Step 9: register.
	c.Registry.Register(state)

	// Step 10: suspend until resolved.
	result := awaitResume(state.resumer)
	return result, nil
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// CloseTab implements spec §4.7's closeTab RPC.
func (c *Controller) CloseTab(tabName string) {
	state, ok := c.Registry.Get(tabName)
	if !ok {
		return
	}

	switch state.Status {
	case StatusSaved:
		path := state.OldFilePath
		c.Driver.ScheduleReload(path, DurationMillis(c.ReloadDelay.Milliseconds()))
		c.Registry.Cleanup(c.Driver, tabName, "closeTab after save")
	case StatusRejected:
		c.Registry.Cleanup(c.Driver, tabName, "closeTab after reject")
	default: // still pending
		c.Registry.ResolveRejected(tabName)
		c.Registry.Cleanup(c.Driver, tabName, "closeTab while pending")
	}
}

// CloseAllDiffTabs implements spec §4.7's closeAllDiffTabs RPC. It returns
// the number of diffs closed.
func (c *Controller) CloseAllDiffTabs() int {
	c.Registry.mu.Lock()
	names := make([]string, 0, len(c.Registry.diffs))
	for name := range c.Registry.diffs {
		names = append(names, name)
	}
	c.Registry.mu.Unlock()

	for _, name := range names {
		c.Registry.ResolveRejected(name)
		c.Registry.Cleanup(c.Driver, name, "closeAllDiffTabs")
	}
	return len(names)
}

// Shutdown implements spec §5 ordering guarantee 4: force-reject and tear
// down every still-live diff before process exit.
func (c *Controller) Shutdown() {
	c.Registry.CleanupAll(c.Driver, "shutdown")
}

// AcceptCurrentDiff implements the "accept current diff" editor command
// (spec §4.5, §6): it reads the diff_tab_name tag off whichever buffer
// currently has focus, instead of taking an explicit tab name, and resolves
// that diff exactly as the buffer-write hook installed by installHooks
// would.
func (c *Controller) AcceptCurrentDiff() error {
	tabName, _, ok := c.Driver.CurrentBufferTag()
	if !ok {
		return NewError(KindSetupFailed, "no diff buffer is focused")
	}
	state, ok := c.Registry.Get(tabName)
	if !ok {
		return NewError(KindSetupFailed, fmt.Sprintf("no live diff for tab %q", tabName))
	}
	c.Registry.ResolveSaved(c.Driver, tabName, state.ProposedBufferID)
	return nil
}

// RejectCurrentDiff implements the "reject current diff" editor command
// (spec §4.5, §6), symmetric to AcceptCurrentDiff.
func (c *Controller) RejectCurrentDiff() error {
	tabName, _, ok := c.Driver.CurrentBufferTag()
	if !ok {
		return NewError(KindSetupFailed, "no diff buffer is focused")
	}
	state, ok := c.Registry.Get(tabName)
	if !ok {
		return NewError(KindSetupFailed, fmt.Sprintf("no live diff for tab %q", tabName))
	}
	c.Registry.ResolveRejected(tabName)
	maybeEagerCleanupOnNewFileReject(c.Driver, c.Registry, state)
	return nil
}
