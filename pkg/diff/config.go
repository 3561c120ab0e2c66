package diff

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// Options is the configuration contract spec §6 says shapes diff behavior.
// Loaded once at process start (see cmd/hostbridge) from a JSON file;
// stdlib encoding/json is the deliberate choice here (see DESIGN.md) since
// no component needs more than "parse a handful of named fields."
type Options struct {
	Layout                string `json:"layout"`
	OpenInNewTab           bool   `json:"open_in_new_tab"`
	KeepTerminalFocus      bool   `json:"keep_terminal_focus"`
	HideTerminalInNewTab   bool   `json:"hide_terminal_in_new_tab"`
	OnNewFileReject        string `json:"on_new_file_reject"`

	// Legacy keys (spec §9 open question), accepted for backward
	// compatibility. Where spec.md defines a mapping it is applied during
	// Load; the others are accepted-and-ignored, logged once.
	VerticalSplit      *bool `json:"vertical_split,omitempty"`
	OpenInCurrentTab   *bool `json:"open_in_current_tab,omitempty"`
	AutoCloseOnAccept  *bool `json:"auto_close_on_accept,omitempty"`
	ShowDiffStats      *bool `json:"show_diff_stats,omitempty"`
}

// DefaultOptions mirrors the values the teacher's equivalent config paths
// default new installs to: split view, reuse the current tab, keep focus on
// the editor.
func DefaultOptions() Options {
	return Options{
		Layout:               "vertical",
		OpenInNewTab:         false,
		KeepTerminalFocus:    false,
		HideTerminalInNewTab: false,
		OnNewFileReject:      "keep_empty",
	}
}

// LoadOptions parses raw JSON into Options, applies legacy-key mappings,
// fills unset fields from DefaultOptions, and validates the result.
func LoadOptions(raw []byte, logger *slog.Logger) (Options, error) {
	opts := DefaultOptions()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return Options{}, fmt.Errorf("parse diff options: %w", err)
		}
		// vertical_split only applies when layout was not given explicitly;
		// clear the defaulted layout so applyLegacyMappings can fill it in.
		var present struct {
			Layout *string `json:"layout"`
		}
		if err := json.Unmarshal(raw, &present); err == nil && present.Layout == nil && opts.VerticalSplit != nil {
			opts.Layout = ""
		}
	}
	applyLegacyMappings(&opts, logger)
	if err := opts.Validate(); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// applyLegacyMappings resolves the four legacy keys spec §9 names. Only
// vertical_split and open_in_current_tab have defined mappings; the other
// two are accepted but ignored, per the Open Question resolution in
// SPEC_FULL.md §9 (round-tripping a shared config file beats rejecting it).
func applyLegacyMappings(opts *Options, logger *slog.Logger) {
	if opts.VerticalSplit != nil && opts.Layout == "" {
		if *opts.VerticalSplit {
			opts.Layout = "vertical"
		} else {
			opts.Layout = "horizontal"
		}
	}
	if opts.OpenInCurrentTab != nil {
		opts.OpenInNewTab = !*opts.OpenInCurrentTab
	}
	if logger == nil {
		return
	}
	if opts.AutoCloseOnAccept != nil {
		logger.Info("diff option accepted but ignored", "key", "auto_close_on_accept")
	}
	if opts.ShowDiffStats != nil {
		logger.Info("diff option accepted but ignored", "key", "show_diff_stats")
	}
}

// Validate rejects unknown layout/reject-policy values at load time, per
// spec §7's UnsupportedRuntime-style validation-time rejection.
func (o Options) Validate() error {
	switch o.Layout {
	case "vertical", "horizontal", "inline":
	default:
		return fmt.Errorf("diff options: unknown layout %q", o.Layout)
	}
	switch o.OnNewFileReject {
	case "keep_empty", "close_window":
	default:
		return fmt.Errorf("diff options: unknown on_new_file_reject %q", o.OnNewFileReject)
	}
	return nil
}

// LayoutKind maps the configured layout string to the tagged-union kind
// used internally.
func (o Options) LayoutKind() LayoutKind {
	if o.Layout == "inline" {
		return LayoutInline
	}
	return LayoutSplit
}

// Orientation maps the configured layout string to a split orientation,
// meaningless when LayoutKind() is LayoutInline.
func (o Options) Orientation() Orientation {
	if o.Layout == "horizontal" {
		return OrientationHorizontal
	}
	return OrientationVertical
}

// RejectPolicy maps the configured string to NewFileRejectPolicy.
func (o Options) RejectPolicy() NewFileRejectPolicy {
	if o.OnNewFileReject == "close_window" {
		return CloseWindow
	}
	return KeepEmpty
}
