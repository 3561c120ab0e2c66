package hostbridge

import (
	"testing"

	"github.com/cline/hostbridge/pkg/diff"
)

func TestWindowService_CurrentTabID_DelegatesToDriver(t *testing.T) {
	driver := diff.NewHeadlessDriver()
	svc := NewWindowService(false, driver)

	if got, want := svc.CurrentTabID(), driver.CurrentTabID(); got != want {
		t.Fatalf("CurrentTabID() = %d, want %d", got, want)
	}
}

func TestWindowService_GetActiveEditor_NoWindowsYet(t *testing.T) {
	driver := diff.NewHeadlessDriver()
	svc := NewWindowService(false, driver)

	if _, ok := svc.GetActiveEditor(); ok {
		t.Fatalf("expected no active editor on a fresh driver")
	}
}
