package hostbridge

import (
	"fmt"
	"log"

	"github.com/cline/hostbridge/pkg/diff"
)

// WindowService exposes read-only introspection and simple console
// notifications over the driver backing the diff core, for the general
// editor glue spec.md §1 calls a non-goal collaborator. Grounded on the
// teacher's hostbridge.WindowService, minus its generated-protobuf
// request/response types (see DESIGN.md): a console implementation that
// logs what a real editor would do, same as the teacher's own stance.
type WindowService struct {
	verbose bool
	driver  diff.EditorDriver
}

func NewWindowService(verbose bool, driver diff.EditorDriver) *WindowService {
	return &WindowService{verbose: verbose, driver: driver}
}

// ShowMessage displays a message to the user. In this console-backed
// process that means stdout, mirroring the teacher's behavior verbatim.
func (s *WindowService) ShowMessage(message string) {
	if s.verbose {
		log.Printf("ShowMessage called: %s", message)
	}
	fmt.Printf("[hostbridge] %s\n", message)
}

// GetActiveEditor reports the driver's main editor window id, if any.
func (s *WindowService) GetActiveEditor() (winID int, ok bool) {
	if s.verbose {
		log.Printf("GetActiveEditor called")
	}
	return s.driver.MainEditorWindow()
}

// CurrentTabID reports the id of the driver's current tab. Other open tabs
// are not listed.
func (s *WindowService) CurrentTabID() int {
	if s.verbose {
		log.Printf("CurrentTabID called")
	}
	return s.driver.CurrentTabID()
}
