package hostbridge

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
)

// EnvService covers the editor-glue collaborators spec.md §1 names as
// non-goals (clipboard, machine id, host version, graceful shutdown) but
// which the process still carries so it is a believable whole server.
// Grounded verbatim on the teacher's hostbridge.EnvService, minus its
// generated-protobuf request/response types: these methods are called
// directly by pkg/transport/ws's tool channel (through Ambient) rather than
// through generated service stubs (see DESIGN.md — github.com/cline/grpc-go
// is a dropped dependency, its codegen not available here).
type EnvService struct {
	verbose    bool
	shutdownCh chan struct{}
}

func NewEnvService(verbose bool, shutdownCh chan struct{}) *EnvService {
	return &EnvService{verbose: verbose, shutdownCh: shutdownCh}
}

func (s *EnvService) ClipboardWriteText(text string) error {
	if s.verbose {
		log.Printf("ClipboardWriteText called with text length: %d", len(text))
	}
	if err := clipboard.WriteAll(text); err != nil {
		if s.verbose {
			log.Printf("failed to write to clipboard: %v", err)
		}
		// Headless environments have no clipboard; not a hard failure.
		return nil
	}
	return nil
}

func (s *EnvService) ClipboardReadText() string {
	if s.verbose {
		log.Printf("ClipboardReadText called")
	}
	text, err := clipboard.ReadAll()
	if err != nil {
		if s.verbose {
			log.Printf("failed to read from clipboard: %v", err)
		}
		return ""
	}
	return text
}

func machineIDPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".cline-hostbridge", "machine-id"), nil
}

// GetMachineID returns a stable machine identifier for telemetry distinctId
// purposes, minted once and cached on disk.
func (s *EnvService) GetMachineID() string {
	idPath, err := machineIDPath()
	if err != nil {
		if s.verbose {
			log.Printf("failed to resolve machine id path: %v", err)
		}
		return ""
	}

	if data, err := os.ReadFile(idPath); err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id
		}
	}

	id := uuid.New().String()
	if err := os.MkdirAll(filepath.Dir(idPath), 0o755); err == nil {
		_ = os.WriteFile(idPath, []byte(id), 0o644)
	}
	return id
}

// GetHostVersion returns the host platform name and version.
func (s *EnvService) GetHostVersion() (platform, version string) {
	return "hostbridge", "dev"
}

// Shutdown requests a graceful shutdown of the whole process by closing the
// shared shutdown channel exactly once.
func (s *EnvService) Shutdown() {
	if s.verbose {
		log.Printf("shutdown requested via RPC")
	}
	select {
	case <-s.shutdownCh:
		// already closed
	default:
		close(s.shutdownCh)
	}
}
