package hostbridge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// RendezvousInfo is the JSON lock file a running process advertises itself
// with, so the assistant side can discover an already-running bridge
// without a central registry. Analogous in purpose to the teacher's
// pkg/cli/sqlite.LockManager (a per-user SQLite database of live instances
// and their addresses), but existence-checking a single process's ports
// needs no queryable lock table, so this is a plain JSON file under the OS
// temp dir instead of a SQL driver dependency (see DESIGN.md).
type RendezvousInfo struct {
	PID          int    `json:"pid"`
	WebSocketPort int   `json:"ws_port"`
	GRPCPort     int    `json:"grpc_port"`
	SessionToken string `json:"session_token"`
}

// Rendezvous manages the lifecycle of one process's rendezvous file.
type Rendezvous struct {
	path string
}

func rendezvousDir() (string, error) {
	dir := filepath.Join(os.TempDir(), "cline-hostbridge")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create rendezvous directory: %w", err)
	}
	return dir, nil
}

// Publish writes a rendezvous file naming this process's ports, returning a
// handle whose Remove method must be called on clean shutdown.
func Publish(wsPort, grpcPort int) (*Rendezvous, RendezvousInfo, error) {
	dir, err := rendezvousDir()
	if err != nil {
		return nil, RendezvousInfo{}, err
	}

	info := RendezvousInfo{
		PID:           os.Getpid(),
		WebSocketPort: wsPort,
		GRPCPort:      grpcPort,
		SessionToken:  uuid.New().String(),
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.json", info.PID))
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, RendezvousInfo{}, fmt.Errorf("marshal rendezvous info: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, RendezvousInfo{}, fmt.Errorf("write rendezvous file: %w", err)
	}

	return &Rendezvous{path: path}, info, nil
}

// Remove deletes the rendezvous file. Safe to call more than once.
func (r *Rendezvous) Remove() {
	if r == nil {
		return
	}
	_ = os.Remove(r.path)
}

// Discover reads every parsable rendezvous file in the shared directory.
// It does not check whether a file's pid is still running and removes
// nothing — cleanup is the owning process's job on exit, so a crashed
// process leaves a stale file that Discover returns like any other. The
// instances command probes each returned entry's health to tell live
// bridges from stale ones.
func Discover() ([]RendezvousInfo, error) {
	dir, err := rendezvousDir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rendezvous directory: %w", err)
	}

	var infos []RendezvousInfo
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		var info RendezvousInfo
		if err := json.Unmarshal(data, &info); err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}
