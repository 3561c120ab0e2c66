package common

import (
	"time"

	"google.golang.org/grpc/health/grpc_health_v1"
)

// InstanceInfo describes a discovered hostbridge process, keyed by its
// rendezvous file (see pkg/hostbridge.RendezvousInfo). Kept separate from
// RendezvousInfo because this one additionally carries liveness state an
// external client computed by probing the process, not anything the
// process itself publishes.
type InstanceInfo struct {
	WebSocketAddress string                                           `json:"ws_address"`
	GRPCAddress      string                                           `json:"grpc_address"`
	Status           grpc_health_v1.HealthCheckResponse_ServingStatus `json:"status"`
	LastSeen         time.Time                                        `json:"last_seen"`
	ProcessPID       int                                              `json:"process_pid,omitempty"`
}

func (i *InstanceInfo) GRPCPort() int {
	_, port, _ := ParseHostPort(i.GRPCAddress)
	return port
}

func (i *InstanceInfo) StatusString() string {
	return i.Status.String()
}
