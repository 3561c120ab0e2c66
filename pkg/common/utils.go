package common

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ParseHostPort parses a host:port address and returns the host and port
// separately.
func ParseHostPort(address string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(address)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// IsLocalAddress reports whether host is localhost or a loopback IP.
func IsLocalAddress(host string) bool {
	if host == "localhost" {
		return true
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return false
}

// PerformHealthCheck performs a gRPC health check on the given address.
// Returns UNKNOWN if the service is unreachable.
func PerformHealthCheck(ctx context.Context, address string) (grpc_health_v1.HealthCheckResponse_ServingStatus, error) {
	conn, err := grpc.DialContext(ctx, address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	defer conn.Close()

	healthClient := grpc_health_v1.NewHealthClient(conn)
	resp, err := healthClient.Check(ctx, &grpc_health_v1.HealthCheckRequest{})
	if err != nil {
		return grpc_health_v1.HealthCheckResponse_UNKNOWN, err
	}
	return resp.Status, nil
}

// IsInstanceHealthy reports whether address answers its health check with
// SERVING.
func IsInstanceHealthy(ctx context.Context, address string) bool {
	status, err := PerformHealthCheck(ctx, address)
	return err == nil && status == grpc_health_v1.HealthCheckResponse_SERVING
}

// IsPortAvailable checks if a port is available for binding.
func IsPortAvailable(port int) bool {
	address := fmt.Sprintf("localhost:%d", port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}

// FindAvailablePortPair finds two available ports by letting the OS
// allocate them.
func FindAvailablePortPair() (wsPort, grpcPort int, err error) {
	wsListener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, 0, err
	}
	defer wsListener.Close()

	grpcListener, err := net.Listen("tcp", ":0")
	if err != nil {
		return 0, 0, err
	}
	defer grpcListener.Close()

	wsPort = wsListener.Addr().(*net.TCPAddr).Port
	grpcPort = grpcListener.Addr().(*net.TCPAddr).Port
	return wsPort, grpcPort, nil
}

// NormalizeAddressForGRPC converts address to host:port for a gRPC client,
// normalizing local addresses to localhost.
func NormalizeAddressForGRPC(address string) (string, error) {
	host, port, err := ParseHostPort(address)
	if err != nil {
		return "", err
	}
	if IsLocalAddress(host) {
		return fmt.Sprintf("localhost:%d", port), nil
	}
	return address, nil
}
