package hostbridge

import (
	"context"
	"fmt"
	"log"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// GrpcServer hosts the health check the assistant's discovery handshake
// probes (itself a non-goal, but it needs something real to probe). Grounded
// on the teacher's hostbridge.GrpcServer: same listener/register/Serve
// shape, same verbose log.Printf idiom. The teacher additionally registers
// WorkspaceService/WindowService/DiffService/EnvService as generated gRPC
// stubs from github.com/cline/grpc-go; that package's protobuf codegen is
// not available here, so this repo's window/env/diff surface rides the
// websocket tool channel instead (see pkg/transport/ws and DESIGN.md) and
// this server is left with exactly the one service the stdlib-adjacent
// grpc_health_v1 package ships pre-generated.
type GrpcServer struct {
	port    int
	verbose bool
	server  *grpc.Server
	lis     net.Listener
}

func NewGrpcServer(port int, verbose bool) *GrpcServer {
	return &GrpcServer{port: port, verbose: verbose}
}

// Listen binds the configured port (0 lets the OS assign one) so the actual
// port is known to the caller before Serve blocks. Must be called before
// Port; Serve calls it itself if it has not been called yet.
func (s *GrpcServer) Listen() error {
	lis, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", s.port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", s.port, err)
	}
	s.lis = lis
	s.port = lis.Addr().(*net.TCPAddr).Port
	return nil
}

// Port returns the bound port. Only meaningful after Listen.
func (s *GrpcServer) Port() int {
	return s.port
}

// Serve serves on the already-bound listener until ctx is cancelled, then
// gracefully stops. Start is a convenience that combines Listen and Serve
// for callers that don't need the bound port ahead of time.
func (s *GrpcServer) Serve(ctx context.Context) error {
	if s.lis == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.server = grpc.NewServer()

	healthServer := health.NewServer()
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	grpc_health_v1.RegisterHealthServer(s.server, healthServer)

	if s.verbose {
		log.Printf("registered HealthService")
	}

	errCh := make(chan error, 1)
	go func() {
		if s.verbose {
			log.Printf("gRPC server listening on 127.0.0.1:%d", s.port)
		}
		errCh <- s.server.Serve(s.lis)
	}()

	select {
	case <-ctx.Done():
		if s.verbose {
			log.Println("context cancelled, shutting down gRPC hostbridge server")
		}
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	}

	s.server.GracefulStop()
	if s.verbose {
		log.Println("gRPC hostbridge server stopped")
	}
	return nil
}

// Start binds and serves in one call, for callers that don't need the bound
// port before serving starts.
func (s *GrpcServer) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}
