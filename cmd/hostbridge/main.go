package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/cline/hostbridge/pkg/banner"
	"github.com/cline/hostbridge/pkg/common"
	"github.com/cline/hostbridge/pkg/diff"
	"github.com/cline/hostbridge/pkg/hostbridge"
	"github.com/cline/hostbridge/pkg/transport/ws"
)

var (
	wsPort      int
	grpcPort    int
	verbose     bool
	optionsPath string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hostbridge",
		Short: "Editor-side integration server",
		Long:  "A local process that renders proposed file edits as an interactive diff and blocks the caller until the user accepts or rejects them.",
		RunE:  runServer,
	}

	rootCmd.Flags().IntVar(&wsPort, "ws-port", 51060, "port for the websocket tool channel")
	rootCmd.Flags().IntVar(&grpcPort, "grpc-port", 51052, "port for the gRPC health check")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.Flags().StringVar(&optionsPath, "options", "", "path to a diff options JSON file (defaults applied if absent)")

	rootCmd.AddCommand(instancesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func instancesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instances",
		Short: "List hostbridge processes discovered via the rendezvous directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			rendezvous, err := hostbridge.Discover()
			if err != nil {
				return fmt.Errorf("discover rendezvous files: %w", err)
			}
			if len(rendezvous) == 0 {
				fmt.Println("no hostbridge instances found")
				return nil
			}

			ctx := cmd.Context()
			for _, r := range rendezvous {
				grpcAddr, err := common.NormalizeAddressForGRPC(fmt.Sprintf("127.0.0.1:%d", r.GRPCPort))
				if err != nil {
					return fmt.Errorf("normalize grpc address: %w", err)
				}
				status, _ := common.PerformHealthCheck(ctx, grpcAddr)
				info := common.InstanceInfo{
					WebSocketAddress: fmt.Sprintf("127.0.0.1:%d", r.WebSocketPort),
					GRPCAddress:      grpcAddr,
					Status:           status,
					ProcessPID:       r.PID,
				}
				fmt.Printf("pid=%d ws=%s grpc=%s status=%s\n", info.ProcessPID, info.WebSocketAddress, info.GRPCAddress, info.StatusString())
			}
			return nil
		},
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))

	if wsPort != 0 && grpcPort != 0 && (!common.IsPortAvailable(wsPort) || !common.IsPortAvailable(grpcPort)) {
		var fallbackErr error
		wsPort, grpcPort, fallbackErr = common.FindAvailablePortPair()
		if fallbackErr != nil {
			return fmt.Errorf("requested ports unavailable and no fallback found: %w", fallbackErr)
		}
		logger.Warn("requested ports unavailable, falling back to OS-assigned ports", "ws_port", wsPort, "grpc_port", grpcPort)
	}

	opts := diff.DefaultOptions()
	if optionsPath != "" {
		raw, err := os.ReadFile(optionsPath)
		if err != nil {
			return fmt.Errorf("read options file: %w", err)
		}
		loaded, err := diff.LoadOptions(raw, logger)
		if err != nil {
			return fmt.Errorf("load options: %w", err)
		}
		opts = loaded
	}

	driver := diff.NewHeadlessDriver()
	registry := diff.NewRegistry()
	controller := diff.NewController(registry, driver, opts)

	shutdownCh := make(chan struct{})
	envService := hostbridge.NewEnvService(verbose, shutdownCh)
	windowService := hostbridge.NewWindowService(verbose, driver)
	ambient := hostbridge.NewAmbient(envService, windowService)

	toolServer := ws.NewServer(ws.ControllerRegistry{Controller: controller}, ambient, logger)

	engine := gin.New()
	engine.Use(gin.Recovery())
	toolServer.Mount(engine)

	wsListener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", wsPort))
	if err != nil {
		return fmt.Errorf("listen on ws port %d: %w", wsPort, err)
	}
	actualWSPort := wsListener.Addr().(*net.TCPAddr).Port

	httpServer := &http.Server{Handler: engine}
	go func() {
		if err := httpServer.Serve(wsListener); err != nil && err != http.ErrServerClosed {
			logger.Error("tool server error", "error", err)
		}
	}()

	grpcServer := hostbridge.NewGrpcServer(grpcPort, verbose)
	if err := grpcServer.Listen(); err != nil {
		return err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rendezvous, info, err := hostbridge.Publish(actualWSPort, grpcServer.Port())
	if err != nil {
		return fmt.Errorf("publish rendezvous file: %w", err)
	}
	defer rendezvous.Remove()

	fmt.Println(banner.Render(banner.Info{
		Version:       "0.1.0",
		WebSocketPort: info.WebSocketPort,
		GRPCPort:      info.GRPCPort,
		SessionToken:  info.SessionToken,
		Layout:        opts.Layout,
	}))

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			if verbose {
				log.Println("shutting down hostbridge: signal received")
			}
		case <-shutdownCh:
			if verbose {
				log.Println("shutting down hostbridge: shutdown tool invoked")
			}
		}
		cancel()
	}()

	grpcErr := grpcServer.Serve(ctx)

	controller.Shutdown()
	_ = httpServer.Close()

	return grpcErr
}
