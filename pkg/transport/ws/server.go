// Package ws carries the diff tool surface (openDiff, closeTab,
// closeAllDiffTabs) over a single websocket connection per assistant
// session, the one transport the diff core actually depends on. Grounded on
// jinterlante1206/AleutianLocal's orchestrator websocket handler: a
// gorilla/websocket upgrade behind gin, one goroutine per connection running
// a ReadJSON/WriteJSON loop, log/slog throughout.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/cline/hostbridge/pkg/diff"
)

// ToolRegistry is the seam between the transport and the diff core. Named
// for spec's "ToolRegistry" component: the thing that knows how to route a
// named tool call to its handler.
type ToolRegistry interface {
	OpenDiff(ctx context.Context, req diff.Request) (diff.Result, error)
	CloseTab(tabName string)
	CloseAllDiffTabs() int
}

// AmbientRegistry carries the editor-glue collaborators spec.md §1 calls a
// non-goal (clipboard, machine id, shutdown, console messages). These ride
// the same tool channel as the diff tools rather than a second protobuf
// service, since github.com/cline/grpc-go's generated stubs for them are
// not available here (see DESIGN.md).
type AmbientRegistry interface {
	ClipboardReadText() string
	ClipboardWriteText(text string) error
	GetMachineID() string
	ShowMessage(message string)
	Shutdown()
}

// ControllerRegistry adapts a *diff.Controller to ToolRegistry: the
// controller's blocking entry point is named OpenDiffBlocking because it is
// also called directly by tests, but the websocket
// wire name for the same RPC is openDiff.
type ControllerRegistry struct {
	Controller *diff.Controller
}

func (r ControllerRegistry) OpenDiff(ctx context.Context, req diff.Request) (diff.Result, error) {
	return r.Controller.OpenDiffBlocking(diff.WithSuspendable(ctx), req)
}

func (r ControllerRegistry) CloseTab(tabName string) {
	r.Controller.CloseTab(tabName)
}

func (r ControllerRegistry) CloseAllDiffTabs() int {
	return r.Controller.CloseAllDiffTabs()
}

// toolFrame is one inbound RPC call: {id, tool, params}.
type toolFrame struct {
	ID     string          `json:"id"`
	Tool   string          `json:"tool"`
	Params json.RawMessage `json:"params"`
}

// toolReply is the outbound {id, result} or {id, error} envelope.
type toolReply struct {
	ID     string            `json:"id"`
	Result json.RawMessage   `json:"result,omitempty"`
	Error  *diff.RPCEnvelope `json:"error,omitempty"`
}

type openDiffParams struct {
	OldFilePath     string `json:"old_file_path"`
	NewFilePath     string `json:"new_file_path"`
	NewFileContents string `json:"new_file_contents"`
	TabName         string `json:"tab_name"`
}

type closeTabParams struct {
	TabName string `json:"tab_name"`
}

type clipboardWriteParams struct {
	Text string `json:"text"`
}

type showMessageParams struct {
	Message string `json:"message"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Single local assistant process on localhost; no browser origin to
		// police, matching the teacher's permissive local-tool upgrader.
		return true
	},
	ReadBufferSize:  1 << 16,
	WriteBufferSize: 1 << 16,
}

// Server exposes ToolRegistry over a websocket JSON-RPC endpoint mounted on
// a gin engine.
type Server struct {
	Registry ToolRegistry
	Ambient  AmbientRegistry
	Logger   *slog.Logger
}

func NewServer(registry ToolRegistry, ambient AmbientRegistry, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{Registry: registry, Ambient: ambient, Logger: logger}
}

// Mount registers the /tools websocket route on engine.
func (s *Server) Mount(engine *gin.Engine) {
	engine.GET("/tools", s.handleUpgrade)
}

func (s *Server) handleUpgrade(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	s.Logger.Info("tool client connected", "remote", c.Request.RemoteAddr)

	// writes must be serialized: openDiff replies arrive from their own
	// goroutine, concurrently with closeTab/closeAllDiffTabs replies on the
	// main read loop.
	var writeMu chan struct{} = make(chan struct{}, 1)
	writeMu <- struct{}{}
	send := func(reply toolReply) {
		<-writeMu
		defer func() { writeMu <- struct{}{} }()
		if err := conn.WriteJSON(reply); err != nil {
			s.Logger.Warn("failed to write tool reply", "error", err)
		}
	}

	for {
		var frame toolFrame
		if err := conn.ReadJSON(&frame); err != nil {
			s.Logger.Info("tool client disconnected", "error", err)
			return
		}
		s.dispatch(c.Request.Context(), frame, send)
	}
}

func (s *Server) dispatch(ctx context.Context, frame toolFrame, send func(toolReply)) {
	switch frame.Tool {
	case "openDiff":
		// openDiff blocks until the user resolves the diff; run it off the
		// read loop so closeTab/closeAllDiffTabs on the same connection are
		// never stalled behind a pending diff.
		go func() {
			var params openDiffParams
			if err := json.Unmarshal(frame.Params, &params); err != nil {
				send(errorReply(frame.ID, diff.WrapError(diff.KindSetupFailed, "invalid openDiff params", err)))
				return
			}
			result, err := s.Registry.OpenDiff(ctx, diff.Request{
				OldFilePath:     params.OldFilePath,
				NewFilePath:     params.NewFilePath,
				NewFileContents: params.NewFileContents,
				TabName:         params.TabName,
			})
			if err != nil {
				send(errorReply(frame.ID, err))
				return
			}
			send(resultReply(frame.ID, result.ToContentReply()))
		}()

	case "closeTab":
		var params closeTabParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			send(errorReply(frame.ID, diff.WrapError(diff.KindSetupFailed, "invalid closeTab params", err)))
			return
		}
		s.Registry.CloseTab(params.TabName)
		send(resultReply(frame.ID, map[string]bool{"ok": true}))

	case "closeAllDiffTabs":
		count := s.Registry.CloseAllDiffTabs()
		send(resultReply(frame.ID, diff.ClosedDiffTabsReply(count)))

	case "clipboardReadText":
		send(resultReply(frame.ID, map[string]string{"value": s.Ambient.ClipboardReadText()}))

	case "clipboardWriteText":
		var params clipboardWriteParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			send(errorReply(frame.ID, diff.WrapError(diff.KindSetupFailed, "invalid clipboardWriteText params", err)))
			return
		}
		_ = s.Ambient.ClipboardWriteText(params.Text)
		send(resultReply(frame.ID, map[string]bool{"ok": true}))

	case "getMachineId":
		send(resultReply(frame.ID, map[string]string{"value": s.Ambient.GetMachineID()}))

	case "showMessage":
		var params showMessageParams
		if err := json.Unmarshal(frame.Params, &params); err != nil {
			send(errorReply(frame.ID, diff.WrapError(diff.KindSetupFailed, "invalid showMessage params", err)))
			return
		}
		s.Ambient.ShowMessage(params.Message)
		send(resultReply(frame.ID, map[string]bool{"ok": true}))

	case "shutdown":
		s.Ambient.Shutdown()
		send(resultReply(frame.ID, map[string]bool{"ok": true}))

	default:
		send(errorReply(frame.ID, diff.NewError(diff.KindSetupFailed, fmt.Sprintf("unknown tool %q", frame.Tool))))
	}
}

func resultReply(id string, v interface{}) toolReply {
	data, err := json.Marshal(v)
	if err != nil {
		return errorReply(id, diff.WrapError(diff.KindSetupFailed, "marshal tool result", err))
	}
	return toolReply{ID: id, Result: data}
}

func errorReply(id string, err error) toolReply {
	env := diff.ToRPCEnvelope(err)
	return toolReply{ID: id, Error: &env}
}
