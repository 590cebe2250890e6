package ws

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/gitdrive/internal/api/middleware"
	"github.com/GriffinCanCode/gitdrive/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/gitdrive/internal/vfs"
)

const (
	writeWait = 10 * time.Second
	opTimeout = 10 * time.Minute
)

// TreeOps is the part of the engine the stream drives.
type TreeOps interface {
	DeleteDirectory(ctx context.Context, dir string) error
	CopyDirectory(ctx context.Context, src, dst string) error
	RenameFile(ctx context.Context, p, newName string) (string, error)
	RenameFolder(ctx context.Context, dir, newName string) (string, error)
}

// Request is a message from the client.
type Request struct {
	ID      string `json:"id,omitempty"`
	Op      string `json:"op"`
	Path    string `json:"path"`
	NewName string `json:"new_name,omitempty"`
	Dst     string `json:"dst,omitempty"`
}

// Failure is one failed path of a partial result.
type Failure struct {
	Path  string `json:"path"`
	Op    string `json:"op"`
	Error string `json:"error"`
}

// Message is sent to the client.
type Message struct {
	Type      string    `json:"type"`
	ID        string    `json:"id,omitempty"`
	Op        string    `json:"op,omitempty"`
	Step      string    `json:"step,omitempty"`
	Path      string    `json:"path,omitempty"`
	Result    string    `json:"result,omitempty"`
	Message   string    `json:"message,omitempty"`
	Failures  []Failure `json:"failures,omitempty"`
	Timestamp int64     `json:"timestamp"`
}

// Handler manages WebSocket connections
type Handler struct {
	engine   TreeOps
	metrics  *monitoring.Metrics
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket handler. metrics may be nil. Browsers
// may only connect from allowedOrigins; clients that send no Origin header
// are not web pages and are always accepted.
func NewHandler(engine TreeOps, metrics *monitoring.Metrics, logger *zap.Logger, allowedOrigins []string) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		engine:  engine,
		metrics: metrics,
		logger:  logger.Named("ws"),
	}
	h.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if middleware.OriginAllowed(allowedOrigins, origin) {
				return true
			}
			h.logger.Warn("websocket origin rejected", zap.String("origin", origin))
			return false
		},
	}
	return h
}

// HandleConnection handles WebSocket upgrade and messages
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	reqCtx := c.Request.Context()
	h.send(conn, Message{Type: "system", Message: "connected"})

	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("websocket read ended", zap.Error(err))
			}
			return
		}
		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", req.Op)
		}

		if req.Op == "ping" {
			h.send(conn, Message{Type: "pong", ID: req.ID})
			continue
		}
		if err := h.run(reqCtx, conn, req); err != nil {
			return
		}
	}
}

// run executes one tree operation, forwarding every step as a progress
// message. It returns an error only when the connection is unusable.
func (h *Handler) run(parent context.Context, conn *websocket.Conn, req Request) error {
	ctx, cancel := context.WithTimeout(parent, opTimeout)
	defer cancel()

	var sendErr error
	ctx = vfs.WithObserver(ctx, func(ev vfs.Event) {
		if sendErr != nil {
			return
		}
		msg := Message{Type: "progress", ID: req.ID, Op: ev.Op, Step: ev.Step, Path: ev.Path}
		if ev.Err != nil {
			msg.Message = ev.Err.Error()
		}
		if sendErr = h.send(conn, msg); sendErr != nil {
			cancel()
		}
	})

	var (
		result string
		err    error
	)
	switch req.Op {
	case "delete_dir":
		err = h.engine.DeleteDirectory(ctx, req.Path)
		result = req.Path
	case "copy_dir":
		err = h.engine.CopyDirectory(ctx, req.Path, req.Dst)
		result = req.Dst
	case "rename_file":
		result, err = h.engine.RenameFile(ctx, req.Path, req.NewName)
	case "rename_dir":
		result, err = h.engine.RenameFolder(ctx, req.Path, req.NewName)
	default:
		return h.send(conn, Message{Type: "error", ID: req.ID, Op: req.Op, Message: "unknown op"})
	}
	if sendErr != nil {
		return sendErr
	}
	return h.send(conn, h.outcome(req, result, err))
}

func (h *Handler) outcome(req Request, result string, err error) Message {
	msg := Message{ID: req.ID, Op: req.Op, Path: req.Path, Result: result}

	var warn *vfs.DuplicateWarning
	switch {
	case err == nil:
		msg.Type = "complete"
	case errors.As(err, &warn):
		msg.Type = "warning"
		msg.Message = warn.Error()
		msg.Result = warn.New
		if agg, ok := vfs.AsAggregate(warn.Cause); ok {
			msg.Failures = failures(agg)
		}
	default:
		if agg, ok := vfs.AsAggregate(err); ok {
			msg.Type = "partial"
			msg.Failures = failures(agg)
		} else {
			msg.Type = "error"
		}
		msg.Result = ""
		msg.Message = err.Error()
		h.logger.Warn("stream operation failed",
			zap.String("op", req.Op),
			zap.String("path", req.Path),
			zap.Error(err),
		)
	}
	return msg
}

func failures(agg *vfs.AggregateError) []Failure {
	out := make([]Failure, len(agg.Failures))
	for i, f := range agg.Failures {
		out[i] = Failure{Path: f.Path, Op: f.Op, Error: f.Err.Error()}
	}
	return out
}

func (h *Handler) send(conn *websocket.Conn, msg Message) error {
	msg.Timestamp = time.Now().Unix()
	if h.metrics != nil {
		h.metrics.RecordWSMessage("out", msg.Type)
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(msg)
}
