package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/timisisipi/oposai-backend/internal/middleware"
	"github.com/timisisipi/oposai-backend/internal/model"
	"github.com/timisisipi/oposai-backend/internal/session"
	ws "github.com/timisisipi/oposai-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams a live attempt session over WebSocket: session events
// (ticks, phase changes, saved answers, explanations) flow out and session
// actions flow in on the same connection.
type WSHandler struct {
	registry *session.Registry
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(registry *session.Registry, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry: registry,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// wsConn serializes writes. The event forwarder and the read loop both
// write to the same connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return ws.WriteTyped(w.conn, v)
}

func (w *wsConn) writeError(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws.WriteError(w.conn, msg)
}

// AttemptStream godoc
// WS /ws/v1/attempts/stream
// Upgrades to WebSocket and attaches to the caller's session controller.
func (h *WSHandler) AttemptStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctrl := h.registry.Obtain(claims.UserID)
	sink := &wsConn{conn: conn}

	wsLog := h.log.With().
		Str("user_id", claims.UserID.String()).
		Logger()
	wsLog.Info().Msg("Session stream connected")

	events, cancel := ctrl.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if err := sink.write(ev); err != nil {
				return
			}
		}
	}()

	for {
		var env ws.RequestEnvelope
		raw, err := ws.ReadRaw(conn, &env)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		switch env.Action {
		case ws.ActionAnswer:
			h.handleAnswer(sink, ctrl, raw)
		case ws.ActionMark:
			h.handleMark(sink, ctrl, raw)
		case ws.ActionNavigate:
			h.handleNavigate(sink, ctrl, raw)
		case ws.ActionFinish:
			h.handleFinish(sink, ctrl, raw)
		case ws.ActionKey:
			h.handleKey(sink, ctrl, raw)
		case ws.ActionPing:
			sink.write(ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(env.Action)).Msg("Unknown action")
			sink.writeError("unknown action: " + string(env.Action))
		}
	}

	cancel()
	<-done
}

func (h *WSHandler) handleAnswer(sink *wsConn, ctrl *session.Controller, raw []byte) {
	var msg ws.AnswerRequest
	if err := ws.DecodeRaw(raw, &msg); err != nil {
		sink.writeError("invalid answer payload")
		return
	}
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		sink.writeError("invalid question_id format")
		return
	}
	label, err := model.ParseOptionLabel(msg.Label)
	if err != nil {
		sink.writeError("invalid label")
		return
	}
	if err := ctrl.Choose(questionID, label); err != nil {
		sink.writeError(err.Error())
	}
}

func (h *WSHandler) handleMark(sink *wsConn, ctrl *session.Controller, raw []byte) {
	var msg ws.MarkRequest
	if err := ws.DecodeRaw(raw, &msg); err != nil {
		sink.writeError("invalid mark payload")
		return
	}
	questionID, err := uuid.Parse(msg.QuestionID)
	if err != nil {
		sink.writeError("invalid question_id format")
		return
	}
	if err := ctrl.ToggleMark(questionID); err != nil {
		sink.writeError(err.Error())
	}
}

func (h *WSHandler) handleNavigate(sink *wsConn, ctrl *session.Controller, raw []byte) {
	var msg ws.NavigateRequest
	if err := ws.DecodeRaw(raw, &msg); err != nil {
		sink.writeError("invalid navigate payload")
		return
	}
	var err error
	switch {
	case msg.Index != nil:
		err = ctrl.JumpTo(*msg.Index)
	case msg.Direction != nil:
		err = ctrl.Advance(*msg.Direction)
	default:
		sink.writeError("direction or index is required")
		return
	}
	if err != nil {
		sink.writeError(err.Error())
	}
}

func (h *WSHandler) handleFinish(sink *wsConn, ctrl *session.Controller, raw []byte) {
	var msg ws.FinishRequest
	if err := ws.DecodeRaw(raw, &msg); err != nil {
		sink.writeError("invalid finish payload")
		return
	}
	if _, err := ctrl.Finish(context.Background(), msg.ConfirmIncomplete); err != nil {
		if errors.Is(err, session.ErrIncomplete) {
			sink.writeError("attempt incomplete: confirm_incomplete required")
			return
		}
		sink.writeError(err.Error())
	}
	// The finished result reaches the client through the session feed.
}

func (h *WSHandler) handleKey(sink *wsConn, ctrl *session.Controller, raw []byte) {
	var msg ws.KeyRequest
	if err := ws.DecodeRaw(raw, &msg); err != nil {
		sink.writeError("invalid key payload")
		return
	}
	if err := ctrl.HandleKey(context.Background(), msg.Key); err != nil {
		sink.writeError(err.Error())
	}
}
