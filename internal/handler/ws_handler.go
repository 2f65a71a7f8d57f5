package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/aitrainer/trainer-backend/internal/exam"
	"github.com/aitrainer/trainer-backend/internal/middleware"
	"github.com/aitrainer/trainer-backend/internal/response"
	"github.com/aitrainer/trainer-backend/internal/service"
	ws "github.com/aitrainer/trainer-backend/internal/websocket"
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

// WSHandler streams the running mock exam: countdown ticks and the final
// result go out, navigation and answers come in.
type WSHandler struct {
	examService *service.ExamService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(examService *service.ExamService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		examService: examService,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// ExamWebSocketStream godoc
// WS /ws/v1/exam/stream?token=...
// Upgrades to WebSocket for the user's running exam. The exam must have been
// started through POST /api/v1/exam/start.
func (h *WSHandler) ExamWebSocketStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	conn := ws.Wrap(raw)
	defer conn.Close()

	sess, err := h.examService.Active(claims.UserID)
	if err != nil {
		_, code := classify(err)
		conn.WriteError(code)
		return
	}

	wsLog := h.log.With().
		Str("user_id", claims.UserID).
		Str("session_id", sess.ID()).
		Logger()
	wsLog.Info().Msg("Exam stream connected")

	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.forward(ctx, conn, events, cancel)

	conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: sess.View()})

	for {
		var msg ws.RequestPayload
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		if msg.Action == ws.ActionPing {
			conn.WriteTyped(ws.PongResponse{Event: ws.EventPong})
			continue
		}

		if msg.Action == ws.ActionSubmit {
			// The submitted event reaches the client through forward, which
			// cancels ctx; persistence must outlive it.
			if _, err := sess.Submit(context.WithoutCancel(ctx), exam.SubmitOptions{Confirmed: msg.Confirm}); err != nil {
				_, code := classify(err)
				conn.WriteError(code)
			}
			continue
		}

		op, ok := examAction(msg)
		if !ok {
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			conn.WriteError(response.ErrInvalidPayload)
			continue
		}
		if err := op(sess); err != nil {
			_, code := classify(err)
			conn.WriteError(code)
			continue
		}
		h.examService.Save(ctx, sess)
		conn.WriteTyped(ws.StateResponse{Event: ws.EventState, State: sess.View()})
	}
}

// forward relays session events until the exam is submitted or ctx ends.
// On submission it closes the stream.
func (h *WSHandler) forward(ctx context.Context, conn *ws.Conn, events <-chan exam.Event, done context.CancelFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case exam.EventTick:
				conn.WriteTyped(ws.TickResponse{Event: ws.EventTick, RemainingSeconds: ev.Remaining})
			case exam.EventSubmitted:
				conn.WriteTyped(ws.SubmittedResponse{
					Event:  ws.EventSubmitted,
					Auto:   ev.Result.AutoSubmitted,
					Result: service.NewExamResultView(ev.Result),
				})
				done()
				conn.Close()
				return
			}
		}
	}
}

// examAction maps a client message to a session operation.
func examAction(msg ws.RequestPayload) (func(*exam.Session) error, bool) {
	switch msg.Action {
	case ws.ActionAnswer:
		return func(s *exam.Session) error { return s.Answer(msg.Answer) }, true
	case ws.ActionDraft:
		return func(s *exam.Session) error { return s.Draft(msg.Answer) }, true
	case ws.ActionClear:
		return (*exam.Session).ClearAnswer, true
	case ws.ActionNext:
		return (*exam.Session).Next, true
	case ws.ActionPrev:
		return (*exam.Session).Prev, true
	case ws.ActionJump:
		if msg.Index == nil {
			return func(*exam.Session) error { return exam.ErrIndexOutOfRange }, true
		}
		index := *msg.Index
		return func(s *exam.Session) error { return s.Jump(index) }, true
	case ws.ActionFlag:
		return func(s *exam.Session) error {
			_, err := s.ToggleFlag()
			return err
		}, true
	case ws.ActionFlagNext:
		return (*exam.Session).FlagAndNext, true
	case ws.ActionAcknowledge:
		return (*exam.Session).AcknowledgeSection, true
	}
	return nil, false
}
