package websocket

import (
	"github.com/aitrainer/trainer-backend/internal/model"
	"github.com/aitrainer/trainer-backend/internal/response"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer      Action = "answer"
	ActionDraft       Action = "draft"
	ActionClear       Action = "clear"
	ActionNext        Action = "next"
	ActionPrev        Action = "prev"
	ActionJump        Action = "jump"
	ActionFlag        Action = "flag"
	ActionFlagNext    Action = "flag_next"
	ActionAcknowledge Action = "acknowledge"
	ActionSubmit      Action = "submit"
	ActionPing        Action = "ping"
)

// RequestPayload is every client message. Fields are read per action:
// answer and draft use Answer, jump uses Index, submit uses Confirm.
type RequestPayload struct {
	Action  Action       `json:"action"`
	Answer  model.Answer `json:"answer"`
	Index   *int         `json:"index,omitempty"`
	Confirm bool         `json:"confirm,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventState     Event = "state"
	EventTick      Event = "tick"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// StateResponse carries the full exam view after a change.
type StateResponse struct {
	Event Event `json:"event"`
	State any   `json:"state"`
}

// TickResponse carries the remaining time.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// SubmittedResponse carries the final result. Auto is set when the clock
// ran out.
type SubmittedResponse struct {
	Event  Event `json:"event"`
	Auto   bool  `json:"auto"`
	Result any   `json:"result"`
}

type ErrorResponse struct {
	Event   Event            `json:"event"`
	Code    response.ErrCode `json:"code"`
	Message string           `json:"message"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
