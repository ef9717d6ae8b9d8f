package server

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	contractx "github.com/prasertk/shopassist/agent/contract"
	"github.com/prasertk/shopassist/agent/orchestrator"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin browser clients are expected; the REST surface is equally
	// open via CORS.
	CheckOrigin: func(*http.Request) bool { return true },
}

type wsInbound struct {
	Type      string                   `json:"type,omitempty"`
	Message   string                   `json:"message"`
	ImageData string                   `json:"image_data,omitempty"`
	Action    *contractx.PendingAction `json:"action,omitempty"`
	Confirmed bool                     `json:"confirmed,omitempty"`
}

type wsOutbound struct {
	Type              string                   `json:"type"`
	Content           string                   `json:"content,omitempty"`
	RequiresAction    bool                     `json:"requires_action,omitempty"`
	PendingAction     *contractx.PendingAction `json:"pending_action,omitempty"`
	SuggestedProducts []contractx.Product      `json:"suggested_products,omitempty"`
	ActionResult      *contractx.ActionResult  `json:"action_result,omitempty"`
	Error             string                   `json:"error,omitempty"`
}

// handleWebSocket runs the real-time chat loop for one session. Each inbound
// frame is either a chat message or an action confirmation; one outbound
// frame answers each.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.PathValue("session_id"))
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "session id is required")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log.Info().Str("session_id", sessionID).Msg("websocket connected")

	for {
		var in wsInbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket read failed")
			}
			return
		}

		var out wsOutbound
		if in.Type == "confirm" && in.Action != nil {
			out = s.confirmOverSocket(r, sessionID, in)
		} else {
			out = s.chatOverSocket(r, sessionID, in)
		}

		if err := conn.WriteJSON(out); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket write failed")
			return
		}
	}
}

func (s *Server) chatOverSocket(r *http.Request, sessionID string, in wsInbound) wsOutbound {
	lock := s.sessionLock(sessionID)
	lock.Lock()
	result, err := s.agent.ProcessTurn(r.Context(), orchestrator.TurnInput{
		SessionID: sessionID,
		Text:      in.Message,
		ImageData: in.ImageData,
	})
	lock.Unlock()
	if err != nil {
		return wsOutbound{Type: "error", Error: err.Error()}
	}

	return wsOutbound{
		Type:              "message",
		Content:           result.ResponseText,
		RequiresAction:    result.RequiresAction,
		PendingAction:     result.PendingAction,
		SuggestedProducts: result.SuggestedProducts,
	}
}

func (s *Server) confirmOverSocket(r *http.Request, sessionID string, in wsInbound) wsOutbound {
	action := *in.Action
	if action.SessionID == "" {
		action.SessionID = sessionID
	}

	lock := s.sessionLock(sessionID)
	lock.Lock()
	result := s.agent.ConfirmAction(r.Context(), action, in.Confirmed)
	lock.Unlock()

	return wsOutbound{Type: "action_result", ActionResult: &result}
}
