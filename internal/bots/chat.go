package bots

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/echo-agent/internal/activity"
)

// chatTurnTimeout bounds a single turn on a chat connection.
const chatTurnTimeout = 60 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: localOrigin,
}

// localOrigin admits non-browser clients (no Origin header) and pages served
// from the local machine.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// chatError is written back when a frame cannot be processed.
type chatError struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// ChatHandler is a local development channel: every websocket frame is an
// activity and every reply is written back as an activity frame.
type ChatHandler struct {
	gateway *Gateway
}

// NewChatHandler creates a new websocket chat handler.
func NewChatHandler(gateway *Gateway) *ChatHandler {
	return &ChatHandler{gateway: gateway}
}

// HandleWebSocket serves one chat connection (HTTP GET, upgraded).
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("chat: websocket upgrade")
		return
	}
	defer conn.Close()

	sess := &chatSession{conn: conn, conversationID: uuid.New().String()}
	log.Debug().Str("conversation", sess.conversationID).Msg("chat: connection opened")

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("chat: websocket read")
			}
			return
		}

		var a activity.Activity
		if err := json.Unmarshal(msg, &a); err != nil {
			sess.writeError("invalid activity")
			continue
		}
		sess.fill(&a)

		if err := h.processFrame(r.Context(), &a, sess); err != nil {
			log.Error().Err(err).Str("conversation", a.Conversation.ID).Msg("chat: processing activity")
			sess.writeError("processing error")
		}
	}
}

// processFrame runs one turn with its own deadline. The connection outlives
// any deadline placed on the upgrade request.
func (h *ChatHandler) processFrame(parent context.Context, a *activity.Activity, sess *chatSession) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), chatTurnTimeout)
	defer cancel()
	return h.gateway.Process(ctx, a, sess)
}

// chatSession is one websocket connection; it is the turn's Sender.
type chatSession struct {
	mu             sync.Mutex
	conn           *websocket.Conn
	conversationID string
}

// fill completes the addressing fields the Teams channel service would set.
func (s *chatSession) fill(a *activity.Activity) {
	if a.Type == "" {
		a.Type = activity.TypeMessage
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Timestamp == "" {
		a.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	a.ChannelID = ChannelWebSocket
	a.ServiceURL = ""
	if a.Conversation.ID == "" {
		a.Conversation.ID = s.conversationID
	}
	if a.From.ID == "" {
		a.From.ID = ChatUserID
	}
	if a.Recipient.ID == "" {
		a.Recipient.ID = ChatAgentID
	}
}

func (s *chatSession) Send(_ context.Context, a *activity.Activity) (string, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(a); err != nil {
		return "", err
	}
	return a.ID, nil
}

func (s *chatSession) writeError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.WriteJSON(chatError{Type: "error", Error: msg}); err != nil {
		log.Warn().Err(err).Msg("chat: websocket write")
	}
}
