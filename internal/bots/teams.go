package bots

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/echo-agent/internal/activity"
	"github.com/ziadkadry99/echo-agent/internal/agent"
	"github.com/ziadkadry99/echo-agent/internal/auth"
)

// ActivityHandler receives Bot Framework activities posted by the channel
// service (Microsoft Teams).
type ActivityHandler struct {
	gateway       *Gateway
	authenticator Authenticator
	senders       SenderFactory
}

// NewActivityHandler creates a new activity handler. Callers are verified by
// authenticator before the turn runs; replies are sent through connector
// clients obtained from senders.
func NewActivityHandler(gateway *Gateway, authenticator Authenticator, senders SenderFactory) *ActivityHandler {
	return &ActivityHandler{gateway: gateway, authenticator: authenticator, senders: senders}
}

// expectedReplies is the response body of an expectReplies turn.
type expectedReplies struct {
	Activities []*activity.Activity `json:"activities"`
}

// HandleActivity handles incoming activities (HTTP POST).
func (h *ActivityHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var a activity.Activity
	if err := json.Unmarshal(body, &a); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if a.Type == "" {
		http.Error(w, "activity type is required", http.StatusBadRequest)
		return
	}

	identity, err := h.authenticator.Verify(r.Context(), r.Header.Get("Authorization"), a.ServiceURL)
	if err != nil {
		log.Warn().Err(err).
			Str("type", a.Type).
			Str("service_url", a.ServiceURL).
			Str("remote", r.RemoteAddr).
			Msg("rejecting unauthenticated activity")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	if a.ExpectsReplies() {
		buffer := &bufferSender{}
		if err := h.gateway.Process(r.Context(), &a, buffer); err != nil {
			h.fail(w, &a, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(expectedReplies{Activities: buffer.activities})
		return
	}

	sender := &lazySender{senders: h.senders, identity: identity, serviceURL: a.ServiceURL}
	if err := h.gateway.Process(r.Context(), &a, sender); err != nil {
		h.fail(w, &a, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *ActivityHandler) fail(w http.ResponseWriter, a *activity.Activity, err error) {
	log.Error().Err(err).
		Str("type", a.Type).
		Str("activity", a.ID).
		Str("conversation", a.Conversation.ID).
		Msg("processing activity")
	http.Error(w, "processing error", http.StatusInternalServerError)
}

// lazySender creates the connector client on the first reply, so turns that
// send nothing never acquire a token.
type lazySender struct {
	senders    SenderFactory
	identity   auth.ClaimsIdentity
	serviceURL string
	sender     agent.Sender
}

func (s *lazySender) Send(ctx context.Context, a *activity.Activity) (string, error) {
	if s.sender == nil {
		sender, err := s.senders.Sender(ctx, s.identity, s.serviceURL)
		if err != nil {
			return "", fmt.Errorf("creating connector client: %w", err)
		}
		s.sender = sender
	}
	return s.sender.Send(ctx, a)
}

// bufferSender collects replies that are returned in the HTTP response.
type bufferSender struct {
	activities []*activity.Activity
}

func (s *bufferSender) Send(_ context.Context, a *activity.Activity) (string, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	s.activities = append(s.activities, a)
	return a.ID, nil
}
