package bots

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/echo-agent/internal/activity"
	"github.com/ziadkadry99/echo-agent/internal/agent"
	"github.com/ziadkadry99/echo-agent/internal/transcript"
)

// Gateway is the channel-agnostic entry point every transport hands its
// activities to. It optionally records a transcript of the turn.
type Gateway struct {
	handler     TurnHandler
	transcripts *transcript.Store
}

// NewGateway creates a new Gateway. transcripts may be nil.
func NewGateway(handler TurnHandler, transcripts *transcript.Store) *Gateway {
	return &Gateway{handler: handler, transcripts: transcripts}
}

// Process runs one turn for a, delivering replies through sender.
func (g *Gateway) Process(ctx context.Context, a *activity.Activity, sender agent.Sender) error {
	if g.transcripts != nil {
		g.record(ctx, transcript.DirectionInbound, a)
		sender = &recordingSender{gateway: g, next: sender}
	}
	return g.handler.OnTurn(ctx, agent.NewTurnContext(a, sender))
}

// record never fails the turn; a transcript write error is only logged.
func (g *Gateway) record(ctx context.Context, dir transcript.Direction, a *activity.Activity) {
	if err := g.transcripts.LogActivity(ctx, dir, a); err != nil {
		log.Warn().Err(err).
			Str("direction", string(dir)).
			Str("conversation", a.Conversation.ID).
			Msg("recording transcript entry")
	}
}

type recordingSender struct {
	gateway *Gateway
	next    agent.Sender
}

func (s *recordingSender) Send(ctx context.Context, a *activity.Activity) (string, error) {
	id, err := s.next.Send(ctx, a)
	if err != nil {
		return "", err
	}
	if a.ID == "" {
		recorded := *a
		recorded.ID = id
		a = &recorded
	}
	s.gateway.record(ctx, transcript.DirectionOutbound, a)
	return id, nil
}
