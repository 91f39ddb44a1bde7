package bots

import (
	"context"

	"github.com/ziadkadry99/echo-agent/internal/agent"
	"github.com/ziadkadry99/echo-agent/internal/auth"
	"github.com/ziadkadry99/echo-agent/internal/connector"
)

// Channel identifiers stamped on activities that arrive through the local
// development channel.
const (
	ChannelWebSocket = "websocket"
	ChatUserID       = "user"
	ChatAgentID      = "agent"
)

// TurnHandler runs the agent for one activity.
type TurnHandler interface {
	OnTurn(ctx context.Context, tc *agent.TurnContext) error
}

// Authenticator verifies the caller of an activity posted for serviceURL.
type Authenticator interface {
	Verify(ctx context.Context, authorization, serviceURL string) (auth.ClaimsIdentity, error)
}

// SenderFactory creates the outbound channel for a turn that arrived from
// serviceURL on behalf of identity.
type SenderFactory interface {
	Sender(ctx context.Context, identity auth.ClaimsIdentity, serviceURL string) (agent.Sender, error)
}

// ConnectorSenders adapts a connector client factory to SenderFactory.
func ConnectorSenders(factory *connector.Factory) SenderFactory {
	return connectorSenders{factory: factory}
}

type connectorSenders struct {
	factory *connector.Factory
}

func (c connectorSenders) Sender(ctx context.Context, identity auth.ClaimsIdentity, serviceURL string) (agent.Sender, error) {
	client, err := c.factory.Create(ctx, identity, serviceURL)
	if err != nil {
		return nil, err
	}
	return client, nil
}
