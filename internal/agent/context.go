// Package agent routes inbound activities to reply handlers.
package agent

import (
	"context"
	"sync/atomic"

	"github.com/ziadkadry99/echo-agent/internal/activity"
)

// Sender delivers an outbound activity and returns the id assigned to it.
type Sender interface {
	Send(ctx context.Context, a *activity.Activity) (string, error)
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, a *activity.Activity) (string, error)

func (f SenderFunc) Send(ctx context.Context, a *activity.Activity) (string, error) {
	return f(ctx, a)
}

// TurnContext is the per-activity handle handlers use to answer the
// conversation the activity came from.
type TurnContext struct {
	activity  *activity.Activity
	sender    Sender
	responded atomic.Bool
}

// NewTurnContext creates a TurnContext for a, delivering replies through sender.
func NewTurnContext(a *activity.Activity, sender Sender) *TurnContext {
	return &TurnContext{activity: a, sender: sender}
}

// Activity returns the inbound activity. Handlers must not modify it.
func (tc *TurnContext) Activity() *activity.Activity {
	return tc.activity
}

// SendText replies to the originating conversation with a plain text message.
func (tc *TurnContext) SendText(ctx context.Context, text string) error {
	_, err := tc.SendActivity(ctx, tc.activity.Reply(text))
	return err
}

// SendActivity sends a as-is. Send errors are returned unchanged.
func (tc *TurnContext) SendActivity(ctx context.Context, a *activity.Activity) (string, error) {
	id, err := tc.sender.Send(ctx, a)
	if err != nil {
		return "", err
	}
	tc.responded.Store(true)
	return id, nil
}

// Responded reports whether at least one activity was sent during the turn.
func (tc *TurnContext) Responded() bool {
	return tc.responded.Load()
}
