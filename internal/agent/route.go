package agent

import (
	"context"
	"regexp"

	"github.com/ziadkadry99/echo-agent/internal/activity"
)

// Handler runs when its route matches an activity.
type Handler func(ctx context.Context, tc *TurnContext, state *TurnState) error

// Selector decides whether a route applies to an activity.
type Selector func(a *activity.Activity) bool

// Route binds a trigger to a handler.
type Route struct {
	Name     string
	Selector Selector
	Handler  Handler
}

// Conversation update events understood by ConversationUpdate.
const (
	EventMembersAdded   = "membersAdded"
	EventMembersRemoved = "membersRemoved"
)

// ConversationUpdate matches conversationUpdate activities carrying the
// given membership change.
func ConversationUpdate(event string) Selector {
	return func(a *activity.Activity) bool {
		if a.Type != activity.TypeConversationUpdate {
			return false
		}
		switch event {
		case EventMembersAdded:
			return len(a.MembersAdded) > 0
		case EventMembersRemoved:
			return len(a.MembersRemoved) > 0
		default:
			return false
		}
	}
}

// Message matches message activities whose text equals text exactly.
func Message(text string) Selector {
	return func(a *activity.Activity) bool {
		return a.IsMessage() && a.Text == text
	}
}

// MessagePattern matches message activities whose text matches re.
func MessagePattern(re *regexp.Regexp) Selector {
	return func(a *activity.Activity) bool {
		return a.IsMessage() && re.MatchString(a.Text)
	}
}

// ActivityType matches any activity of type t.
func ActivityType(t string) Selector {
	return func(a *activity.Activity) bool {
		return a.Type == t
	}
}
