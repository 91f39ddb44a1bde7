package agent

import (
	"context"
	"fmt"

	"github.com/ziadkadry99/echo-agent/internal/activity"
)

// HelpText is sent when members join a conversation and in answer to /help.
const HelpText = "Welcome to the Echo Agent sample 🚀. " +
	"Type /help for help or send a message to see the echo feature in action."

// WelcomeRoute greets a conversation once per membersAdded event, however
// many members joined.
func WelcomeRoute() Route {
	return Route{
		Name:     "welcome",
		Selector: ConversationUpdate(EventMembersAdded),
		Handler:  sendHelp,
	}
}

// HelpRoute answers the /help command.
func HelpRoute() Route {
	return Route{
		Name:     "help",
		Selector: Message("/help"),
		Handler:  sendHelp,
	}
}

// EchoRoute answers any message with "you said: <text>".
func EchoRoute() Route {
	return Route{
		Name:     "echo",
		Selector: ActivityType(activity.TypeMessage),
		Handler:  echo,
	}
}

func sendHelp(ctx context.Context, tc *TurnContext, _ *TurnState) error {
	return tc.SendText(ctx, HelpText)
}

func echo(ctx context.Context, tc *TurnContext, state *TurnState) error {
	state.Conversation.Count++
	return tc.SendText(ctx, fmt.Sprintf("you said: %s", tc.Activity().Text))
}
