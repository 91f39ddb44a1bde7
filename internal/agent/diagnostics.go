package agent

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/ziadkadry99/echo-agent/internal/activity"
)

// RuntimeInfo is reported by the /runtime command.
type RuntimeInfo struct {
	GoVersion string `json:"go_version"`
	Version   string `json:"version"`
	AgentType string `json:"agent_type"`
}

// LifecycleRoutes log membership removal and conversation end without replying.
func LifecycleRoutes() []Route {
	return []Route{
		{
			Name:     "members-removed",
			Selector: ConversationUpdate(EventMembersRemoved),
			Handler: func(_ context.Context, tc *TurnContext, _ *TurnState) error {
				a := tc.Activity()
				log.Info().
					Str("conversation", a.Conversation.ID).
					Int("members", len(a.MembersRemoved)).
					Msg("members removed from conversation")
				return nil
			},
		},
		{
			Name:     "end-of-conversation",
			Selector: ActivityType(activity.TypeEndOfConversation),
			Handler: func(_ context.Context, tc *TurnContext, _ *TurnState) error {
				log.Info().
					Str("conversation", tc.Activity().Conversation.ID).
					Msg("conversation ended")
				return nil
			},
		},
	}
}

// DiagnosticRoutes expose conversation state and runtime details through
// slash commands.
func DiagnosticRoutes(info RuntimeInfo) []Route {
	if info.GoVersion == "" {
		info.GoVersion = runtime.Version()
	}

	return []Route{
		{
			Name:     "count",
			Selector: Message("/count"),
			Handler: func(ctx context.Context, tc *TurnContext, state *TurnState) error {
				return tc.SendText(ctx, fmt.Sprintf("The conversation count is %d", state.Conversation.Count))
			},
		},
		{
			Name:     "reset",
			Selector: Message("/reset"),
			Handler: func(ctx context.Context, tc *TurnContext, state *TurnState) error {
				state.Delete()
				return tc.SendText(ctx, "Deleted current conversation state.")
			},
		},
		{
			Name:     "diag",
			Selector: Message("/diag"),
			Handler: func(ctx context.Context, tc *TurnContext, _ *TurnState) error {
				return sendJSON(ctx, tc, tc.Activity())
			},
		},
		{
			Name:     "state",
			Selector: Message("/state"),
			Handler: func(ctx context.Context, tc *TurnContext, state *TurnState) error {
				return sendJSON(ctx, tc, state)
			},
		},
		{
			Name:     "runtime",
			Selector: Message("/runtime"),
			Handler: func(ctx context.Context, tc *TurnContext, _ *TurnState) error {
				return sendJSON(ctx, tc, info)
			},
		},
		{
			Name:     "message-regex",
			Selector: MessagePattern(regexp.MustCompile(`^message`)),
			Handler: func(ctx context.Context, tc *TurnContext, _ *TurnState) error {
				return tc.SendText(ctx, "Matched with regex: "+tc.Activity().Type)
			},
		},
		{
			Name:     "base64url",
			Selector: MessagePattern(regexp.MustCompile(`^/base64url`)),
			Handler: func(ctx context.Context, tc *TurnContext, _ *TurnState) error {
				return tc.SendText(ctx, base64URLReply(tc.Activity().Text))
			},
		},
	}
}

func sendJSON(ctx context.Context, tc *TurnContext, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding reply: %w", err)
	}
	return tc.SendText(ctx, string(data))
}

// base64URLReply implements "/base64url <text>" and "/base64url -d <encoded>".
func base64URLReply(text string) string {
	words := strings.Split(text, " ")
	if len(words) < 2 {
		return "Usage: /base64url <text>"
	}
	if words[1] == "-d" {
		encoded := strings.TrimRight(strings.Join(words[2:], " "), "=")
		decoded, err := base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return "Invalid base64url input."
		}
		return "Decoded: " + string(decoded)
	}
	return "Encoded: " + base64.RawURLEncoding.EncodeToString([]byte(strings.Join(words[1:], " ")))
}
