// Package activity defines the Bot Framework activity schema the agent
// exchanges with the channel service.
package activity

import (
	"encoding/json"
	"time"
)

// Activity types.
const (
	TypeMessage            = "message"
	TypeConversationUpdate = "conversationUpdate"
	TypeEndOfConversation  = "endOfConversation"
	TypeTyping             = "typing"
	TypeInvoke             = "invoke"
)

// DeliveryModeExpectReplies asks the agent to return its replies in the
// HTTP response instead of posting them to the channel service.
const DeliveryModeExpectReplies = "expectReplies"

// ChannelAccount is a user or bot account on a channel.
type ChannelAccount struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	AadObjectID string `json:"aadObjectId,omitempty"`
	Role        string `json:"role,omitempty"`
}

// ConversationAccount identifies a conversation.
type ConversationAccount struct {
	ID               string `json:"id"`
	Name             string `json:"name,omitempty"`
	ConversationType string `json:"conversationType,omitempty"`
	TenantID         string `json:"tenantId,omitempty"`
	IsGroup          bool   `json:"isGroup,omitempty"`
}

// Activity is a single event exchanged with the channel service.
type Activity struct {
	Type           string              `json:"type"`
	ID             string              `json:"id,omitempty"`
	Timestamp      string              `json:"timestamp,omitempty"`
	ServiceURL     string              `json:"serviceUrl,omitempty"`
	ChannelID      string              `json:"channelId,omitempty"`
	From           ChannelAccount      `json:"from"`
	Recipient      ChannelAccount      `json:"recipient"`
	Conversation   ConversationAccount `json:"conversation"`
	Text           string              `json:"text,omitempty"`
	TextFormat     string              `json:"textFormat,omitempty"`
	Locale         string              `json:"locale,omitempty"`
	ReplyToID      string              `json:"replyToId,omitempty"`
	MembersAdded   []ChannelAccount    `json:"membersAdded,omitempty"`
	MembersRemoved []ChannelAccount    `json:"membersRemoved,omitempty"`
	DeliveryMode   string              `json:"deliveryMode,omitempty"`
	ChannelData    json.RawMessage     `json:"channelData,omitempty"`
	Value          json.RawMessage     `json:"value,omitempty"`
}

// IsMessage reports whether the activity is a message.
func (a *Activity) IsMessage() bool {
	return a.Type == TypeMessage
}

// ExpectsReplies reports whether replies must be returned inline.
func (a *Activity) ExpectsReplies() bool {
	return a.DeliveryMode == DeliveryModeExpectReplies
}

// ConversationKey is the storage key for state scoped to the activity's conversation.
func (a *Activity) ConversationKey() string {
	return a.ChannelID + "/conversations/" + a.Conversation.ID
}

// Reply creates a message activity addressed back to the conversation a
// originated from.
func (a *Activity) Reply(text string) *Activity {
	return &Activity{
		Type:         TypeMessage,
		Timestamp:    time.Now().UTC().Format(time.RFC3339Nano),
		ServiceURL:   a.ServiceURL,
		ChannelID:    a.ChannelID,
		From:         a.Recipient,
		Recipient:    a.From,
		Conversation: a.Conversation,
		Text:         text,
		TextFormat:   "plain",
		Locale:       a.Locale,
		ReplyToID:    a.ID,
	}
}
