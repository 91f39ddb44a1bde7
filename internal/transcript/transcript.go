// Package transcript records the activities an agent receives and sends.
package transcript

import "time"

// Direction tells whether an activity was received or sent by the agent.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Entry is a single transcript record.
type Entry struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	ConversationID string    `json:"conversation_id"`
	ChannelID      string    `json:"channel_id"`
	Direction      Direction `json:"direction"`
	ActivityType   string    `json:"activity_type"`
	ActivityID     string    `json:"activity_id,omitempty"`
	FromID         string    `json:"from_id,omitempty"`
	Text           string    `json:"text"`
}
