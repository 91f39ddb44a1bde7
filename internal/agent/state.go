package agent

// ConversationState is persisted per conversation between turns.
type ConversationState struct {
	Count int `json:"count"`
}

// TurnState is the state loaded for a single turn.
type TurnState struct {
	Conversation ConversationState `json:"conversation"`

	deleted bool
}

// Delete clears the conversation state; it is removed from storage when the
// turn ends.
func (s *TurnState) Delete() {
	s.Conversation = ConversationState{}
	s.deleted = true
}
