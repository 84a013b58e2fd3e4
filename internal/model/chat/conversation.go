package chat

import "fmt"

// RollingContextLimit caps the number of context lines kept for prompting.
const RollingContextLimit = 10

// Conversation is the per-session transcript plus the rolling prompt context.
// It is not safe for concurrent use; callers serialize turns per session.
type Conversation struct {
	SessionID string
	PersonaID string

	messages []Message
	context  []string
}

// NewConversation returns an empty conversation bound to a session.
func NewConversation(sessionID, personaID string) *Conversation {
	return &Conversation{SessionID: sessionID, PersonaID: personaID}
}

// Append adds a message to the transcript.
func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the transcript in insertion order.
func (c *Conversation) Messages() []Message {
	return append([]Message(nil), c.messages...)
}

// Len returns the transcript length.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// PushContext appends a line to the rolling context and drops the oldest
// lines beyond RollingContextLimit.
func (c *Conversation) PushContext(line string) {
	c.context = append(c.context, line)
	if overflow := len(c.context) - RollingContextLimit; overflow > 0 {
		trimmed := make([]string, RollingContextLimit)
		copy(trimmed, c.context[overflow:])
		c.context = trimmed
	}
}

// PushUser records a user utterance tagged with its dominant emotion.
func (c *Conversation) PushUser(emotion, text string) {
	c.PushContext(fmt.Sprintf("User (%s): %s", emotion, text))
}

// PushAssistant records a generated reply.
func (c *Conversation) PushAssistant(text string) {
	c.PushContext("Chatbot: " + text)
}

// RecentContext returns a copy of the last n context lines; n <= 0 returns all.
func (c *Conversation) RecentContext(n int) []string {
	if n <= 0 || n > len(c.context) {
		n = len(c.context)
	}
	return append([]string(nil), c.context[len(c.context)-n:]...)
}

// ContextLen returns the current rolling context size.
func (c *Conversation) ContextLen() int {
	return len(c.context)
}
