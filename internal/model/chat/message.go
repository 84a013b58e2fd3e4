package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Source records which path produced an assistant reply.
type Source string

const (
	SourceDirect    Source = "direct"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
	SourceHosted    Source = "hosted"
)

// Message persists individual turns for audit/debug.
// Content and Timestamp are fixed at creation; the timestamp is stored in UTC.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion,omitempty"`
	Source    Source    `json:"source,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// DisplayTime formats the timestamp as HH:MM in loc.
func (m Message) DisplayTime(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return m.Timestamp.In(loc).Format("15:04")
}
