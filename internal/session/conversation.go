package session

import "github.com/desertthunder/coursechat/internal/models"

// Conversation is the append-only log of chat messages in insertion order.
//
// It is not safe for concurrent use; the [Synchronizer] only touches it from its loop.
type Conversation struct {
	messages []models.Message
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{messages: []models.Message{}}
}

// Append adds msg to the end of the log.
func (c *Conversation) Append(msg models.Message) {
	c.messages = append(c.messages, msg)
}

// Len returns the number of messages.
func (c *Conversation) Len() int {
	return len(c.messages)
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []models.Message {
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Last returns the most recent message.
func (c *Conversation) Last() (models.Message, bool) {
	if len(c.messages) == 0 {
		return models.Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}
