package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Speaker identifies who wrote a message.
type Speaker string

const (
	SpeakerBot  Speaker = "bot"
	SpeakerUser Speaker = "user"
)

// Valid returns true if s is a known speaker.
func (s Speaker) Valid() bool {
	return s == SpeakerBot || s == SpeakerUser
}

// SpeakerForOrder returns the speaker implied by alternation: the bot opens
// at order 1, so odd orders are the bot and even orders the user.
func SpeakerForOrder(order int) Speaker {
	if order%2 == 1 {
		return SpeakerBot
	}
	return SpeakerUser
}

// Message is one transcript entry. Orders are dense per customer starting at 1.
type Message struct {
	CustomerID uuid.UUID `json:"customerId"`
	Order      int       `json:"order"`
	Speaker    Speaker   `json:"speaker"`
	Text       string    `json:"message"`
	// QuestionPosition is the predefined question a bot turn aimed at, if any.
	QuestionPosition *int      `json:"questionPosition,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
}

// NewUserMessage creates an unsaved user message.
func NewUserMessage(customerID uuid.UUID, text string) *Message {
	return &Message{
		CustomerID: customerID,
		Speaker:    SpeakerUser,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
}

// NewBotMessage creates an unsaved bot message. A zero position means the
// turn had no target question.
func NewBotMessage(customerID uuid.UUID, text string, position int) *Message {
	m := &Message{
		CustomerID: customerID,
		Speaker:    SpeakerBot,
		Text:       text,
		CreatedAt:  time.Now().UTC(),
	}
	if position > 0 {
		m.QuestionPosition = &position
	}
	return m
}

// Author returns the recorded speaker, falling back to order parity for rows
// written without one.
func (m *Message) Author() Speaker {
	if m.Speaker.Valid() {
		return m.Speaker
	}
	return SpeakerForOrder(m.Order)
}

// Conversation joins the message texts of a transcript with newlines.
func Conversation(messages []*Message) string {
	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
	}
	return strings.Join(texts, "\n")
}
