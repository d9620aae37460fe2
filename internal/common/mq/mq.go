// Package mq provides the message queue abstraction used to publish
// grading lifecycle events to downstream consumers.
package mq

import (
	"context"
	"time"
)

// Message represents a message in the queue.
type Message struct {
	// ID is the unique identifier for the message.
	ID string `json:"id"`

	// Body is the message payload.
	Body []byte `json:"body"`

	// Headers contains metadata about the message.
	Headers map[string]string `json:"headers"`

	// Timestamp is when the message was created.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a new message with the given body.
func NewMessage(body []byte) *Message {
	return &Message{
		Body:      body,
		Headers:   make(map[string]string),
		Timestamp: time.Now(),
	}
}

// SetHeader sets a header value.
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// Producer defines the interface for publishing messages.
type Producer interface {
	// Publish publishes a message to the specified topic.
	Publish(ctx context.Context, topic string, message *Message) error

	// Close closes the producer connection.
	Close() error
}
