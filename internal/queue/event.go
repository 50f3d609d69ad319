// Package queue defines message payloads exchanged over the message broker.
package queue

// EmailQueueName is the durable queue carrying outbound mail events.
const EmailQueueName = "email.send"

// EmailEvent is published whenever the platform needs to send a
// mail: verification codes, activation links, default-password
// notices. It carries the rendered subject and body so the consumer
// can deliver without querying the primary database.
type EmailEvent struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	Kind        string `json:"kind"` // otp | activation | notice
	QueuedAt    string `json:"queued_at"`
	Institution string `json:"institution,omitempty"`
}
