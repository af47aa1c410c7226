package device

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Request is an outbound message for the bridge, produced by a command.
type Request struct {
	ID      string      `json:"id"`
	Type    MessageType `json:"type"`
	Payload Payload     `json:"payload"`
}

// Sender delivers requests to the bridge. The transport owns framing,
// encryption and authentication.
type Sender interface {
	Send(ctx context.Context, req Request) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, req Request) error

// Send calls f(ctx, req).
func (f SenderFunc) Send(ctx context.Context, req Request) error {
	return f(ctx, req)
}

// NewRequest builds a request with a fresh correlation ID.
func NewRequest(msgType MessageType, payload Payload) Request {
	return Request{
		ID:      uuid.NewString(),
		Type:    msgType,
		Payload: payload,
	}
}

func send(ctx context.Context, sender Sender, req Request) error {
	if sender == nil {
		return ErrNoSender
	}
	if err := sender.Send(ctx, req); err != nil {
		return fmt.Errorf("sending %s: %w", req.Type, err)
	}
	return nil
}
