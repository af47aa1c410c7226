package xcomfort

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/xcomfort-core/internal/device"
)

// feedSender publishes outbound requests on the feed request topic, where
// the transport relay picks them up.
type feedSender struct {
	client  MQTTClient
	topic   string
	qos     byte
	metrics Observer
}

// Send implements device.Sender.
func (s *feedSender) Send(ctx context.Context, req device.Request) error {
	err := s.send(ctx, req)
	s.metrics.ObserveRequest(req.Type.String(), err)
	return err
}

func (s *feedSender) send(ctx context.Context, req device.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	return s.client.Publish(s.topic, payload, s.qos, false)
}
