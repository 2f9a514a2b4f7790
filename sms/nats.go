package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// IncomingSMS is the JSON payload published by an SMS gateway. Multi-part
// messages may be sent as Parts instead of Text.
type IncomingSMS struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Text      string    `json:"text" validate:"required_without=Parts"`
	Parts     []string  `json:"parts,omitempty" validate:"required_without=Text"`
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ConnectNATS dials url and logs connection state changes.
func ConnectNATS(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", "url", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			logger.Info("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return nc, nil
}

type NATSSource struct {
	conn     *nats.Conn
	subject  string
	logger   *slog.Logger
	validate *validator.Validate
}

func NewNATSSource(conn *nats.Conn, subject string, logger *slog.Logger) *NATSSource {
	return &NATSSource{
		conn:     conn,
		subject:  subject,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *NATSSource) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	sub, err := s.conn.Subscribe(s.subject, func(msg *nats.Msg) {
		batch, err := s.decode(msg.Data)
		if err != nil {
			s.logger.ErrorContext(ctx, "Dropping malformed SMS payload", "subject", msg.Subject, "error", err)
			return
		}

		s.logger.DebugContext(ctx, "Received SMS", "subject", msg.Subject, "parts", len(batch))
		h(batch)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}

	s.logger.InfoContext(ctx, "Subscribed to SMS subject", "subject", s.subject)
	return &natsSubscription{sub: sub}, nil
}

func (s *NATSSource) decode(data []byte) ([]Message, error) {
	var in IncomingSMS
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}

	id := in.MessageID
	if id == "" {
		id = uuid.NewString()
	}

	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	parts := in.Parts
	if len(parts) == 0 {
		parts = []string{in.Text}
	}

	batch := make([]Message, 0, len(parts))
	for _, p := range parts {
		batch = append(batch, Message{ID: id, Sender: in.From, Body: p, Timestamp: ts})
	}

	return batch, nil
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s *natsSubscription) Close() error {
	if !s.sub.IsValid() {
		return nil
	}

	return s.sub.Unsubscribe()
}
