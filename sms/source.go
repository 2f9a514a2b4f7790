package sms

import (
	"context"
	"slices"
	"strings"
	"time"
)

type Message struct {
	ID        string    `json:"id"`
	Sender    string    `json:"sender"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}

// Handler receives the parts of one delivery. It is called from the source's
// own goroutine.
type Handler func(batch []Message)

// Source delivers incoming messages to a handler until the returned
// subscription is closed.
type Source interface {
	Subscribe(ctx context.Context, h Handler) (Subscription, error)
}

// Subscription is a registered handler. Close stops delivery and may be
// called more than once.
type Subscription interface {
	Close() error
}

// Bodies returns the bodies of batch in order.
func Bodies(batch []Message) []string {
	bodies := make([]string, 0, len(batch))
	for _, m := range batch {
		bodies = append(bodies, m.Body)
	}

	return bodies
}

type senderFilter struct {
	src     Source
	allowed []string
}

// FilterSenders drops messages whose sender is not in allowed, ignoring case.
// An empty allowlist lets everything through.
func FilterSenders(src Source, allowed []string) Source {
	if len(allowed) == 0 {
		return src
	}

	return &senderFilter{src: src, allowed: allowed}
}

func (f *senderFilter) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	return f.src.Subscribe(ctx, func(batch []Message) {
		var kept []Message
		for _, m := range batch {
			if slices.ContainsFunc(f.allowed, func(a string) bool { return strings.EqualFold(a, m.Sender) }) {
				kept = append(kept, m)
			}
		}

		if len(kept) > 0 {
			h(kept)
		}
	})
}
