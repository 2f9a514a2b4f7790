package sms

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// loop runs a delivery goroutine until its context is cancelled.
type loop struct {
	cancel context.CancelFunc
	done   chan struct{}
	wait   bool
	once   sync.Once
}

func startLoop(ctx context.Context, wait bool, run func(ctx context.Context)) *loop {
	ctx, cancel := context.WithCancel(ctx)
	l := &loop{cancel: cancel, done: make(chan struct{}), wait: wait}

	go func() {
		defer close(l.done)
		run(ctx)
	}()

	return l
}

func (l *loop) Close() error {
	l.once.Do(l.cancel)
	if l.wait {
		<-l.done
	}

	return nil
}

// ChanSource delivers every message received on a channel as a batch of one.
type ChanSource struct {
	ch <-chan Message
}

func NewChanSource(ch <-chan Message) *ChanSource {
	return &ChanSource{ch: ch}
}

// Subscribe starts delivery. Closing the subscription waits for the delivery
// goroutine to exit.
func (s *ChanSource) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	return startLoop(ctx, true, func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-s.ch:
				if !ok {
					return
				}

				h([]Message{m})
			}
		}
	}), nil
}

// ReaderSource treats every non-empty line of r as the body of one message.
// Lines may be of any length.
type ReaderSource struct {
	r      io.Reader
	sender string
	logger *slog.Logger
	eof    chan struct{}
	once   sync.Once
}

func NewReaderSource(r io.Reader, sender string, logger *slog.Logger) *ReaderSource {
	return &ReaderSource{r: r, sender: sender, logger: logger, eof: make(chan struct{})}
}

// Done is closed once the reader is exhausted or fails.
func (s *ReaderSource) Done() <-chan struct{} {
	return s.eof
}

// Subscribe starts reading. A blocked read cannot be interrupted, so Close
// only stops delivery and does not wait for the reader to return.
func (s *ReaderSource) Subscribe(ctx context.Context, h Handler) (Subscription, error) {
	return startLoop(ctx, false, func(ctx context.Context) {
		defer s.once.Do(func() { close(s.eof) })

		br := bufio.NewReader(s.r)
		n := 0

		for {
			line, err := br.ReadString('\n')
			if ctx.Err() != nil {
				return
			}

			if body := strings.TrimRight(line, "\r\n"); body != "" {
				n++
				h([]Message{{
					ID:        strconv.Itoa(n),
					Sender:    s.sender,
					Body:      body,
					Timestamp: time.Now(),
				}})
			}

			if err != nil {
				if !errors.Is(err, io.EOF) {
					s.logger.ErrorContext(ctx, "Failed to read messages", "sender", s.sender, "error", err)
				}
				return
			}
		}
	}), nil
}
