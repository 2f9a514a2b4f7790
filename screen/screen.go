package screen

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pranavmangal/otpfill/otp"
	"github.com/pranavmangal/otpfill/sms"
)

var ErrClosed = errors.New("screen is closed")

const queueSize = 64

// Notifier shows the outcome of a submit to the user.
type Notifier interface {
	Notify(result otp.Result, code string)
}

type Options struct {
	// AutoSubmit submits as soon as an incoming SMS leaves every slot filled.
	AutoSubmit bool
}

// Screen owns the OTP slots of one entry form. Every mutation is queued and
// applied by Run on a single goroutine, so SMS deliveries and user input can
// arrive from any goroutine.
type Screen struct {
	id       string
	slots    *otp.Slots
	notifier Notifier
	logger   *slog.Logger
	opts     Options

	events   chan func()
	stopping chan struct{}
	done     chan struct{}

	mu     sync.Mutex
	closed bool
	subs   []sms.Subscription
}

// New creates a screen. view receives slot notifications and may be nil.
func New(logger *slog.Logger, notifier Notifier, view otp.Listener, opts Options) *Screen {
	id := uuid.NewString()

	return &Screen{
		id:       id,
		slots:    otp.NewSlots(view),
		notifier: notifier,
		logger:   logger.With("session_id", id),
		opts:     opts,
		events:   make(chan func(), queueSize),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *Screen) ID() string {
	return s.id
}

// Run applies queued events until ctx is cancelled or Close is called, then
// releases every attached subscription. Events queued before Close are still
// applied.
func (s *Screen) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.release(ctx)
	defer close(s.stopping)

	s.logger.DebugContext(ctx, "Screen started")

	for {
		select {
		case <-ctx.Done():
			s.logger.DebugContext(ctx, "Screen context cancelled")
			return nil
		case fn, ok := <-s.events:
			if !ok {
				s.logger.DebugContext(ctx, "Screen closed")
				return nil
			}

			fn()
		}
	}
}

// Close stops accepting events. Run returns once the queue is drained.
func (s *Screen) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.closed = true
	close(s.events)
}

// Done is closed when Run has returned and every subscription is released.
func (s *Screen) Done() <-chan struct{} {
	return s.done
}

// Attach subscribes to src and routes every delivery to SmsReceived. The
// subscription is closed when Run returns.
func (s *Screen) Attach(ctx context.Context, src sms.Source) error {
	sub, err := src.Subscribe(ctx, func(batch []sms.Message) {
		if err := s.SmsReceived(sms.Bodies(batch)...); err != nil {
			s.logger.DebugContext(ctx, "Dropping SMS after screen closed", "error", err)
		}
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed || s.stopped() {
		s.mu.Unlock()
		sub.Close()
		return ErrClosed
	}

	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return nil
}

// SmsReceived extracts a code from the first body that has one and fills the
// slots with it.
func (s *Screen) SmsReceived(bodies ...string) error {
	return s.post(func() {
		smsReceivedCounter.Inc()

		code := otp.ExtractFirst(bodies...)
		if code == "" {
			s.logger.Debug("No OTP in SMS", "parts", len(bodies))
			return
		}

		codesExtractedCounter.Inc()
		s.logger.Info("Filling OTP from SMS")
		s.slots.FillFrom(code)

		if s.opts.AutoSubmit && s.slots.Full() {
			s.submit()
		}
	})
}

// DigitTyped sets one slot from user input. Oversized input is dropped.
func (s *Screen) DigitTyped(index int, value string) error {
	return s.post(func() {
		if err := s.slots.SetSlot(index, value); err != nil {
			slotRejectedCounter.Inc()
			s.logger.Debug("Rejected slot input", "index", index, "error", err)
		}
	})
}

// Submit verifies the joined slots and reports the result to the notifier.
func (s *Screen) Submit() error {
	return s.post(s.submit)
}

// Clear empties all slots.
func (s *Screen) Clear() error {
	return s.post(s.slots.Clear)
}

func (s *Screen) submit() {
	code := s.slots.Joined()
	result := otp.Verify(code)

	verificationsCounter.WithLabelValues(result.String()).Inc()
	s.logger.Info("OTP submitted", "result", result.String())

	if s.notifier != nil {
		s.notifier.Notify(result, code)
	}
}

func (s *Screen) post(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	select {
	case s.events <- fn:
		return nil
	case <-s.stopping:
		return ErrClosed
	}
}

func (s *Screen) stopped() bool {
	select {
	case <-s.stopping:
		return true
	default:
		return false
	}
}

func (s *Screen) release(ctx context.Context) {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.closed = true
	s.mu.Unlock()

	var errs []error
	for _, sub := range subs {
		if err := sub.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.WarnContext(ctx, "Failed to release SMS subscriptions", "error", err)
	}
}
