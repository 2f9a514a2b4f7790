package screen

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pranavmangal/otpfill/otp"
	"github.com/pranavmangal/otpfill/sms"
)

type notice struct {
	result otp.Result
	code   string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Notify(result otp.Result, code string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice{result, code})
}

func (n *fakeNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

type fakeView struct {
	mu     sync.Mutex
	filled []int
	last   [otp.Length]string
}

func (v *fakeView) SlotFilled(index int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.filled = append(v.filled, index)
}

func (v *fakeView) Changed(digits [otp.Length]string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.last = digits
}

type fakeSubscription struct {
	mu     sync.Mutex
	closed int
}

func (s *fakeSubscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSubscription) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeSource struct {
	sub     *fakeSubscription
	handler sms.Handler
	err     error
}

func (f *fakeSource) Subscribe(_ context.Context, h sms.Handler) (sms.Subscription, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.handler = h
	return f.sub, nil
}

func newTestScreen(opts Options) (*Screen, *fakeNotifier, *fakeView) {
	n := &fakeNotifier{}
	v := &fakeView{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(logger, n, v, opts), n, v
}

func runScreen(t *testing.T, s *Screen) {
	t.Helper()
	go func() { _ = s.Run(context.Background()) }()
}

func stopScreen(t *testing.T, s *Screen) {
	t.Helper()
	s.Close()
	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("screen did not stop")
	}
}

func TestScreen_SmsThenSubmit(t *testing.T) {
	s, n, v := newTestScreen(Options{})
	runScreen(t, s)

	require.NoError(t, s.SmsReceived("Your code is 123456 now"))
	require.NoError(t, s.Submit())
	stopScreen(t, s)

	assert.Equal(t, []notice{{otp.Valid, "123456"}}, n.all())
	assert.Equal(t, [otp.Length]string{"1", "2", "3", "4", "5", "6"}, v.last)
	assert.Empty(t, v.filled)
}

func TestScreen_SmsWithoutCodeLeavesSlots(t *testing.T) {
	s, n, _ := newTestScreen(Options{})
	runScreen(t, s)

	require.NoError(t, s.DigitTyped(0, "9"))
	require.NoError(t, s.SmsReceived("Your number is 1234567", "no codes here"))
	require.NoError(t, s.Submit())
	stopScreen(t, s)

	assert.Equal(t, []notice{{otp.Invalid, "9"}}, n.all())
}

func TestScreen_MultipartUsesFirstCode(t *testing.T) {
	s, n, _ := newTestScreen(Options{})
	runScreen(t, s)

	require.NoError(t, s.SmsReceived("hello", "code 111222", "code 333444"))
	require.NoError(t, s.Submit())
	stopScreen(t, s)

	assert.Equal(t, []notice{{otp.Valid, "111222"}}, n.all())
}

func TestScreen_DigitTyped(t *testing.T) {
	s, n, v := newTestScreen(Options{})
	rejected := testutil.ToFloat64(slotRejectedCounter)
	runScreen(t, s)

	for i, d := range []string{"4", "2", "4", "2", "4", "2"} {
		require.NoError(t, s.DigitTyped(i, d))
	}
	require.NoError(t, s.DigitTyped(2, "77"))
	require.NoError(t, s.Submit())
	stopScreen(t, s)

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, v.filled)
	assert.Equal(t, []notice{{otp.Valid, "424242"}}, n.all())
	assert.Equal(t, rejected+1, testutil.ToFloat64(slotRejectedCounter))
}

func TestScreen_ClearAndRetry(t *testing.T) {
	s, n, _ := newTestScreen(Options{})
	runScreen(t, s)

	require.NoError(t, s.SmsReceived("123456"))
	require.NoError(t, s.Clear())
	require.NoError(t, s.Submit())
	stopScreen(t, s)

	assert.Equal(t, []notice{{otp.Invalid, ""}}, n.all())
}

func TestScreen_AutoSubmit(t *testing.T) {
	s, n, _ := newTestScreen(Options{AutoSubmit: true})
	valid := testutil.ToFloat64(verificationsCounter.WithLabelValues("valid"))
	runScreen(t, s)

	require.NoError(t, s.SmsReceived("code 246810"))
	stopScreen(t, s)

	assert.Equal(t, []notice{{otp.Valid, "246810"}}, n.all())
	assert.Equal(t, valid+1, testutil.ToFloat64(verificationsCounter.WithLabelValues("valid")))
}

func TestScreen_PostAfterClose(t *testing.T) {
	s, _, _ := newTestScreen(Options{})
	runScreen(t, s)
	stopScreen(t, s)

	assert.ErrorIs(t, s.SmsReceived("123456"), ErrClosed)
	assert.ErrorIs(t, s.DigitTyped(0, "1"), ErrClosed)
	assert.ErrorIs(t, s.Submit(), ErrClosed)
	s.Close()
}

func TestScreen_ContextCancelStopsRun(t *testing.T) {
	s, _, _ := newTestScreen(Options{})
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}

	assert.ErrorIs(t, s.Submit(), ErrClosed)
}

func TestScreen_AttachReleasesOnStop(t *testing.T) {
	s, n, _ := newTestScreen(Options{})
	src := &fakeSource{sub: &fakeSubscription{}}
	runScreen(t, s)

	require.NoError(t, s.Attach(context.Background(), src))
	src.handler([]sms.Message{{Body: "Code: 975310"}})
	require.NoError(t, s.Submit())
	stopScreen(t, s)

	assert.Equal(t, 1, src.sub.closeCount())
	assert.Equal(t, []notice{{otp.Valid, "975310"}}, n.all())

	// Deliveries after shutdown are dropped.
	src.handler([]sms.Message{{Body: "Code: 000000"}})
}

func TestScreen_AttachAfterStop(t *testing.T) {
	s, _, _ := newTestScreen(Options{})
	runScreen(t, s)
	stopScreen(t, s)

	src := &fakeSource{sub: &fakeSubscription{}}
	assert.ErrorIs(t, s.Attach(context.Background(), src), ErrClosed)
	assert.Equal(t, 1, src.sub.closeCount())
}

func TestScreen_AttachSubscribeError(t *testing.T) {
	s, _, _ := newTestScreen(Options{})
	boom := errors.New("boom")

	err := s.Attach(context.Background(), &fakeSource{err: boom})
	assert.ErrorIs(t, err, boom)
}

func TestScreen_ChanSource(t *testing.T) {
	s, n, _ := newTestScreen(Options{AutoSubmit: true})
	ch := make(chan sms.Message)
	runScreen(t, s)

	require.NoError(t, s.Attach(context.Background(), sms.NewChanSource(ch)))
	ch <- sms.Message{Body: "Use 864209 to sign in"}

	require.Eventually(t, func() bool { return len(n.all()) == 1 }, time.Second, 5*time.Millisecond)
	stopScreen(t, s)

	assert.Equal(t, []notice{{otp.Valid, "864209"}}, n.all())
}
