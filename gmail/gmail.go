package gmail

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"google.golang.org/api/gmail/v1"

	"github.com/pranavmangal/otpfill/sms"
)

const (
	user        = "me"
	maxMessages = 5
)

// mailbox is the part of the Gmail API the source needs.
type mailbox interface {
	List(ctx context.Context, query string) ([]string, error)
	Get(ctx context.Context, id string) (*gmail.Message, error)
}

type apiMailbox struct {
	srv *gmail.Service
}

func (m apiMailbox) List(ctx context.Context, query string) ([]string, error) {
	r, err := m.srv.Users.Messages.List(user).Q(query).MaxResults(maxMessages).Context(ctx).Do()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(r.Messages))
	for _, msg := range r.Messages {
		ids = append(ids, msg.Id)
	}

	return ids, nil
}

func (m apiMailbox) Get(ctx context.Context, id string) (*gmail.Message, error) {
	return m.srv.Users.Messages.Get(user, id).Format("full").Context(ctx).Do()
}

// Source polls a Gmail inbox and delivers new messages as SMS.
type Source struct {
	mailbox  mailbox
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSource(srv *gmail.Service, interval time.Duration, logger *slog.Logger) *Source {
	return &Source{mailbox: apiMailbox{srv: srv}, interval: interval, logger: logger, now: time.Now}
}

// Subscribe polls immediately and then every interval. Each poll that finds
// new messages delivers them newest first as one batch.
func (s *Source) Subscribe(ctx context.Context, h sms.Handler) (sms.Subscription, error) {
	if s.interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", s.interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &subscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)

		p := &poller{source: s, since: s.now().Add(-s.interval), seen: map[string]bool{}}
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			if batch := p.poll(ctx); len(batch) > 0 {
				h(batch)
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return sub, nil
}

type poller struct {
	source *Source
	since  time.Time
	seen   map[string]bool
}

func (p *poller) poll(ctx context.Context) []sms.Message {
	s := p.source
	started := s.now()
	query := "after:" + strconv.FormatInt(p.since.Unix(), 10)

	ids, err := s.mailbox.List(ctx, query)
	if err != nil {
		s.logger.ErrorContext(ctx, "Unable to retrieve messages", "error", err)
		return nil
	}

	var fresh []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
		if !p.seen[id] {
			fresh = append(fresh, id)
		}
	}

	// The next query overlaps this one by an interval; seen filters repeats.
	p.seen = seen
	p.since = started.Add(-s.interval)

	return s.fetch(ctx, fresh)
}

func (s *Source) fetch(ctx context.Context, ids []string) []sms.Message {
	if len(ids) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	msgsChan := make(chan sms.Message, len(ids))

	for _, id := range ids {
		wg.Add(1)

		go func(msgId string) {
			defer wg.Done()

			msg, err := s.mailbox.Get(ctx, msgId)
			if err != nil {
				s.logger.ErrorContext(ctx, "Unable to retrieve message", "id", msgId, "error", err)
				return
			}

			msgsChan <- sms.Message{
				ID:        msg.Id,
				Sender:    getSender(msg),
				Body:      getBody(msg),
				Timestamp: getTimestamp(msg),
			}
		}(id)
	}

	wg.Wait()
	close(msgsChan)

	res := []sms.Message{}
	for m := range msgsChan {
		res = append(res, m)
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Timestamp.After(res[j].Timestamp)
	})

	return res
}

type subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *subscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}
