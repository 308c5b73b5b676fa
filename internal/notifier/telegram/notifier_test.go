package telegram

import (
	"context"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/AnonArchitect/career-crawler/internal/scraper"
)

type fakeStore struct {
	scraper.PostingStore

	unnotified []scraper.Posting
	loadErr    error

	marked  []int64
	markErr map[int64]error
}

func (s *fakeStore) Unnotified(context.Context) ([]scraper.Posting, error) {
	return s.unnotified, s.loadErr
}

func (s *fakeStore) MarkNotified(_ context.Context, id int64) error {
	if err := s.markErr[id]; err != nil {
		return err
	}
	s.marked = append(s.marked, id)
	return nil
}

type fakeSession struct {
	calls   int
	sent    []string
	sendErr map[int]error // index of the Send call to fail
	closed  bool
}

func (s *fakeSession) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	call := s.calls
	s.calls++
	cfg, ok := msg.(tgbotapi.MessageConfig)
	if !ok {
		return tgbotapi.Message{}, errors.New("unexpected chattable type")
	}
	if err := s.sendErr[call]; err != nil {
		return tgbotapi.Message{}, err
	}
	s.sent = append(s.sent, cfg.Text)
	return tgbotapi.Message{}, nil
}

func (s *fakeSession) Close() { s.closed = true }

func newTestNotifier(t *testing.T, store *fakeStore, sess *fakeSession) *Notifier {
	t.Helper()
	n, err := New(Config{Token: "test-token", ChatID: 42}, store, zap.NewNop())
	require.NoError(t, err)
	n.pauser = scraper.NopPauser{}
	n.dial = func() (session, error) { return sess, nil }
	return n
}

func posting(id int64, title, url string) scraper.Posting {
	return scraper.Posting{ID: id, Company: "ExampleCorp", Title: title, URL: url}
}

func TestNotifySendsAndFlagsEachPosting(t *testing.T) {
	t.Parallel()

	store := &fakeStore{unnotified: []scraper.Posting{
		posting(1, "Backend Engineer", "https://example.com/jobs/1"),
		posting(2, "Platform Engineer", "https://example.com/jobs/2"),
	}}
	sess := &fakeSession{}

	sent, err := newTestNotifier(t, store, sess).Notify(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Equal(t, []int64{1, 2}, store.marked)
	require.Len(t, sess.sent, 2)
	require.True(t, sess.closed)
	require.Contains(t, sess.sent[0], "Backend Engineer")
	require.Contains(t, sess.sent[0], "https://example.com/jobs/1")
}

func TestNotifyCapsBatchAtLimit(t *testing.T) {
	t.Parallel()

	store := &fakeStore{unnotified: []scraper.Posting{
		posting(1, "A", "https://example.com/jobs/1"),
		posting(2, "B", "https://example.com/jobs/2"),
		posting(3, "C", "https://example.com/jobs/3"),
	}}
	sess := &fakeSession{}

	sent, err := newTestNotifier(t, store, sess).Notify(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Equal(t, []int64{1, 2}, store.marked, "posting 3 stays unnotified for the next run")
}

func TestNotifyFlagsOnlyAfterSend(t *testing.T) {
	t.Parallel()

	store := &fakeStore{unnotified: []scraper.Posting{
		posting(1, "A", "https://example.com/jobs/1"),
		posting(2, "B", "https://example.com/jobs/2"),
	}}
	sess := &fakeSession{sendErr: map[int]error{0: errors.New("telegram: timeout")}}

	sent, err := newTestNotifier(t, store, sess).Notify(context.Background(), 0)
	require.NoError(t, err, "a transient send failure skips the item, not the run")
	require.Equal(t, 1, sent)
	require.Equal(t, []int64{2}, store.marked, "the failed posting must not be flagged")
}

func TestNotifyAbortsOnAuthError(t *testing.T) {
	t.Parallel()

	store := &fakeStore{unnotified: []scraper.Posting{
		posting(1, "A", "https://example.com/jobs/1"),
		posting(2, "B", "https://example.com/jobs/2"),
	}}
	sess := &fakeSession{sendErr: map[int]error{
		0: &tgbotapi.Error{Code: 401, Message: "Unauthorized"},
	}}

	sent, err := newTestNotifier(t, store, sess).Notify(context.Background(), 0)
	require.Error(t, err)
	require.Equal(t, 0, sent)
	require.Empty(t, sess.sent, "no further sends after a credential rejection")
	require.Empty(t, store.marked)
}

func TestNotifySkipsFlaggingWhenMarkFails(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		unnotified: []scraper.Posting{posting(1, "A", "https://example.com/jobs/1")},
		markErr:    map[int64]error{1: errors.New("db gone")},
	}
	sess := &fakeSession{}

	sent, err := newTestNotifier(t, store, sess).Notify(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 0, sent, "an unflagged send does not count toward the total")
	require.Len(t, sess.sent, 1)
}

func TestNotifyNothingPending(t *testing.T) {
	t.Parallel()

	sess := &fakeSession{}
	sent, err := newTestNotifier(t, &fakeStore{}, sess).Notify(context.Background(), 0)
	require.NoError(t, err)
	require.Zero(t, sent)
	require.False(t, sess.closed, "no session is dialed when nothing is pending")
}

func TestNotifyStoreDown(t *testing.T) {
	t.Parallel()

	store := &fakeStore{loadErr: errors.New("connection refused")}
	_, err := newTestNotifier(t, store, &fakeSession{}).Notify(context.Background(), 0)
	require.Error(t, err)
}

func TestFormatPostingEscapesHTML(t *testing.T) {
	t.Parallel()

	p := posting(1, "C++ & <Rust> Engineer", "https://example.com/jobs/1")
	p.Location = "Berlin"

	text := formatPosting(p)
	require.Contains(t, text, "C++ &amp; &lt;Rust&gt; Engineer")
	require.Contains(t, text, "Berlin")
	require.NotContains(t, text, "<Rust>")
}

func TestFormatPostingLocationFallback(t *testing.T) {
	t.Parallel()

	text := formatPosting(posting(1, "Engineer", "https://example.com/jobs/1"))
	require.True(t, strings.Contains(text, scraper.LocationUnknown))
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(Config{ChatID: 42}, &fakeStore{}, nil)
	require.Error(t, err)
	_, err = New(Config{Token: "t"}, &fakeStore{}, nil)
	require.Error(t, err)
}
