package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thykp/SPM-Team2-sub002/internal/model"
	"github.com/Thykp/SPM-Team2-sub002/pkg/logger"
	"github.com/Thykp/SPM-Team2-sub002/pkg/metrics"
)

// fakeStore mimics the sorted-set semantics: Due returns entries in ascending
// fire-time order and is non-destructive.
type fakeStore struct {
	mu      sync.Mutex
	entries []*model.ScheduledEntry
	removed []*model.ScheduledEntry
	dueErr  error
}

func (s *fakeStore) Add(_ context.Context, entry *model.ScheduledEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *fakeStore) Due(_ context.Context, now time.Time) ([]*model.ScheduledEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dueErr != nil {
		return nil, s.dueErr
	}

	var due []*model.ScheduledEntry
	for _, entry := range s.entries {
		if entry.SendAt <= now.UnixMilli() {
			due = append(due, entry)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].SendAt < due[j].SendAt })
	return due, nil
}

func (s *fakeStore) Remove(_ context.Context, entry *model.ScheduledEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.entries {
		if e == entry {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			break
		}
	}
	s.removed = append(s.removed, entry)
	return nil
}

func (s *fakeStore) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

type fakeDeliverer struct {
	mu        sync.Mutex
	delivered []*model.NotificationEvent
	err       error
}

func (d *fakeDeliverer) Deliver(_ context.Context, event *model.NotificationEvent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.delivered = append(d.delivered, event)
	return nil
}

func (d *fakeDeliverer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.delivered)
}

func newPoller(store *fakeStore, deliverer *fakeDeliverer) *Poller {
	return NewPoller(
		store,
		deliverer,
		10*time.Millisecond,
		logger.NewLogger(nil),
		metrics.NewMetricsWith(prometheus.NewRegistry(), "test", "scheduler"),
	)
}

func entryDueAt(sendAt int64, text string) *model.ScheduledEntry {
	event := model.NotificationEvent{
		Text:   text,
		Type:   model.NotifTypeDeadlineReminder,
		ToUser: uuid.New(),
	}
	raw, _ := json.Marshal(event)
	return &model.ScheduledEntry{SendAt: sendAt, Event: event, Raw: raw}
}

func TestTickDeliversDueEntriesInOrder(t *testing.T) {
	store := &fakeStore{}
	deliverer := &fakeDeliverer{}
	poller := newPoller(store, deliverer)

	now := time.Now().UnixMilli()
	store.Add(context.Background(), entryDueAt(now-100, "second"))
	store.Add(context.Background(), entryDueAt(now-200, "first"))
	store.Add(context.Background(), entryDueAt(now+60_000, "future"))

	require.NoError(t, poller.Tick(context.Background()))

	require.Equal(t, 2, deliverer.count())
	assert.Equal(t, "first", deliverer.delivered[0].Text)
	assert.Equal(t, "second", deliverer.delivered[1].Text)
	assert.Equal(t, 1, store.remaining()) // future entry stays
}

func TestTickRemovesEntryExactlyOnce(t *testing.T) {
	store := &fakeStore{}
	deliverer := &fakeDeliverer{}
	poller := newPoller(store, deliverer)

	now := time.Now().UnixMilli()
	store.Add(context.Background(), entryDueAt(now-100, "once"))

	require.NoError(t, poller.Tick(context.Background()))
	require.NoError(t, poller.Tick(context.Background()))

	assert.Equal(t, 1, deliverer.count())
	assert.Len(t, store.removed, 1)
}

func TestTickRemovesEntryWhenDeliveryFails(t *testing.T) {
	store := &fakeStore{}
	deliverer := &fakeDeliverer{err: errors.New("store down")}
	poller := newPoller(store, deliverer)

	now := time.Now().UnixMilli()
	store.Add(context.Background(), entryDueAt(now-100, "doomed"))

	require.NoError(t, poller.Tick(context.Background()))

	// Best-effort: no redelivery loop.
	assert.Equal(t, 0, store.remaining())
	assert.Len(t, store.removed, 1)
}

func TestTickDropsMalformedEntries(t *testing.T) {
	store := &fakeStore{}
	deliverer := &fakeDeliverer{}
	poller := newPoller(store, deliverer)

	now := time.Now().UnixMilli()
	store.Add(context.Background(), &model.ScheduledEntry{
		SendAt: now - 100,
		Raw:    json.RawMessage(`{"garbage":`),
	})

	require.NoError(t, poller.Tick(context.Background()))

	assert.Equal(t, 0, deliverer.count())
	assert.Equal(t, 0, store.remaining())
}

func TestTickPropagatesFetchErrors(t *testing.T) {
	store := &fakeStore{dueErr: errors.New("redis down")}
	poller := newPoller(store, &fakeDeliverer{})

	assert.Error(t, poller.Tick(context.Background()))
}

func TestRunDeliversWithinOneInterval(t *testing.T) {
	store := &fakeStore{}
	deliverer := &fakeDeliverer{}
	poller := newPoller(store, deliverer)

	now := time.Now().UnixMilli()
	store.Add(context.Background(), entryDueAt(now-100, "due now"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if deliverer.count() == 1 && store.remaining() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("due entry was not delivered within the poll interval")
}
