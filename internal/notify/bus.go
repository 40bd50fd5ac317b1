// Package notify fans queue changes out to live subscribers: the list
// channel carries the whole queue, item channels carry one item's output.
package notify

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/cesargomez89/tidarr/internal/domain"
	"github.com/cesargomez89/tidarr/internal/logger"
)

var (
	// ErrClosed is returned by a subscriber whose transport has gone away.
	ErrClosed = errors.New("notify: subscriber closed")
	// ErrSlow is returned when a subscriber cannot keep up.
	ErrSlow = errors.New("notify: subscriber buffer full")
)

// Subscriber is one live connection. Send must not block.
type Subscriber interface {
	ID() string
	Send(payload []byte) error
}

// OutputMessage is pushed on an item channel.
type OutputMessage struct {
	ID     string `json:"id"`
	Output string `json:"output"`
}

type Bus struct {
	mu    sync.RWMutex
	list  map[string]Subscriber
	items map[string]map[string]Subscriber
	log   *logger.Logger
}

func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		list:  make(map[string]Subscriber),
		items: make(map[string]map[string]Subscriber),
		log:   log.WithComponent("notify"),
	}
}

// SubscribeList registers sub for full list updates.
func (b *Bus) SubscribeList(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.list[sub.ID()] = sub
}

// SubscribeItem registers sub for output updates of one item.
func (b *Bus) SubscribeItem(itemID string, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs, ok := b.items[itemID]
	if !ok {
		subs = make(map[string]Subscriber)
		b.items[itemID] = subs
	}
	subs[sub.ID()] = sub
}

// Unsubscribe removes sub from every channel it joined.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(sub.ID())
}

func (b *Bus) removeLocked(subID string) {
	delete(b.list, subID)
	for itemID, subs := range b.items {
		delete(subs, subID)
		if len(subs) == 0 {
			delete(b.items, itemID)
		}
	}
}

// PublishList pushes the current queue to list subscribers. Process handles
// and output are never part of the payload.
func (b *Bus) PublishList(items []domain.Item) {
	payload, err := EncodeList(items)
	if err != nil {
		b.log.Error("Failed to encode item list", "error", err)
		return
	}

	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.list))
	for _, sub := range b.list {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	b.deliver(targets, payload, "list")
}

// PublishOutput pushes {id, output} to subscribers of that item only.
func (b *Bus) PublishOutput(id, output string) {
	b.mu.RLock()
	subs := b.items[id]
	targets := make([]Subscriber, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	payload, err := json.Marshal(OutputMessage{ID: id, Output: output})
	if err != nil {
		b.log.Error("Failed to encode item output", "item_id", id, "error", err)
		return
	}

	b.deliver(targets, payload, id)
}

func (b *Bus) deliver(targets []Subscriber, payload []byte, channel string) {
	var closed []string
	for _, sub := range targets {
		if err := sub.Send(payload); err != nil {
			b.log.Warn("Failed to push update", "channel", channel, "subscriber", sub.ID(), "error", err)
			if errors.Is(err, ErrClosed) {
				closed = append(closed, sub.ID())
			}
		}
	}
	if len(closed) == 0 {
		return
	}

	b.mu.Lock()
	for _, id := range closed {
		b.removeLocked(id)
	}
	b.mu.Unlock()
}

// Counts returns the number of list subscribers and item subscriptions.
func (b *Bus) Counts() (list, items int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, subs := range b.items {
		items += len(subs)
	}
	return len(b.list), items
}

// EncodeList renders items the way the list channel sends them.
func EncodeList(items []domain.Item) ([]byte, error) {
	out := make([]domain.Item, len(items))
	for i := range items {
		out[i] = items[i].Snapshot()
	}
	return json.Marshal(out)
}
