package events

import (
	"log/slog"
	"sync"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
)

// Listener receives events published on the channel it subscribed to.
type Listener func(domain.Event)

// Handle identifies one subscription. The zero Handle is never issued.
type Handle uint64

type subscription struct {
	handle Handle
	fn     Listener
}

// Bus is a registry of listeners for the four fixed channels.
// Subscribing and unsubscribing are safe for concurrent use; publication copies the
// listener list first, so a listener may unsubscribe itself while being called.
type Bus struct {
	mu        sync.RWMutex
	listeners map[domain.Channel][]subscription
	next      Handle
	logger    *slog.Logger
}

// Option configures the Bus.
type Option func(*Bus)

// WithLogger sets the logger used to report invalid subscriptions.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates an empty bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		listeners: make(map[domain.Channel][]subscription, len(domain.Channels)),
		logger:    logging.NewNop(),
	}
	for _, ch := range domain.Channels {
		b.listeners[ch] = nil
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe appends fn to the channel's listeners and returns its handle.
// It logs and returns false when fn is nil or the channel is unknown.
func (b *Bus) Subscribe(ch domain.Channel, fn Listener) (Handle, bool) {
	if fn == nil {
		b.logger.Error("subscribe rejected", "channel", ch, "err", domain.ErrNilListener)
		return 0, false
	}
	if !ch.Valid() {
		b.logger.Error("subscribe rejected", "channel", ch, "err", domain.ErrUnknownChannel)
		return 0, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	h := b.next
	b.listeners[ch] = append(b.listeners[ch], subscription{handle: h, fn: fn})
	return h, true
}

// Unsubscribe removes the subscription identified by h. Unknown channels are logged and ignored.
func (b *Bus) Unsubscribe(ch domain.Channel, h Handle) {
	if !ch.Valid() {
		b.logger.Error("unsubscribe rejected", "channel", ch, "err", domain.ErrUnknownChannel)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.listeners[ch]
	kept := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.handle != h {
			kept = append(kept, s)
		}
	}
	b.listeners[ch] = kept
}

// Count returns the number of listeners on a channel.
func (b *Bus) Count(ch domain.Channel) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[ch])
}

// OnChange subscribes to change events, unwrapping the tree.
func (b *Bus) OnChange(fn func(tree domain.Node)) (Handle, bool) {
	if fn == nil {
		return b.Subscribe(domain.ChannelChange, nil)
	}
	return b.Subscribe(domain.ChannelChange, func(e domain.Event) {
		if e.Tree != nil {
			fn(*e.Tree)
		}
	})
}

// OnFlush subscribes to flush events.
func (b *Bus) OnFlush(fn func(flushed bool)) (Handle, bool) {
	if fn == nil {
		return b.Subscribe(domain.ChannelFlush, nil)
	}
	return b.Subscribe(domain.ChannelFlush, func(e domain.Event) { fn(e.Flushed) })
}

// OnElementUpdate subscribes to elementUpdate events.
func (b *Bus) OnElementUpdate(fn func(el domain.Element)) (Handle, bool) {
	if fn == nil {
		return b.Subscribe(domain.ChannelElementUpdate, nil)
	}
	return b.Subscribe(domain.ChannelElementUpdate, func(e domain.Event) {
		if e.Element != nil {
			fn(*e.Element)
		}
	})
}

// OnElementRemove subscribes to elementRemove events.
func (b *Bus) OnElementRemove(fn func(ev domain.RemoveEvent)) (Handle, bool) {
	if fn == nil {
		return b.Subscribe(domain.ChannelElementRemove, nil)
	}
	return b.Subscribe(domain.ChannelElementRemove, func(e domain.Event) {
		if e.Removal != nil {
			fn(*e.Removal)
		}
	})
}

// PublishChange announces the tree after a mutation.
func (b *Bus) PublishChange(tree domain.Node) {
	b.publish(domain.Event{Channel: domain.ChannelChange, Tree: &tree})
}

// PublishFlush announces that the tree was cleared.
// When withChange is set, a final change event with tree is published first.
func (b *Bus) PublishFlush(tree domain.Node, withChange bool) {
	if withChange {
		b.PublishChange(tree)
	}
	b.publish(domain.Event{Channel: domain.ChannelFlush, Flushed: true})
}

// PublishElementUpdate announces a content update of one element.
func (b *Bus) PublishElementUpdate(el domain.Element) {
	b.publish(domain.Event{Channel: domain.ChannelElementUpdate, Element: &el})
}

// PublishElementRemove announces the removal of one element.
func (b *Bus) PublishElementRemove(ev domain.RemoveEvent) {
	b.publish(domain.Event{Channel: domain.ChannelElementRemove, Removal: &ev})
}

func (b *Bus) publish(e domain.Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.listeners[e.Channel]))
	copy(subs, b.listeners[e.Channel])
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}
