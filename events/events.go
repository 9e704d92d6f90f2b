package events

import "sync"

// Event is published once for every point a chart accepts.
type Event struct {
	ChartKey  string
	SeriesKey string
	X         float64
	Y         float64
}

// Hub fans values out to subscribers. A normal subscriber whose buffer is full misses that value.
// A lossless subscriber makes Broadcast wait until it has room, so a slow reader slows the
// producer down instead of losing values.
type Hub[T any] struct {
	// sending serialises Broadcast so lossless subscribers see values in order, and lets cancel
	// wait for a blocked send to give up before closing the channel
	sending sync.Mutex

	mu      sync.Mutex
	subs    map[int]*subscriber[T]
	next    int
	last    T
	hasLast bool
	// replayLast sends the most recent value to new subscribers
	replayLast bool
}

type subscriber[T any] struct {
	ch       chan T
	lossless bool
	done     chan struct{}
	once     sync.Once
}

func NewHub[T any](replayLast bool) *Hub[T] {
	return &Hub[T]{subs: map[int]*subscriber[T]{}, replayLast: replayLast}
}

// NewEventHub is the hub charts publish point events on.
func NewEventHub() *Hub[*Event] {
	return NewHub[*Event](false)
}

func (h *Hub[T]) Subscribe(buffer int) (int, <-chan T, func()) {
	return h.subscribe(buffer, false)
}

// SubscribeLossless is Subscribe for readers that must see every value, such as a recorder.
func (h *Hub[T]) SubscribeLossless(buffer int) (int, <-chan T, func()) {
	return h.subscribe(buffer, true)
}

func (h *Hub[T]) subscribe(buffer int, lossless bool) (int, <-chan T, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if buffer < 1 {
		buffer = 1
	}
	id := h.next
	h.next++
	sub := &subscriber[T]{
		ch:       make(chan T, buffer),
		lossless: lossless,
		done:     make(chan struct{}),
	}
	if h.replayLast && h.hasLast {
		sub.ch <- h.last
	}
	h.subs[id] = sub
	cancel := func() {
		sub.once.Do(func() {
			close(sub.done)
			h.sending.Lock()
			defer h.sending.Unlock()
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			close(sub.ch)
		})
	}
	return id, sub.ch, cancel
}

func (h *Hub[T]) Broadcast(value T) {
	h.sending.Lock()
	defer h.sending.Unlock()

	h.mu.Lock()
	h.last = value
	h.hasLast = true
	var waiting []*subscriber[T]
	for _, sub := range h.subs {
		select {
		case sub.ch <- value:
		default:
			if sub.lossless {
				waiting = append(waiting, sub)
			}
		}
	}
	h.mu.Unlock()

	for _, sub := range waiting {
		select {
		case sub.ch <- value:
		case <-sub.done:
		}
	}
}

func (h *Hub[T]) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
