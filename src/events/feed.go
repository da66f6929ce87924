package events

import "sync"

// Feed is an in-process Sink that delivers events to subscribed channels.
// Delivery never blocks the emitter: a subscriber whose buffer is full misses
// the event.
type Feed struct {
	sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// NewFeed ...
func NewFeed() *Feed {
	return &Feed{
		subs: make(map[int]chan Event),
	}
}

// Subscribe returns a channel receiving every event emitted from now on, and a
// function that cancels the subscription and closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Event, func()) {
	f.Lock()
	defer f.Unlock()

	id := f.nextSub
	f.nextSub++

	ch := make(chan Event, buffer)
	f.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.Lock()
			defer f.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}

	return ch, cancel
}

// Emit implements the Sink interface.
func (f *Feed) Emit(ev Event) {
	f.Lock()
	defer f.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
