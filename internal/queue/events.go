package queue

import "sync"

// EventKind is a job lifecycle transition.
type EventKind int

const (
	EventWaiting EventKind = iota
	EventActive
	EventCompleted
	EventFailed
	EventStalled
)

// String returns the string representation of EventKind.
func (k EventKind) String() string {
	switch k {
	case EventWaiting:
		return "waiting"
	case EventActive:
		return "active"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	case EventStalled:
		return "stalled"
	default:
		return "unknown"
	}
}

// Event reports one lifecycle transition. Result is set for EventCompleted,
// Err for EventFailed and EventStalled.
type Event[P, R any] struct {
	Kind   EventKind
	Job    *Job[P]
	Result R
	Err    error
}

// pump delivers values to out in order without ever blocking the producer.
type pump[T any] struct {
	mu     sync.Mutex
	buf    []T
	closed bool
	signal chan struct{}
	done   chan struct{}
	out    chan T
}

func newPump[T any]() *pump[T] {
	p := &pump[T]{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan T),
	}
	go p.run()
	return p
}

func (p *pump[T]) push(v T) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.buf = append(p.buf, v)
	p.mu.Unlock()

	select {
	case p.signal <- struct{}{}:
	default:
	}
}

func (p *pump[T]) run() {
	defer close(p.out)
	for {
		p.mu.Lock()
		if len(p.buf) == 0 {
			p.mu.Unlock()
			select {
			case <-p.signal:
				continue
			case <-p.done:
				return
			}
		}
		v := p.buf[0]
		var zero T
		p.buf[0] = zero
		p.buf = p.buf[1:]
		p.mu.Unlock()

		select {
		case p.out <- v:
		case <-p.done:
			return
		}
	}
}

func (p *pump[T]) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.buf = nil
	close(p.done)
}
