package average

// Event marks a step change: Value holds from Time until the next event.
type Event struct {
	Time  uint64
	Value float64
}

// Queue is the storage the tracker keeps its retained events in.
// Front, Back and PopFront are only called on a non-empty queue.
type Queue interface {
	PushBack(e Event)
	PopFront() Event
	Front() Event
	Back() Event
	Len() int
}

// Ring is a growable ring buffer of events. It doubles its capacity
// when full and never shrinks.
type Ring struct {
	buf  []Event
	head int
	n    int
}

func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{buf: make([]Event, capacity)}
}

func (r *Ring) PushBack(e Event) {
	if r.n == len(r.buf) {
		r.grow()
	}
	r.buf[(r.head+r.n)%len(r.buf)] = e
	r.n++
}

func (r *Ring) PopFront() Event {
	if r.n == 0 {
		panic("average: PopFront on empty ring")
	}
	e := r.buf[r.head]
	r.buf[r.head] = Event{}
	r.head = (r.head + 1) % len(r.buf)
	r.n--
	return e
}

func (r *Ring) Front() Event {
	return r.buf[r.head]
}

func (r *Ring) Back() Event {
	return r.buf[(r.head+r.n-1)%len(r.buf)]
}

func (r *Ring) Len() int {
	return r.n
}

func (r *Ring) Cap() int {
	return len(r.buf)
}

func (r *Ring) grow() {
	buf := make([]Event, 2*len(r.buf))
	for i := 0; i < r.n; i++ {
		buf[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	r.buf = buf
	r.head = 0
}
