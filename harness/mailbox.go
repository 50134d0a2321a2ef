package harness

import "time"

// Mailbox is a single-slot, non-blocking channel wrapper. The browser
// harness runs one test at a time: a full slot on send is a protocol
// violation, not a queueing situation.
type Mailbox[T any] struct {
	slot chan T
}

func NewMailbox[T any]() *Mailbox[T] {
	return &Mailbox[T]{slot: make(chan T, 1)}
}

// TrySend places v in the slot, reporting false if it is already occupied.
func (m *Mailbox[T]) TrySend(v T) bool {
	select {
	case m.slot <- v:
		return true
	default:
		return false
	}
}

// TryRecv takes the slot's value if present.
func (m *Mailbox[T]) TryRecv() (T, bool) {
	select {
	case v := <-m.slot:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Recv waits up to timeout for a value.
func (m *Mailbox[T]) Recv(timeout time.Duration) (T, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case v := <-m.slot:
		return v, true
	case <-timer.C:
		var zero T
		return zero, false
	}
}

// Drain empties the slot, returning how many values were discarded.
func (m *Mailbox[T]) Drain() int {
	count := 0
	for {
		select {
		case <-m.slot:
			count++
		default:
			return count
		}
	}
}
