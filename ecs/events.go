package ecs

// EventQueue is a FIFO of typed events. The zero value is ready to use.
type EventQueue[T any] struct {
	items []T
}

// Push adds an event.
func (q *EventQueue[T]) Push(evt T) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

func (q *EventQueue[T]) Len() int {
	if q == nil {
		return 0
	}
	return len(q.items)
}

// Items returns the queued events without removing them. The slice is only valid
// until the next Push or Clear.
func (q *EventQueue[T]) Items() []T {
	if q == nil {
		return nil
	}
	return q.items
}

// Drain returns all events and clears the queue.
func (q *EventQueue[T]) Drain() []T {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

// Clear empties the queue, keeping its storage.
func (q *EventQueue[T]) Clear() {
	if q == nil {
		return
	}
	clear(q.items)
	q.items = q.items[:0]
}
