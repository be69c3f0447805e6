package minijs

// fifo is a queue over a circular buffer. The event loop depends on it
// preserving strict enqueue order.
type fifo[T any] struct {
	items    []T
	head     int
	tail     int
	size     int
	capacity int
}

func newFifo[T any]() *fifo[T] {
	return &fifo[T]{
		items:    make([]T, 8),
		capacity: 8,
	}
}

func (q *fifo[T]) Enqueue(value T) {
	if q.size == q.capacity {
		q.resize()
	}

	q.items[q.tail] = value
	q.tail = (q.tail + 1) % q.capacity
	q.size++
}

func (q *fifo[T]) Dequeue() (T, bool) {
	var zero T
	if q.size == 0 {
		return zero, false
	}

	value := q.items[q.head]
	q.items[q.head] = zero
	q.head = (q.head + 1) % q.capacity
	q.size--

	return value, true
}

func (q *fifo[T]) Len() int {
	return q.size
}

func (q *fifo[T]) IsEmpty() bool {
	return q.size == 0
}

func (q *fifo[T]) resize() {
	newCapacity := q.capacity * 2
	newItems := make([]T, newCapacity)

	for i := 0; i < q.size; i++ {
		newItems[i] = q.items[(q.head+i)%q.capacity]
	}

	q.items = newItems
	q.head = 0
	q.tail = q.size
	q.capacity = newCapacity
}
