package minijs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFifoOrder(t *testing.T) {
	q := newFifo[int]()
	assert.True(t, q.IsEmpty())

	for i := 0; i < 100; i++ {
		q.Enqueue(i)
	}
	assert.Equal(t, 100, q.Len())

	for i := 0; i < 100; i++ {
		got, ok := q.Dequeue()
		assert.True(t, ok)
		assert.Equal(t, i, got)
	}

	_, ok := q.Dequeue()
	assert.False(t, ok)
}

func TestFifoInterleaved(t *testing.T) {
	q := newFifo[string]()
	q.Enqueue("a")
	q.Enqueue("b")

	got, _ := q.Dequeue()
	assert.Equal(t, "a", got)

	q.Enqueue("c")
	got, _ = q.Dequeue()
	assert.Equal(t, "b", got)
	got, _ = q.Dequeue()
	assert.Equal(t, "c", got)
	assert.True(t, q.IsEmpty())
}
