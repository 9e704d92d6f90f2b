package models

import "github.com/gammazero/deque"

// buffer is a bounded FIFO of points. Pushing past capacity drops the oldest point.
type buffer struct {
	points   deque.Deque[DataPoint]
	capacity int
}

func newBuffer(capacity int) *buffer {
	return &buffer{capacity: capacity}
}

func (b *buffer) len() int {
	return b.points.Len()
}

func (b *buffer) cap() int {
	return b.capacity
}

func (b *buffer) at(i int) DataPoint {
	return b.points.At(i)
}

func (b *buffer) front() DataPoint {
	return b.points.Front()
}

func (b *buffer) back() DataPoint {
	return b.points.Back()
}

func (b *buffer) push(p DataPoint) {
	b.points.PushBack(p)
	b.trim()
}

// pushAll appends points in order. Only the newest cap() points of a large batch are ever pushed.
func (b *buffer) pushAll(points []DataPoint) {
	if len(points) > b.capacity {
		points = points[len(points)-b.capacity:]
	}
	for _, p := range points {
		b.points.PushBack(p)
	}
	b.trim()
}

func (b *buffer) popFront() {
	b.points.PopFront()
}

func (b *buffer) clear() {
	b.points.Clear()
}

// setCap changes the capacity, dropping the oldest points that no longer fit.
func (b *buffer) setCap(capacity int) {
	b.capacity = capacity
	b.trim()
}

func (b *buffer) trim() {
	for b.points.Len() > b.capacity {
		b.points.PopFront()
	}
}

// slice copies the contents oldest first.
func (b *buffer) slice() []DataPoint {
	return b.tail(0)
}

// tail copies the newest n points oldest first. n <= 0 copies everything.
func (b *buffer) tail(n int) []DataPoint {
	size := b.points.Len()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]DataPoint, n)
	for i := range out {
		out[i] = b.points.At(size - n + i)
	}
	return out
}
