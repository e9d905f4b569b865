package swd

import "sync/atomic"

// QueueCapacity is the number of commands the ring can hold at once
// (spec.md §3, §8 scenario 3). The backing array is one element larger
// so that the full/empty discipline below never needs to sacrifice a
// slot off the advertised capacity -- see DESIGN.md for why this departs
// slightly from the reference C queue, which advertises 64 but can only
// ever hold 63 at a time.
const QueueCapacity = 64

const ringSize = QueueCapacity + 1

// Queue is a single-producer/single-consumer bounded ring of Commands
// (spec.md §4.D). The producer (foreground USB context) is the only
// writer of head; the consumer (bit-engine/timer-ISR context) is the
// only writer of tail. Both indices are read by the other side through
// atomics, standing in for the release/acquire discipline or brief
// interrupt masking the spec allows on real hardware.
type Queue struct {
	buf  [ringSize]Command
	head atomic.Uint32 // next write position; producer-owned
	tail atomic.Uint32 // next read position; consumer-owned
}

func ringNext(i uint32) uint32 {
	next := i + 1
	if next == ringSize {
		return 0
	}
	return next
}

// TryPush enqueues cmd, returning false if the queue is full. Called
// only from the foreground context.
func (q *Queue) TryPush(cmd Command) bool {
	head := q.head.Load()
	tail := q.tail.Load()
	if ringNext(head) == tail {
		return false
	}
	q.buf[head] = cmd
	q.head.Store(ringNext(head))
	return true
}

// TryPop dequeues the oldest Command, returning false if the queue is
// empty. Called only from the bit-engine/timer-ISR context.
func (q *Queue) TryPop() (Command, bool) {
	tail := q.tail.Load()
	head := q.head.Load()
	if head == tail {
		return Command{}, false
	}
	cmd := q.buf[tail]
	q.tail.Store(ringNext(tail))
	return cmd, true
}

// Empty reports whether the queue currently holds no commands. Safe to
// call from either side; the result may be stale by the time it is
// acted upon if called from the non-owning side.
func (q *Queue) Empty() bool {
	return q.head.Load() == q.tail.Load()
}
