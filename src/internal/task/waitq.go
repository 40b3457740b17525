package task

// WaitQueue holds the tasks blocked on one object. Tasks are kept in
// descending priority order and, among tasks of equal priority, in the order
// they arrived. The zero value is an empty queue.
type WaitQueue struct {
	list List
}

// Insert adds a task in front of the first waiter that it is strictly more
// urgent than. Using a strict comparison is what keeps equal priorities FIFO.
func (q *WaitQueue) Insert(t *Task) {
	for w := q.list.head; w != nil; w = w.next {
		if t.IsHigherThan(w) {
			q.list.InsertBefore(t, w)
			t.waitQ = q
			return
		}
	}
	q.list.PushBack(t)
	t.waitQ = q
}

// Remove takes a task off the queue.
func (q *WaitQueue) Remove(t *Task) {
	if t.waitQ != q {
		Panic("task: removing a task that is not on this wait queue")
	}
	q.list.Remove(t)
	t.waitQ = nil
}

// First returns the task that would be woken next, or nil.
func (q *WaitQueue) First() *Task {
	return q.list.head
}

// Empty checks if nobody is waiting.
func (q *WaitQueue) Empty() bool {
	return q.list.Empty()
}

// Len returns the number of waiters.
func (q *WaitQueue) Len() int {
	return q.list.Len()
}

// Walk calls fn on each waiter in wake-up order until fn returns false.
func (q *WaitQueue) Walk(fn func(t *Task) bool) {
	q.list.Walk(fn)
}
