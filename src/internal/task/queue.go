package task

// List is an intrusive FIFO of tasks, doubly linked so that any task can be
// removed in constant time. A task can be on at most one list at a time.
// The zero value is an empty list.
type List struct {
	head, tail *Task
}

// PushBack appends a task to the tail of the list.
func (l *List) PushBack(t *Task) {
	if t.list != nil {
		Panic("task: pushing a task that is already on a list")
	}
	t.prev = l.tail
	t.next = nil
	if l.tail != nil {
		l.tail.next = t
	} else {
		l.head = t
	}
	l.tail = t
	t.list = l
}

// InsertBefore links t into the list directly in front of mark, which must be
// on this list.
func (l *List) InsertBefore(t, mark *Task) {
	if t.list != nil {
		Panic("task: inserting a task that is already on a list")
	}
	if mark.list != l {
		Panic("task: insert position is not on this list")
	}
	t.next = mark
	t.prev = mark.prev
	if mark.prev != nil {
		mark.prev.next = t
	} else {
		l.head = t
	}
	mark.prev = t
	t.list = l
}

// Remove unlinks a task from the list.
func (l *List) Remove(t *Task) {
	if t.list != l {
		Panic("task: removing a task that is not on this list")
	}
	if t.prev != nil {
		t.prev.next = t.next
	} else {
		l.head = t.next
	}
	if t.next != nil {
		t.next.prev = t.prev
	} else {
		l.tail = t.prev
	}
	t.next, t.prev, t.list = nil, nil, nil
}

// Front returns the head of the list, or nil if it is empty.
func (l *List) Front() *Task {
	return l.head
}

// Back returns the tail of the list, or nil if it is empty.
func (l *List) Back() *Task {
	return l.tail
}

// Empty checks if the list is empty.
func (l *List) Empty() bool {
	return l.head == nil
}

// Len walks the list and counts its entries.
func (l *List) Len() int {
	n := 0
	for t := l.head; t != nil; t = t.next {
		n++
	}
	return n
}

// Walk calls fn on each task from head to tail until fn returns false.
// The list must not be modified from fn.
func (l *List) Walk(fn func(t *Task) bool) {
	for t := l.head; t != nil; t = t.next {
		if !fn(t) {
			return
		}
	}
}
