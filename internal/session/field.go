package session

// Ticket identifies one submission of a field edit. Tickets of a field
// increase monotonically.
type Ticket uint64

// Field tracks the committed value of one editable attribute and the edit
// currently in flight. Responses are matched by ticket, so a response that
// arrives after a newer one has been applied is discarded.
//
// Field is not safe for concurrent use; the Coordinator guards it with its
// own lock.
type Field[T any] struct {
	committed    T
	staged       T
	pending      bool
	latest       Ticket
	committedSeq Ticket
	outstanding  int
}

// NewField returns a field committed at v.
func NewField[T any](v T) *Field[T] {
	return &Field[T]{committed: v}
}

// Stage records an optimistic value and returns the ticket its response
// must carry.
func (f *Field[T]) Stage(v T) Ticket {
	f.latest++
	f.staged = v
	f.pending = true
	f.outstanding++
	return f.latest
}

// Succeed applies the value echoed for ticket t. Responses older than the
// last applied one are ignored. It reports whether the displayed value
// changed to the committed one.
func (f *Field[T]) Succeed(t Ticket, v T) bool {
	f.resolve()
	if t <= f.committedSeq {
		return false
	}
	f.committed = v
	f.committedSeq = t
	if t == f.latest {
		f.pending = false
	}
	return !f.pending
}

// Fail reverts to the committed value when t is the newest submission. A
// failure of a superseded submission changes nothing. It reports whether
// the displayed value reverted.
func (f *Field[T]) Fail(t Ticket) bool {
	f.resolve()
	if t != f.latest || !f.pending {
		return false
	}
	f.pending = false
	return true
}

func (f *Field[T]) resolve() {
	if f.outstanding > 0 {
		f.outstanding--
	}
}

// Value is what the user sees: the staged value while an edit is pending,
// the committed one otherwise.
func (f *Field[T]) Value() T {
	if f.pending {
		return f.staged
	}
	return f.committed
}

func (f *Field[T]) Committed() T { return f.committed }
func (f *Field[T]) Pending() bool { return f.pending }

// Outstanding is the number of submissions without a response yet.
func (f *Field[T]) Outstanding() int { return f.outstanding }
