package interpreter

// Stack is a LIFO value stack.
type Stack[T any] struct {
	inner []T
}

func NewStack[T any]() *Stack[T] {
	return &Stack[T]{inner: make([]T, 0, 16)}
}

func (s *Stack[T]) IsEmpty() bool { return len(s.inner) == 0 }

func (s *Stack[T]) Len() int { return len(s.inner) }

func (s *Stack[T]) Push(v T) {
	s.inner = append(s.inner, v)
}

// Pop1 removes and returns the top value.
func (s *Stack[T]) Pop1() (T, bool) {
	var zero T
	if len(s.inner) == 0 {
		return zero, false
	}
	v := s.inner[len(s.inner)-1]
	s.inner[len(s.inner)-1] = zero
	s.inner = s.inner[:len(s.inner)-1]
	return v, true
}

// Pop removes the top n values and returns them oldest first. Nothing is
// removed when the stack holds fewer than n values.
func (s *Stack[T]) Pop(n int) ([]T, bool) {
	if n < 0 || n > len(s.inner) {
		return nil, false
	}
	split := len(s.inner) - n
	out := make([]T, n)
	copy(out, s.inner[split:])
	clear(s.inner[split:])
	s.inner = s.inner[:split]
	return out, true
}

// Peek1 returns the top value without removing it.
func (s *Stack[T]) Peek1() (T, bool) {
	if len(s.inner) == 0 {
		var zero T
		return zero, false
	}
	return s.inner[len(s.inner)-1], true
}

// Values returns a copy of the stack contents, bottom first.
func (s *Stack[T]) Values() []T {
	out := make([]T, len(s.inner))
	copy(out, s.inner)
	return out
}
