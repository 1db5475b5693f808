package worklist

import "errors"

var ErrEmpty = errors.New("worklist is empty")

// Queue is a FIFO worklist.
type Queue[E any] struct {
	elements []E
}

func (q *Queue[E]) Push(e E) {
	q.elements = append(q.elements, e)
}

func (q *Queue[E]) Extend(es []E) {
	q.elements = append(q.elements, es...)
}

func (q *Queue[E]) Empty() bool {
	return len(q.elements) == 0
}

func (q *Queue[E]) Pop() E {
	if q.Empty() {
		panic(ErrEmpty)
	}

	e := q.elements[0]
	q.elements = q.elements[1:]
	return e
}

// Stack is a LIFO worklist. Pushing subfields in reverse declaration order
// makes a traversal pop them in declaration order.
type Stack[E any] struct {
	elements []E
}

func (s *Stack[E]) Push(e E) {
	s.elements = append(s.elements, e)
}

func (s *Stack[E]) Extend(es []E) {
	s.elements = append(s.elements, es...)
}

func (s *Stack[E]) Empty() bool {
	return len(s.elements) == 0
}

func (s *Stack[E]) Pop() E {
	if s.Empty() {
		panic(ErrEmpty)
	}

	e := s.elements[len(s.elements)-1]
	s.elements = s.elements[:len(s.elements)-1]
	return e
}
