package arg

import (
	"container/heap"
	"container/list"
	"fmt"
	"strings"
)

// Waitlist orders the nodes still to be processed.
type Waitlist[T any] interface {
	Add(item T)
	AddAll(items []T)
	// Remove pops the next item; ok is false when the list is empty.
	Remove() (item T, ok bool)
	Len() int
	Clear()
}

// fifo and lifo share the list-backed worklist.
type linked[T any] struct {
	items *list.List
	front bool
}

// NewFIFO returns a queue, giving breadth-first exploration.
func NewFIFO[T any]() Waitlist[T] { return &linked[T]{items: list.New()} }

// NewLIFO returns a stack, giving depth-first exploration.
func NewLIFO[T any]() Waitlist[T] { return &linked[T]{items: list.New(), front: true} }

func (w *linked[T]) Add(item T) {
	if w.front {
		w.items.PushFront(item)
		return
	}
	w.items.PushBack(item)
}

func (w *linked[T]) AddAll(items []T) {
	for _, it := range items {
		w.Add(it)
	}
}

func (w *linked[T]) Remove() (T, bool) {
	e := w.items.Front()
	if e == nil {
		var zero T
		return zero, false
	}
	w.items.Remove(e)
	return e.Value.(T), true
}

func (w *linked[T]) Len() int { return w.items.Len() }
func (w *linked[T]) Clear()   { w.items.Init() }

// Compare returns a negative number when a should be removed before b.
type Compare[T any] func(a, b T) int

type entry[T any] struct {
	item T
	seq  uint64
}

type entries[T any] struct {
	items []entry[T]
	cmp   Compare[T]
}

func (e *entries[T]) Len() int      { return len(e.items) }
func (e *entries[T]) Swap(i, j int) { e.items[i], e.items[j] = e.items[j], e.items[i] }
func (e *entries[T]) Push(x any)    { e.items = append(e.items, x.(entry[T])) }

func (e *entries[T]) Less(i, j int) bool {
	if c := e.cmp(e.items[i].item, e.items[j].item); c != 0 {
		return c < 0
	}
	return e.items[i].seq < e.items[j].seq
}

func (e *entries[T]) Pop() any {
	old := e.items
	n := len(old)
	it := old[n-1]
	e.items = old[:n-1]
	return it
}

type priority[T any] struct {
	heap *entries[T]
	seq  uint64
}

// NewPriority returns a waitlist ordered by cmp. Items that compare equal
// come out in insertion order.
func NewPriority[T any](cmp Compare[T]) Waitlist[T] {
	return &priority[T]{heap: &entries[T]{cmp: cmp}}
}

func (w *priority[T]) Add(item T) {
	heap.Push(w.heap, entry[T]{item: item, seq: w.seq})
	w.seq++
}

func (w *priority[T]) AddAll(items []T) {
	for _, it := range items {
		w.Add(it)
	}
}

func (w *priority[T]) Remove() (T, bool) {
	if w.heap.Len() == 0 {
		var zero T
		return zero, false
	}
	return heap.Pop(w.heap).(entry[T]).item, true
}

func (w *priority[T]) Len() int { return w.heap.Len() }
func (w *priority[T]) Clear()   { w.heap.items = nil }

// TargetFirst orders target nodes before the others.
func TargetFirst[S, A any](a, b *Node[S, A]) int {
	switch {
	case a.target == b.target:
		return 0
	case a.target:
		return -1
	default:
		return 1
	}
}

// Shallowest orders nodes by increasing depth.
func Shallowest[S, A any](a, b *Node[S, A]) int { return a.depth - b.depth }

// Deepest orders nodes by decreasing depth.
func Deepest[S, A any](a, b *Node[S, A]) int { return b.depth - a.depth }

// Chain tries each comparator in turn until one decides.
func Chain[T any](cmps ...Compare[T]) Compare[T] {
	return func(a, b T) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

// Search names a node ordering.
type Search int

const (
	BFS Search = iota
	DFS
	TargetFirstSearch
)

func (s Search) String() string {
	switch s {
	case BFS:
		return "bfs"
	case DFS:
		return "dfs"
	case TargetFirstSearch:
		return "target-first"
	}
	return fmt.Sprintf("Search(%d)", int(s))
}

// ParseSearch accepts bfs, dfs and target-first.
func ParseSearch(s string) (Search, error) {
	switch strings.ToLower(s) {
	case "bfs", "":
		return BFS, nil
	case "dfs":
		return DFS, nil
	case "target-first", "target":
		return TargetFirstSearch, nil
	}
	return 0, fmt.Errorf("unknown search %q", s)
}

// NewWaitlist builds the node waitlist for a search strategy. Target-first
// search explores shallow nodes first among non-targets.
func NewWaitlist[S, A any](s Search) Waitlist[*Node[S, A]] {
	switch s {
	case DFS:
		return NewLIFO[*Node[S, A]]()
	case TargetFirstSearch:
		return NewPriority(Chain(TargetFirst[S, A], Shallowest[S, A]))
	default:
		return NewFIFO[*Node[S, A]]()
	}
}
