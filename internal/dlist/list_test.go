package dlist

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushBackOrder(t *testing.T) {
	var l List[int]
	a := &Node[int]{Value: 1}
	b := &Node[int]{Value: 2}
	c := &Node[int]{Value: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	require.Equal(t, 3, l.Len())
	var got []int
	l.Do(func(n *Node[int]) { got = append(got, n.Value) })
	require.Equal(t, []int{1, 2, 3}, got)
}

func TestPushFront(t *testing.T) {
	var l List[string]
	a := &Node[string]{Value: "a"}
	b := &Node[string]{Value: "b"}
	l.PushBack(a)
	l.PushFront(b)

	require.Equal(t, b, l.Front())
	require.Equal(t, a, l.Back())
}

func TestRemoveDetaches(t *testing.T) {
	var l List[int]
	a := &Node[int]{Value: 1}
	b := &Node[int]{Value: 2}
	c := &Node[int]{Value: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.Remove(b)
	require.Equal(t, 2, l.Len())
	require.Nil(t, b.List())

	var got []int
	l.Do(func(n *Node[int]) { got = append(got, n.Value) })
	require.Equal(t, []int{1, 3}, got)

	// removing again is a no-op
	l.Remove(b)
	require.Equal(t, 2, l.Len())
}

func TestPopFront(t *testing.T) {
	var l List[int]
	require.Nil(t, l.PopFront())

	a := &Node[int]{Value: 1}
	b := &Node[int]{Value: 2}
	l.PushBack(a)
	l.PushBack(b)

	got := l.PopFront()
	require.Same(t, a, got)
	require.Equal(t, 1, l.Len())
	require.Nil(t, a.List())
}

func TestMoveToBackRotation(t *testing.T) {
	var l List[int]
	a := &Node[int]{Value: 1}
	b := &Node[int]{Value: 2}
	c := &Node[int]{Value: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.MoveToBack(a)

	var got []int
	l.Do(func(n *Node[int]) { got = append(got, n.Value) })
	require.Equal(t, []int{2, 3, 1}, got)
	require.Equal(t, 3, l.Len())
}

func TestSingleListMembership(t *testing.T) {
	var ready, blocked List[int]
	n := &Node[int]{Value: 7}

	ready.PushBack(n)
	require.Equal(t, &ready, n.List())

	ready.Remove(n)
	blocked.PushBack(n)
	require.Equal(t, &blocked, n.List())
	require.Equal(t, 0, ready.Len())
	require.Equal(t, 1, blocked.Len())
}
