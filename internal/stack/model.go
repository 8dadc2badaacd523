// Package stack implements EVM stack scheduling (spec §4.5): tracking the
// abstract stack through a block's instructions and emitting the minimal
// DUP/SWAP/POP sequence needed to present each instruction's operands in
// the order it expects them.
package stack

import "evmc/internal/mir"

// MaxStackAccess is the deepest slot DUP/SWAP can reach (DUP16/SWAP16
// address stack[1..16]); a value below this depth must be spilled to
// memory before it can be used again.
const MaxStackAccess = 16

// Model tracks the EVM operand stack as a slice of ValueIds, top-of-stack
// last. A nil entry ("unknown") marks a slot whose producing instruction's
// result we intentionally don't track (e.g. a value that becomes stale
// across a loop back-edge) -- it still occupies a slot but can never be
// found by value.
type Model struct {
	slots []mir.ValueId // index 0 = bottom, last index = top
	known []bool
}

func NewModel() *Model { return &Model{} }

func (m *Model) Depth() int { return len(m.slots) }

func (m *Model) Push(v mir.ValueId) {
	m.slots = append(m.slots, v)
	m.known = append(m.known, true)
}

func (m *Model) PushUnknown() {
	m.slots = append(m.slots, mir.InvalidID)
	m.known = append(m.known, false)
}

func (m *Model) Pop() {
	if len(m.slots) == 0 {
		return
	}
	m.slots = m.slots[:len(m.slots)-1]
	m.known = m.known[:len(m.known)-1]
}

func (m *Model) Clear() {
	m.slots = nil
	m.known = nil
}

// Top returns the value on top of the stack and whether its identity is
// known (false for an unknown/untracked slot, or an empty stack).
func (m *Model) Top() (mir.ValueId, bool) {
	return m.Peek(0)
}

// Peek returns the value at the given depth below the top (0 = top) and
// whether it's a known value.
func (m *Model) Peek(depth int) (mir.ValueId, bool) {
	idx := len(m.slots) - 1 - depth
	if idx < 0 || idx >= len(m.slots) || !m.known[idx] {
		return mir.InvalidID, false
	}
	return m.slots[idx], true
}

// Find returns the depth (0 = top) of the first occurrence of v, scanning
// from the top since the most recently pushed copy is what DUP would reach
// cheapest.
func (m *Model) Find(v mir.ValueId) (int, bool) {
	for depth := 0; depth < len(m.slots); depth++ {
		idx := len(m.slots) - 1 - depth
		if m.known[idx] && m.slots[idx] == v {
			return depth, true
		}
	}
	return 0, false
}

func (m *Model) IsOnTop(v mir.ValueId) bool {
	top, ok := m.Top()
	return ok && top == v
}

// Dup duplicates the value at 1-based depth n (DUPn addresses stack[n-1]
// from the top) onto the top.
func (m *Model) Dup(n uint8) {
	idx := len(m.slots) - int(n)
	if idx < 0 {
		return
	}
	m.slots = append(m.slots, m.slots[idx])
	m.known = append(m.known, m.known[idx])
}

// Swap exchanges the top with the value at 1-based depth n (SWAPn swaps
// stack[0] and stack[n]).
func (m *Model) Swap(n uint8) {
	top := len(m.slots) - 1
	other := top - int(n)
	if other < 0 {
		return
	}
	m.slots[top], m.slots[other] = m.slots[other], m.slots[top]
	m.known[top], m.known[other] = m.known[other], m.known[top]
}
