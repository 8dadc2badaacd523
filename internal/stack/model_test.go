package stack

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"evmc/internal/mir"
)

var _ = Describe("Model", func() {
	var m *Model

	BeforeEach(func() {
		m = NewModel()
	})

	Context("pushing and popping", func() {
		It("tracks depth across push/pop", func() {
			Expect(m.Depth()).To(Equal(0))
			m.Push(mir.ValueId(1))
			m.Push(mir.ValueId(2))
			Expect(m.Depth()).To(Equal(2))
			m.Pop()
			Expect(m.Depth()).To(Equal(1))
		})

		It("never goes negative when popping an empty stack", func() {
			m.Pop()
			Expect(m.Depth()).To(Equal(0))
		})

		It("reports the top value pushed", func() {
			m.Push(mir.ValueId(7))
			top, ok := m.Top()
			Expect(ok).To(BeTrue())
			Expect(top).To(Equal(mir.ValueId(7)))
		})
	})

	Context("unknown slots", func() {
		It("occupies a slot but is never found by value", func() {
			m.PushUnknown()
			Expect(m.Depth()).To(Equal(1))
			_, ok := m.Top()
			Expect(ok).To(BeFalse())
		})
	})

	Context("Find", func() {
		It("finds the most recently pushed occurrence first", func() {
			m.Push(mir.ValueId(1))
			m.Push(mir.ValueId(2))
			m.Push(mir.ValueId(1))
			depth, ok := m.Find(mir.ValueId(1))
			Expect(ok).To(BeTrue())
			Expect(depth).To(Equal(0))
		})

		It("reports not found for a value never pushed", func() {
			m.Push(mir.ValueId(1))
			_, ok := m.Find(mir.ValueId(99))
			Expect(ok).To(BeFalse())
		})
	})

	Context("Dup", func() {
		It("duplicates the value at the given 1-based depth onto the top", func() {
			m.Push(mir.ValueId(1))
			m.Push(mir.ValueId(2))
			m.Dup(2) // DUP2 addresses stack[1] from the top == bottom value here
			Expect(m.Depth()).To(Equal(3))
			top, _ := m.Top()
			Expect(top).To(Equal(mir.ValueId(1)))
		})
	})

	Context("Swap", func() {
		It("exchanges the top with the value at depth n", func() {
			m.Push(mir.ValueId(1))
			m.Push(mir.ValueId(2))
			m.Swap(1) // SWAP1 swaps stack[0] and stack[1]
			top, _ := m.Top()
			Expect(top).To(Equal(mir.ValueId(1)))
			second, _ := m.Peek(1)
			Expect(second).To(Equal(mir.ValueId(2)))
		})
	})

	Context("Clear", func() {
		It("empties the stack entirely", func() {
			m.Push(mir.ValueId(1))
			m.Push(mir.ValueId(2))
			m.Clear()
			Expect(m.Depth()).To(Equal(0))
		})
	})
})
