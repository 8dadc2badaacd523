package codegen

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Opcode helpers", func() {
	It("computes PUSH1..PUSH32 from OpPush1", func() {
		Expect(PushN(1)).To(Equal(OpPush1))
		Expect(PushN(32)).To(Equal(Opcode(0x7f)))
	})

	It("computes DUP1..DUP16 from OpDup1", func() {
		Expect(DupN(1)).To(Equal(OpDup1))
		Expect(DupN(16)).To(Equal(OpDup16))
	})

	It("computes SWAP1..SWAP16 from OpSwap1", func() {
		Expect(SwapN(1)).To(Equal(OpSwap1))
		Expect(SwapN(16)).To(Equal(OpSwap16))
	})

	It("computes LOG0..LOG4 from OpLog0", func() {
		Expect(LogN(0)).To(Equal(OpLog0))
		Expect(LogN(4)).To(Equal(OpLog4))
	})
})
