package codegen

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ABI hashing", func() {
	It("matches the well-known ERC20 transfer(address,uint256) selector", func() {
		Expect(Selector4("transfer(address,uint256)")).To(Equal(uint32(0xa9059cbb)))
	})

	It("derives the selector as the first four bytes of the signature's Keccak256 digest", func() {
		sig := "balanceOf(address)"
		digest := Keccak256([]byte(sig))
		want := uint32(digest[0])<<24 | uint32(digest[1])<<16 | uint32(digest[2])<<8 | uint32(digest[3])
		Expect(Selector4(sig)).To(Equal(want))
	})

	It("derives topic0 as the full 32-byte Keccak256 digest of the signature", func() {
		sig := "Transfer(address,address,uint256)"
		digest := Keccak256([]byte(sig))
		topic0 := EventTopic0(sig)
		Expect(topic0[:]).To(Equal(digest))
	})

	It("produces a 4-byte selector and a 32-byte topic0 for any signature", func() {
		sig := "balanceOf(address)"
		sel := Selector4(sig)
		Expect(sel).NotTo(BeZero())

		topic0 := EventTopic0(sig)
		Expect(topic0).To(HaveLen(32))
	})

	It("hashes deterministically", func() {
		Expect(Selector4("foo()")).To(Equal(Selector4("foo()")))
	})
})
