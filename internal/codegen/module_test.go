package codegen_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"evmc/internal/codegen"
	"evmc/internal/mir"
	"evmc/internal/parser"
	"evmc/internal/semantic"
)

func buildModule(source string) *mir.Module {
	contract, parseErrors, scanErrors := parser.ParseSource("test.ka", source)
	Expect(scanErrors).To(BeEmpty())
	Expect(parseErrors).To(BeEmpty())
	Expect(contract).NotTo(BeNil())

	result := mir.NewBuilder(semantic.NewContextRegistry()).Build(contract)
	Expect(result).NotTo(BeNil())
	return result.Module
}

var _ = Describe("CompileModule", func() {
	const source = `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
        owner: Address,
    }

    #[create]
    fn create() writes State {
        State.total_supply = 0;
    }

    #[view]
    ext fn totalSupply() -> U256 reads State {
        State.total_supply
    }

    ext fn transfer(to: Address, amount: U256) -> Bool writes State {
        State.total_supply = State.total_supply - amount;
        true
    }
}`

	var contract *codegen.CompiledContract

	BeforeEach(func() {
		mod := buildModule(source)
		compiled, err := codegen.CompileModule(mod)
		Expect(err).NotTo(HaveOccurred())
		Expect(compiled).NotTo(BeNil())
		contract = compiled
	})

	It("emits non-empty runtime and deploy bytecode", func() {
		Expect(contract.Runtime).NotTo(BeEmpty())
		Expect(contract.Deploy).NotTo(BeEmpty())
	})

	It("embeds the runtime code at the tail of the deploy code", func() {
		Expect(len(contract.Deploy)).To(BeNumerically(">", len(contract.Runtime)))
		tail := contract.Deploy[len(contract.Deploy)-len(contract.Runtime):]
		Expect(tail).To(Equal(contract.Runtime))
	})

	It("records a selector for every externally-visible function", func() {
		Expect(contract.Selectors).To(HaveKey("totalSupply"))
		Expect(contract.Selectors).To(HaveKey("transfer"))
		Expect(contract.Selectors["totalSupply"]).To(Equal(codegen.Selector4("totalSupply()")))
		Expect(contract.Selectors["transfer"]).To(Equal(codegen.Selector4("transfer(address,uint256)")))
	})

	It("does not emit a selector for the constructor", func() {
		Expect(contract.Selectors).NotTo(HaveKey("create"))
	})

	It("collects stack metrics per externally-visible function", func() {
		Expect(contract.Metrics).To(HaveKey("totalSupply"))
		Expect(contract.Metrics).To(HaveKey("transfer"))
	})

	It("starts the runtime dispatcher by loading the calldata selector", func() {
		Expect(contract.Runtime[0]).To(Equal(byte(codegen.OpPush0)))
		Expect(contract.Runtime[1]).To(Equal(byte(codegen.OpCallDataLoad)))
	})
})

var _ = Describe("CompileModule with no constructor", func() {
	const source = `
contract Counter {
    #[storage]
    struct State {
        value: U256,
    }

    #[view]
    ext fn value() -> U256 reads State {
        State.value
    }
}`

	It("still produces deploy code that copies out the runtime region", func() {
		mod := buildModule(source)
		compiled, err := codegen.CompileModule(mod)
		Expect(err).NotTo(HaveOccurred())
		Expect(compiled.Deploy).NotTo(BeEmpty())
		Expect(len(compiled.Deploy)).To(BeNumerically(">=", len(compiled.Runtime)))
	})
})
