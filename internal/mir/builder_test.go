package mir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evmc/internal/ast"
	"evmc/internal/errors"
	"evmc/internal/parser"
	"evmc/internal/semantic"
)

func parseOrFail(t *testing.T, source string) *ast.Contract {
	contract, parseErrors, scanErrors := parser.ParseSource("test.ka", source)
	require.Empty(t, scanErrors, "scan errors: %v", scanErrors)
	require.Empty(t, parseErrors, "parse errors: %v", parseErrors)
	require.NotNil(t, contract)
	return contract
}

func TestBuildLowersOneFunctionPerDeclaration(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[view]
    ext fn totalSupply() -> U256 reads State {
        State.total_supply
    }

    #[create]
    fn create() writes State {
        State.total_supply = 0;
    }
}`

	contract := parseOrFail(t, source)
	result := NewBuilder(semantic.NewContextRegistry()).Build(contract)

	require.NotNil(t, result)
	require.NotNil(t, result.Module)
	assert.NotNil(t, result.Module.FunctionByName("totalSupply"))
	assert.NotNil(t, result.Module.FunctionByName("create"))
}

func TestBuildRecordsStorageLayout(t *testing.T) {
	source := `
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
}`

	contract := parseOrFail(t, source)
	result := NewBuilder(semantic.NewContextRegistry()).Build(contract)

	require.Len(t, result.Storage, 2)
	names := map[string]int{}
	for _, s := range result.Storage {
		names[s.Name] = s.Slot
	}
	assert.Contains(t, names, "total_supply")
	assert.Contains(t, names, "owner")
	assert.NotEqual(t, names["total_supply"], names["owner"])
}

func TestBuildFunctionHasEntryBlockWithTerminator(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[view]
    ext fn totalSupply() -> U256 reads State {
        State.total_supply
    }
}`

	contract := parseOrFail(t, source)
	result := NewBuilder(semantic.NewContextRegistry()).Build(contract)

	fn := result.Module.FunctionByName("totalSupply")
	require.NotNil(t, fn)
	require.NotEqual(t, InvalidID, fn.Entry)

	entry := fn.EntryBlock()
	require.NotNil(t, entry)
	assert.NotNil(t, entry.Terminator)
	assert.Equal(t, TReturn, entry.Terminator.Kind)
}

func TestBuildCollectsEventSignatures(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[event]
    struct Transfer {
        from: Address,
        to: Address,
        amount: U256,
    }

    ext fn transfer(to: Address, amount: U256) writes State {
        emit(Transfer { from: sender(), to: to, amount: amount });
    }
}`

	contract := parseOrFail(t, source)
	result := NewBuilder(semantic.NewContextRegistry()).Build(contract)

	require.Len(t, result.Events, 1)
	assert.Equal(t, "Transfer", result.Events[0].EventName)
	assert.Contains(t, result.Events[0].Signature, "Transfer")
}

func hasInstructionOfKind(fn *Function, kind InstKind) bool {
	for _, inst := range fn.Instructions() {
		if inst.Kind == kind {
			return true
		}
	}
	return false
}

func TestBuildLowersEnvironmentBuiltinsToTheirOwnOpcodes(t *testing.T) {
	source := `
contract Clock {
    #[view]
    ext fn createdAt() -> U256 {
        timestamp()
    }
}`

	contract := parseOrFail(t, source)
	result := NewBuilder(semantic.NewContextRegistry()).Build(contract)

	fn := result.Module.FunctionByName("createdAt")
	require.NotNil(t, fn)
	assert.True(t, hasInstructionOfKind(fn, KTimestamp), "timestamp() must lower to KTimestamp, not a constant")
	assert.False(t, hasInstructionOfKind(fn, KConst), "a builtin lowered correctly leaves no placeholder KConst behind")
}

func TestBuildLowersKeccak256CallToTwoOperandInstruction(t *testing.T) {
	source := `
contract Hasher {
    #[view]
    ext fn hash(x: U256) -> U256 {
        keccak256(x)
    }
}`

	contract := parseOrFail(t, source)
	result := NewBuilder(semantic.NewContextRegistry()).Build(contract)

	fn := result.Module.FunctionByName("hash")
	require.NotNil(t, fn)

	var found *Instruction
	for _, inst := range fn.Instructions() {
		if inst.Kind == KKeccak256 {
			found = inst
		}
	}
	require.NotNil(t, found, "keccak256(x) must lower to a KKeccak256 instruction")
	require.Len(t, found.Operands, 2)

	padding := fn.Value(found.Operands[1])
	require.Equal(t, ValImmediate, padding.Kind)
	assert.Equal(t, int64(0), padding.ImmInt.Int64())
}

func TestBuildReportsDiagnosticForUnsupportedCall(t *testing.T) {
	source := `
contract Caller {
    #[view]
    ext fn delegate() -> U256 {
        otherFunction()
    }
}`

	contract := parseOrFail(t, source)
	result := NewBuilder(semantic.NewContextRegistry()).Build(contract)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, errors.ErrorUnsupportedCall, result.Diagnostics[0].Code)
}
