package viewpure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evmc/internal/ast"
	"evmc/internal/errors"
	"evmc/internal/parser"
)

func parseOrFail(t *testing.T, source string) *ast.Contract {
	contract, parseErrors, scanErrors := parser.ParseSource("test.ka", source)
	require.Empty(t, scanErrors, "scan errors: %v", scanErrors)
	require.Empty(t, parseErrors, "parse errors: %v", parseErrors)
	require.NotNil(t, contract)
	return contract
}

func TestPureFunctionReadingStateIsRejected(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[pure]
    ext fn totalSupply() -> U256 {
        State.total_supply
    }
}`

	contract := parseOrFail(t, source)
	errs := NewChecker().Check(contract)

	require.Len(t, errs, 1)
	assert.Equal(t, errors.ErrorPureReadsState, errs[0].Code)
	assert.Equal(t, errors.Error, errs[0].Level)
}

func TestViewFunctionWritingStateIsRejected(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[view]
    ext fn bump() -> U256 {
        State.total_supply = State.total_supply + 1;
        State.total_supply
    }
}`

	contract := parseOrFail(t, source)
	errs := NewChecker().Check(contract)

	require.Len(t, errs, 1)
	assert.Equal(t, errors.ErrorViewWritesState, errs[0].Code)
}

func TestNonPayableUsingValueIsRejected(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    ext fn deposit() writes State {
        State.total_supply = State.total_supply + value();
    }
}`

	contract := parseOrFail(t, source)
	errs := NewChecker().Check(contract)

	require.Len(t, errs, 1)
	assert.Equal(t, errors.ErrorNonPayableUsesValue, errs[0].Code)
}

func TestPayableFunctionUsingValueIsAccepted(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[payable]
    ext fn deposit() writes State {
        State.total_supply = State.total_supply + value();
    }
}`

	contract := parseOrFail(t, source)
	errs := NewChecker().Check(contract)

	assert.Empty(t, errs)
}

func TestNonPayableReadOnlyFunctionSuggestsView(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    ext fn totalSupply() -> U256 reads State {
        State.total_supply
    }
}`

	contract := parseOrFail(t, source)
	errs := NewChecker().Check(contract)

	require.Len(t, errs, 1)
	assert.Equal(t, errors.WarningMutabilityCouldBeStricter, errs[0].Code)
	assert.Equal(t, errors.Warning, errs[0].Level)
}

func TestConstructorWritingStateIsNeverSuggestedTighter(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[create]
    fn create() writes State {
        State.total_supply = 0;
    }
}`

	contract := parseOrFail(t, source)
	errs := NewChecker().Check(contract)

	assert.Empty(t, errs)
}

func TestCalleeMutabilityPropagates(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[view]
    ext fn helper() -> U256 reads State {
        State.total_supply
    }

    #[pure]
    ext fn broken() -> U256 {
        helper()
    }
}`

	contract := parseOrFail(t, source)
	errs := NewChecker().Check(contract)

	require.Len(t, errs, 1)
	assert.Equal(t, errors.ErrorPureReadsState, errs[0].Code)
}

func TestWritesClauseConflictsWithPure(t *testing.T) {
	source := `
contract Token {
    #[storage]
    struct State {
        total_supply: U256,
    }

    #[pure]
    ext fn broken() writes State {
        State.total_supply = 0;
    }
}`

	contract := parseOrFail(t, source)
	errs := NewChecker().Check(contract)

	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	assert.Contains(t, codes, errors.ErrorMutabilityConflict)
}
