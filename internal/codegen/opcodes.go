// Package codegen lowers a scheduled mir.Function into EVM bytecode (spec
// §4.5/4.6's final stage): it walks each function's blocks through a
// stack.Scheduler, emits the corresponding opcodes, and assembles a
// contract's functions behind a 4-byte-selector dispatcher, wrapped in a
// minimal constructor that returns the runtime code at deploy time.
package codegen

// Opcode is a single EVM instruction byte.
type Opcode byte

const (
	OpStop       Opcode = 0x00
	OpAdd        Opcode = 0x01
	OpMul        Opcode = 0x02
	OpSub        Opcode = 0x03
	OpDiv        Opcode = 0x04
	OpSDiv       Opcode = 0x05
	OpMod        Opcode = 0x06
	OpSMod       Opcode = 0x07
	OpAddMod     Opcode = 0x08
	OpMulMod     Opcode = 0x09
	OpExp        Opcode = 0x0a
	OpSignExtend Opcode = 0x0b

	OpLt     Opcode = 0x10
	OpGt     Opcode = 0x11
	OpSlt    Opcode = 0x12
	OpSgt    Opcode = 0x13
	OpEq     Opcode = 0x14
	OpIsZero Opcode = 0x15
	OpAnd    Opcode = 0x16
	OpOr     Opcode = 0x17
	OpXor    Opcode = 0x18
	OpNot    Opcode = 0x19
	OpByte   Opcode = 0x1a
	OpShl    Opcode = 0x1b
	OpShr    Opcode = 0x1c
	OpSar    Opcode = 0x1d

	OpKeccak256 Opcode = 0x20

	OpAddress        Opcode = 0x30
	OpBalance        Opcode = 0x31
	OpOrigin         Opcode = 0x32
	OpCaller         Opcode = 0x33
	OpCallValue      Opcode = 0x34
	OpCallDataLoad   Opcode = 0x35
	OpCallDataSize   Opcode = 0x36
	OpCallDataCopy   Opcode = 0x37
	OpCodeSize       Opcode = 0x38
	OpCodeCopy       Opcode = 0x39
	OpGasPrice       Opcode = 0x3a
	OpExtCodeSize    Opcode = 0x3b
	OpExtCodeCopy    Opcode = 0x3c
	OpReturnDataSize Opcode = 0x3d
	OpReturnDataCopy Opcode = 0x3e
	OpExtCodeHash    Opcode = 0x3f

	OpBlockHash  Opcode = 0x40
	OpCoinbase   Opcode = 0x41
	OpTimestamp  Opcode = 0x42
	OpNumber     Opcode = 0x43
	OpDifficulty Opcode = 0x44
	OpGasLimit   Opcode = 0x45
	OpChainID    Opcode = 0x46
	OpSelfBalance Opcode = 0x47
	OpBaseFee    Opcode = 0x48

	OpPop      Opcode = 0x50
	OpMLoad    Opcode = 0x51
	OpMStore   Opcode = 0x52
	OpMStore8  Opcode = 0x53
	OpSLoad    Opcode = 0x54
	OpSStore   Opcode = 0x55
	OpJump     Opcode = 0x56
	OpJumpI    Opcode = 0x57
	OpPC       Opcode = 0x58
	OpMSize    Opcode = 0x59
	OpGas      Opcode = 0x5a
	OpJumpDest Opcode = 0x5b
	OpTLoad    Opcode = 0x5c
	OpTStore   Opcode = 0x5d
	OpMCopy    Opcode = 0x5e
	OpPush0    Opcode = 0x5f

	OpPush1  Opcode = 0x60
	OpPush2  Opcode = 0x61
	OpPush32 Opcode = 0x7f

	OpDup1  Opcode = 0x80
	OpDup16 Opcode = 0x8f

	OpSwap1  Opcode = 0x90
	OpSwap16 Opcode = 0x9f

	OpLog0 Opcode = 0xa0
	OpLog4 Opcode = 0xa4

	OpCreate       Opcode = 0xf0
	OpCall         Opcode = 0xf1
	OpCallCode     Opcode = 0xf2
	OpReturn       Opcode = 0xf3
	OpDelegateCall Opcode = 0xf4
	OpCreate2      Opcode = 0xf5
	OpStaticCall   Opcode = 0xfa
	OpRevert       Opcode = 0xfd
	OpSelfDestruct Opcode = 0xff
)

// PushN returns the PUSH opcode for an n-byte immediate (1..32).
func PushN(n int) Opcode { return Opcode(int(OpPush1) + n - 1) }

// DupN returns the opcode for DUPn (1-based depth from the top).
func DupN(n uint8) Opcode { return Opcode(int(OpDup1) + int(n) - 1) }

// SwapN returns the opcode for SWAPn (1-based depth from the top).
func SwapN(n uint8) Opcode { return Opcode(int(OpSwap1) + int(n) - 1) }

// LogN returns the opcode for LOGn, n in 0..4.
func LogN(n int) Opcode { return Opcode(int(OpLog0) + n) }
