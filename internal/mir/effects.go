package mir

// EffectKind classifies the observable side effect, if any, of an
// instruction. This is coarser than a full alias analysis (no slot- or
// offset-level precision). No transform pass calls Effects; CSE, DCE and
// the loop analysis decide with IsPure and HasSideEffects instead.
type EffectKind uint8

const (
	EffectNone EffectKind = iota
	EffectStorageRead
	EffectStorageWrite
	EffectTransientRead
	EffectTransientWrite
	EffectMemoryRead
	EffectMemoryWrite
	EffectLog
	EffectCall // external call: may read/write arbitrary storage and memory
	EffectCreate
)

// Effects returns the set of effects an instruction kind has. Most
// instructions have none; the ones that do are the storage/memory/call/log
// family the spec singles out in §3.
func (k InstKind) Effects() []EffectKind {
	switch k {
	case KSLoad:
		return []EffectKind{EffectStorageRead}
	case KSStore:
		return []EffectKind{EffectStorageWrite}
	case KTLoad:
		return []EffectKind{EffectTransientRead}
	case KTStore:
		return []EffectKind{EffectTransientWrite}
	case KMLoad:
		return []EffectKind{EffectMemoryRead}
	case KMStore, KMStore8, KMCopy:
		return []EffectKind{EffectMemoryWrite}
	case KLog0, KLog1, KLog2, KLog3, KLog4:
		return []EffectKind{EffectMemoryRead, EffectLog}
	case KCall, KStaticCall, KDelegateCall, KCallCode:
		return []EffectKind{EffectCall}
	case KCreate, KCreate2:
		return []EffectKind{EffectCreate}
	default:
		return nil
	}
}

// IsBarrier reports whether an instruction kind must be treated as an
// opaque barrier to storage/memory optimization: it may alias anything.
func (k InstKind) IsBarrier() bool {
	switch k {
	case KCall, KStaticCall, KDelegateCall, KCallCode, KCreate, KCreate2:
		return true
	default:
		return false
	}
}
