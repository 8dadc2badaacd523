package codegen

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes data with Ethereum's Keccak256 (the original, pre-
// standardization padding NIST's SHA3-256 does not use), the basis for
// function selectors, event topics, and Slots<K,V> storage addressing.
func Keccak256(data []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	return h.Sum(nil)
}

// Selector4 returns the 4-byte ABI function selector for a `name(type,...)`
// signature: the first four bytes of its Keccak256 hash.
func Selector4(signature string) uint32 {
	return binary.BigEndian.Uint32(Keccak256([]byte(signature))[:4])
}

// EventTopic0 returns the 32-byte topic0 an event's canonical signature
// hashes to.
func EventTopic0(signature string) [32]byte {
	var out [32]byte
	copy(out[:], Keccak256([]byte(signature)))
	return out
}
