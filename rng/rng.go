// Package rng implements the deterministic random number generator used by
// workflow code. Every workflow run seeds one generator from the
// randomness_seed delivered on InitializeWorkflow (and re-seeds on
// UpdateRandomSeed); the same seed MUST produce the same sequence on any
// platform, so the algorithm below is specified bit-for-bit rather than
// delegated to math/rand.
package rng

import (
	"math/big"
	"math/bits"
)

// multiplier and increment for PCG128-XSL-RR-64, split into 64-bit halves at
// init time so the algorithm itself only ever does 64-bit wrapping
// arithmetic. The decimal constants come from the PCG reference parameters.
var (
	multHi, multLo = splitConstant("47026247687942121848144207491837523525")
	incHi, incLo   = splitConstant("117397592171526113268558934119004209487")
)

func splitConstant(decimal string) (hi, lo uint64) {
	n, ok := new(big.Int).SetString(decimal, 10)
	if !ok {
		panic("rng: invalid constant " + decimal)
	}
	mask := new(big.Int).SetUint64(^uint64(0))
	loBig := new(big.Int).And(n, mask)
	hiBig := new(big.Int).Rsh(n, 64)
	return hiBig.Uint64(), loBig.Uint64()
}

// Generator is a PCG128-XSL-RR-64 deterministic random number generator. The
// zero value is not usable; construct one with New or Reset.
type Generator struct {
	hi, lo uint64
}

// New returns a Generator seeded from seed (widened to 128 bits).
func New(seed uint64) *Generator {
	g := &Generator{}
	g.Reset(seed)
	return g
}

// Reset reseeds the generator, discarding any prior state. Used when a
// workflow activation delivers UpdateRandomSeed.
func (g *Generator) Reset(seed uint64) {
	g.hi, g.lo = 0, 0
	g.advance()
	lo, carry := bits.Add64(g.lo, seed, 0)
	hi, _ := bits.Add64(g.hi, 0, carry)
	g.hi, g.lo = hi, lo
	g.advance()
}

// Next produces the next pseudo-random uint64 in the sequence.
func (g *Generator) Next() uint64 {
	g.advance()
	xored := g.hi ^ g.lo
	shift := g.hi >> 58 // top 6 bits of the 128-bit state (bits 122..127)
	return bits.RotateLeft64(xored, -int(shift))
}

// advance performs state = state*M + I (mod 2^128).
func (g *Generator) advance() {
	// 128x128 -> 128 truncated multiplication: lo*lo contributes the full
	// 128-bit product; the cross terms only affect the high 64 bits.
	hi, lo := bits.Mul64(g.lo, multLo)
	hi += g.lo*multHi + g.hi*multLo

	lo2, carry := bits.Add64(lo, incLo, 0)
	hi2, _ := bits.Add64(hi, incHi, carry)

	g.hi, g.lo = hi2, lo2
}

// UUIDReader adapts a Generator to the io.Reader shape accepted by
// github.com/google/uuid's uuid.NewRandomFromReader, so deterministic workflow-id
// generation (see statemachine.StartChild) draws entropy exclusively from
// workflow-replay-safe randomness.
type UUIDReader struct {
	g *Generator
}

// NewUUIDReader wraps g for use with uuid.NewRandomFromReader.
func NewUUIDReader(g *Generator) *UUIDReader {
	return &UUIDReader{g: g}
}

// Read fills p with bytes derived from successive Next() calls.
func (r *UUIDReader) Read(p []byte) (int, error) {
	for i := 0; i < len(p); {
		v := r.g.Next()
		for shift := 0; shift < 64 && i < len(p); shift += 8 {
			p[i] = byte(v >> shift)
			i++
		}
	}
	return len(p), nil
}
