// Package morsr implements the content-addressed overlay engine.
//
// # Reading Guide
//
// Start with these files:
//   - overlay.go: the 248-slot Overlay and its invariants
//   - canonical.go: gauge fixing, rounding and hash assignment
//   - protocol.go: the pulse-sweep state machine
//
// # Pipeline
//
// Embedder turns an 8-dimensional feature vector into a raw Overlay.
// Canonicalizer normalizes it and assigns its content hash. Protocol then
// repeatedly applies Operators, scoring candidates with PhiComputer and
// deciding with AcceptanceChecker, recording every trial in a handshake.Log,
// and re-canonicalizing after every accepted step. Engine wires the whole
// pipeline and hands the final Overlay to an OverlayStore.
//
// # Sub-packages
//   - morsr/handshake/: pure-data trial records and summaries
//   - morsr/cache/: the content-addressed LRU OverlayCache and its persistent backends
//
// Overlays are never mutated in place: every transformation returns a fresh
// copy, so canonical overlays may be shared freely between goroutines. The
// lattice (package lattice) is likewise immutable.
package morsr
