package morsr

import (
	"context"
	"fmt"

	"github.com/inference-sim/overlay-engine/lattice"
	"github.com/inference-sim/overlay-engine/morsr/handshake"
)

// OverlayStore receives finished canonical overlays.
// cache.OverlayCache is the production implementation.
type OverlayStore interface {
	Put(ctx context.Context, o *Overlay) bool
}

// Engine wires the pipeline embed -> canonicalize -> pulse sweep -> store.
// The lattice, embedder and canonicalizer are shared read-only; each call to
// Process builds its own Protocol and handshake Log, so an Engine is safe for
// concurrent use as long as the store is.
type Engine struct {
	Lattice       *lattice.Lattice
	Embedder      *Embedder
	Canonicalizer *Canonicalizer
	Phi           *PhiComputer
	Checker       AcceptanceChecker
	Protocol      ProtocolConfig
	Store         OverlayStore // optional
}

// NewEngine builds an Engine from a validated Config.
func NewEngine(cfg *Config, store OverlayStore) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ops, err := OperatorsByName(cfg.Protocol.Operators)
	if err != nil {
		return nil, err
	}
	l := lattice.E8()
	return &Engine{
		Lattice:       l,
		Embedder:      NewEmbedder(l, cfg.Embedder.Epsilon),
		Canonicalizer: NewCanonicalizer(l),
		Phi:           NewPhiComputer(cfg.Phi),
		Checker:       NewAcceptanceChecker(cfg.Acceptance.Tolerance),
		Protocol: ProtocolConfig{
			MaxIterations: cfg.Protocol.MaxIterations,
			Operators:     ops,
			StopOnPlateau: cfg.Protocol.StopOnPlateau,
		},
		Store: store,
	}, nil
}

// Result is a SweepResult plus the trial log that produced it.
type Result struct {
	SweepResult
	Trials []handshake.Record
}

// NewProtocol returns a Protocol configured like the engine, logging into log.
func (e *Engine) NewProtocol(log *handshake.Log) *Protocol {
	return NewProtocol(e.Canonicalizer, e.Phi, e.Checker, log, e.Protocol)
}

// Process embeds features, runs a pulse sweep on the canonical seed and, if a
// store is configured, stores the final overlay.
func (e *Engine) Process(ctx context.Context, features []float64, domain string) (*Result, error) {
	seed, err := e.Embedder.Embed(features, domain)
	if err != nil {
		return nil, err
	}
	return e.Optimize(ctx, seed)
}

// Optimize runs a pulse sweep on an existing overlay and stores the result.
func (e *Engine) Optimize(ctx context.Context, seed *Overlay) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := seed.Validate(); err != nil {
		return nil, fmt.Errorf("seed overlay: %w", err)
	}
	log := handshake.NewLog()
	res := e.NewProtocol(log).PulseSweep(seed)
	if e.Store != nil {
		e.Store.Put(ctx, res.Final)
	}
	return &Result{SweepResult: res, Trials: log.Records()}, nil
}
