package morsr

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inference-sim/overlay-engine/morsr/handshake"
)

// DefaultMaxIterations bounds a pulse sweep when no limit is configured.
const DefaultMaxIterations = 10

// ProtocolConfig groups pulse-sweep parameters.
type ProtocolConfig struct {
	MaxIterations int        // iteration cap (0 = no operator trials, seed is only canonicalized)
	Operators     []Operator // per-iteration order; nil selects DefaultOperatorSequence
	StopOnPlateau bool       // also stop after an iteration with no strict decrease
}

// SweepResult reports the outcome of one pulse sweep.
type SweepResult struct {
	RunID      string
	Final      *Overlay
	PhiInitial float64
	PhiFinal   float64
	Iterations int
	Converged  bool      // stopped before MaxIterations
	History    []float64 // Φ after initialization and after every accepted step
	Summary    *handshake.Summary
}

// Protocol drives the greedy pulse sweep: each iteration tries every operator
// in order against the current canonical overlay, keeps accepted candidates,
// and logs every trial. It is single-goroutine; use one Protocol per sweep.
type Protocol struct {
	canon         *Canonicalizer
	phi           *PhiComputer
	checker       AcceptanceChecker
	log           *handshake.Log
	operators     []Operator
	maxIterations int
	stopOnPlateau bool
	now           func() time.Time

	runID      string
	current    *Overlay
	phiCurrent float64
	iteration  int
	history    []float64
}

// NewProtocol wires a Protocol. log receives one record per operator trial
// and is owned by the caller; pass handshake.NewLog() for a fresh run.
func NewProtocol(canon *Canonicalizer, phi *PhiComputer, checker AcceptanceChecker, log *handshake.Log, cfg ProtocolConfig) *Protocol {
	ops := cfg.Operators
	if ops == nil {
		var err error
		ops, err = OperatorsByName(DefaultOperatorSequence)
		if err != nil {
			panic(err)
		}
	}
	if log == nil {
		log = handshake.NewLog()
	}
	return &Protocol{
		canon:         canon,
		phi:           phi,
		checker:       checker,
		log:           log,
		operators:     append([]Operator(nil), ops...),
		maxIterations: cfg.MaxIterations,
		stopOnPlateau: cfg.StopOnPlateau,
		now:           time.Now,
	}
}

// Log returns the handshake log the protocol appends to.
func (p *Protocol) Log() *handshake.Log { return p.log }

// Current returns the current canonical overlay.
func (p *Protocol) Current() *Overlay { return p.current }

// PhiCurrent returns Φ of the current overlay.
func (p *Protocol) PhiCurrent() float64 { return p.phiCurrent }

// Iteration returns the number of completed iterations.
func (p *Protocol) Iteration() int { return p.iteration }

// Reset starts a new run from seed: the handshake log is cleared and seed is
// canonicalized into the current state.
func (p *Protocol) Reset(seed *Overlay) {
	p.runID = uuid.NewString()
	p.log.Clear()
	p.current = p.canon.Canonicalize(seed)
	p.phiCurrent = p.phi.Phi(p.current)
	p.iteration = 0
	p.history = []float64{p.phiCurrent}
}

// Step runs one iteration over the operator sequence. progress is true if any
// trial was accepted; improved is true if any accepted trial strictly lowered Φ.
func (p *Protocol) Step() (progress, improved bool) {
	p.iteration++
	for _, op := range p.operators {
		candidate := p.canon.Canonicalize(op.Apply(p.current))
		rec := handshake.Record{
			RunID:     p.runID,
			Iteration: p.iteration,
			Operator:  op.Name(),
			PhiBefore: p.phiCurrent,
			HashID:    candidate.HashID(),
			Timestamp: p.now(),
		}

		if err := candidate.Validate(); err != nil {
			logrus.Errorf("[run %s] operator %s produced an invalid overlay: %v", p.runID, op.Name(), err)
			rec.PhiAfter = p.phiCurrent
			rec.Reason = string(ReasonInvalidOverlay)
			p.log.Append(rec)
			continue
		}

		phiAfter := p.phi.Phi(candidate)
		accepted, reason := p.checker.Check(p.phiCurrent, phiAfter)
		rec.PhiAfter = phiAfter
		rec.DeltaPhi = phiAfter - p.phiCurrent
		rec.Accepted = accepted
		rec.Reason = string(reason)
		p.log.Append(rec)

		if !accepted {
			continue
		}
		logrus.Debugf("[run %s] iteration %d: %s accepted (%s, Φ %.6f -> %.6f)",
			p.runID, p.iteration, op.Name(), reason, p.phiCurrent, phiAfter)
		p.current = candidate
		p.phiCurrent = phiAfter
		p.history = append(p.history, phiAfter)
		progress = true
		if reason == ReasonStrictDecrease {
			improved = true
		}
	}
	return progress, improved
}

// PulseSweep resets to seed and iterates until MaxIterations or until an
// iteration accepts nothing.
func (p *Protocol) PulseSweep(seed *Overlay) SweepResult {
	p.Reset(seed)
	phiInitial := p.phiCurrent
	converged := false
	for p.iteration < p.maxIterations {
		progress, improved := p.Step()
		if !progress || (p.stopOnPlateau && !improved) {
			converged = true
			break
		}
	}

	logrus.Infof("[run %s] pulse sweep finished after %d iteration(s): Φ %.6f -> %.6f (converged=%t)",
		p.runID, p.iteration, phiInitial, p.phiCurrent, converged)

	return SweepResult{
		RunID:      p.runID,
		Final:      p.current,
		PhiInitial: phiInitial,
		PhiFinal:   p.phiCurrent,
		Iterations: p.iteration,
		Converged:  converged,
		History:    append([]float64(nil), p.history...),
		Summary:    handshake.Summarize(p.log),
	}
}
