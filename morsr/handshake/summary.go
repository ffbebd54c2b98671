package handshake

// Summary aggregates statistics from a Log.
type Summary struct {
	TotalTrials    int     `json:"total_trials"`
	AcceptedCount  int     `json:"accepted"`
	RejectedCount  int     `json:"rejected"`
	AcceptanceRate float64 `json:"acceptance_rate"`
	// TotalDeltaPhi sums ΔΦ over accepted trials.
	TotalDeltaPhi   float64        `json:"total_delta_phi"`
	AcceptedByOp    map[string]int `json:"accepted_by_operator"`
	ReasonHistogram map[string]int `json:"reasons"`
	// UniqueOverlays counts distinct hashes among accepted trials.
	UniqueOverlays int `json:"unique_overlays"`
}

// Summarize computes aggregate statistics from a Log.
// Safe for nil or empty logs (returns zero-value fields).
func Summarize(l *Log) *Summary {
	summary := &Summary{
		AcceptedByOp:    make(map[string]int),
		ReasonHistogram: make(map[string]int),
	}
	if l == nil {
		return summary
	}

	hashes := make(map[string]struct{})
	summary.TotalTrials = len(l.records)
	for _, r := range l.records {
		summary.ReasonHistogram[r.Reason]++
		if !r.Accepted {
			summary.RejectedCount++
			continue
		}
		summary.AcceptedCount++
		summary.AcceptedByOp[r.Operator]++
		summary.TotalDeltaPhi += r.DeltaPhi
		hashes[r.HashID] = struct{}{}
	}
	summary.UniqueOverlays = len(hashes)
	summary.AcceptanceRate = l.AcceptanceRate()

	return summary
}
