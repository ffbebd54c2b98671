package handshake

import "slices"

// Log is an append-only sequence of Records. Not safe for concurrent use;
// each pulse sweep owns its own Log.
type Log struct {
	records []Record
}

// NewLog creates an empty Log ready for recording.
func NewLog() *Log {
	return &Log{records: make([]Record, 0)}
}

// Append adds a record to the end of the log.
func (l *Log) Append(r Record) {
	l.records = append(l.records, r)
}

// Len returns the number of records.
func (l *Log) Len() int { return len(l.records) }

// Records returns a copy of every record in append order.
func (l *Log) Records() []Record {
	return slices.Clone(l.records)
}

// Accepted returns the accepted records in append order.
func (l *Log) Accepted() []Record {
	return l.filter(true)
}

// Rejected returns the rejected records in append order.
func (l *Log) Rejected() []Record {
	return l.filter(false)
}

func (l *Log) filter(accepted bool) []Record {
	out := make([]Record, 0, len(l.records))
	for _, r := range l.records {
		if r.Accepted == accepted {
			out = append(out, r)
		}
	}
	return out
}

// AcceptanceRate returns accepted/total, or 0 for an empty log.
func (l *Log) AcceptanceRate() float64 {
	if len(l.records) == 0 {
		return 0
	}
	return float64(len(l.Accepted())) / float64(len(l.records))
}

// Clear drops every record. Used between independent runs.
func (l *Log) Clear() {
	l.records = l.records[:0:0]
}
