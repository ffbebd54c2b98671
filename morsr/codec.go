package morsr

import (
	"encoding/json"
	"fmt"
)

// overlayRecord is the serialized form of an Overlay.
type overlayRecord struct {
	Present    []bool    `json:"present"`
	W          []float64 `json:"w"`
	Phi        []float64 `json:"phi"`
	Pose       Pose      `json:"pose"`
	HashID     *string   `json:"hash_id"`
	Provenance []string  `json:"provenance"`
}

// MarshalJSON encodes the overlay in its wire format.
func (o *Overlay) MarshalJSON() ([]byte, error) {
	rec := overlayRecord{
		Present:    o.PresentMask(),
		W:          o.Weights(),
		Phi:        o.Phases(),
		Pose:       o.pose,
		Provenance: o.provenance,
	}
	if rec.Provenance == nil {
		rec.Provenance = []string{}
	}
	if o.hashID != "" {
		h := o.hashID
		rec.HashID = &h
	}
	return json.Marshal(rec)
}

// UnmarshalJSON decodes and validates the wire format. A stored hash_id must
// match the hash recomputed from the decoded arrays.
func (o *Overlay) UnmarshalJSON(data []byte) error {
	var rec overlayRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("decoding overlay: %w", err)
	}
	decoded, err := NewOverlay(rec.Present, rec.W, rec.Phi, rec.Pose)
	if err != nil {
		return err
	}
	decoded.provenance = rec.Provenance
	if rec.HashID != nil && *rec.HashID != "" {
		if got := decoded.ComputeHash(); got != *rec.HashID {
			return fmt.Errorf("hash_id %s does not match content hash %s: %w", *rec.HashID, got, ErrMalformedOverlay)
		}
		decoded.hashID = *rec.HashID
	}
	*o = *decoded
	return nil
}

// DecodeOverlay parses a serialized overlay.
func DecodeOverlay(data []byte) (*Overlay, error) {
	o := new(Overlay)
	if err := json.Unmarshal(data, o); err != nil {
		return nil, err
	}
	return o, nil
}

// EncodeOverlay serializes an overlay.
func EncodeOverlay(o *Overlay) ([]byte, error) {
	return json.Marshal(o)
}
