package morsr

import "maps"

// Pose is the metadata carried by an Overlay. The named fields are the ones the
// engine reads or writes; Extra is a free-form side channel.
type Pose struct {
	Domain          string            `json:"domain,omitempty"`
	ProjectionError *float64          `json:"projection_error,omitempty"`
	RootIndex       *int              `json:"root_index,omitempty"`
	Features        []float64         `json:"features,omitempty"`
	Extra           map[string]string `json:"extra,omitempty"`
}

// Clone returns a deep copy.
func (p Pose) Clone() Pose {
	out := Pose{Domain: p.Domain}
	if p.ProjectionError != nil {
		v := *p.ProjectionError
		out.ProjectionError = &v
	}
	if p.RootIndex != nil {
		v := *p.RootIndex
		out.RootIndex = &v
	}
	if p.Features != nil {
		out.Features = append([]float64(nil), p.Features...)
	}
	if p.Extra != nil {
		out.Extra = maps.Clone(p.Extra)
	}
	return out
}
