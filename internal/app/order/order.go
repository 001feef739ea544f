// Package order provides output ordering for smart playlists.
package order

import (
	"cmp"
	"slices"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/smartlist/internal/app/rule"
	"github.com/osa030/smartlist/internal/domain/track"
)

// Direction is the sort direction of an ordering.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// Spec describes how generated tracks are ordered.
type Spec struct {
	Enabled   bool
	Field     rule.Attribute
	Direction Direction
}

// Parse builds an ordering from raw request values. Unrecognized values
// disable ordering instead of failing the request.
func Parse(field, direction string) Spec {
	field = strings.TrimSpace(field)
	direction = strings.TrimSpace(direction)
	if field == "" && direction == "" {
		return Spec{}
	}

	attr, err := rule.ParseAttribute(field)
	if err != nil || attr == rule.AttrGenre {
		zlog.Warn().Msgf("ordering disabled: unsupported field %q", field)
		return Spec{}
	}

	var dir Direction
	switch strings.ToLower(direction) {
	case string(Ascending):
		dir = Ascending
	case string(Descending):
		dir = Descending
	default:
		zlog.Warn().Msgf("ordering disabled: unsupported direction %q", direction)
		return Spec{}
	}

	return Spec{Enabled: true, Field: attr, Direction: dir}
}

// Compare returns -1, 0 or 1 for a relative to b under the ordering.
// Tracks missing the field rank lowest: first ascending, last descending.
func (s Spec) Compare(a, b *track.Track) int {
	c := compareValues(s.Field.Value(a), s.Field.Value(b))
	if s.Direction == Descending {
		return -c
	}
	return c
}

func compareValues(x, y any) int {
	if x == nil || y == nil {
		switch {
		case x == nil && y == nil:
			return 0
		case x == nil:
			return -1
		default:
			return 1
		}
	}

	switch xv := x.(type) {
	case float64:
		if yv, ok := y.(float64); ok {
			return cmp.Compare(xv, yv)
		}
	case string:
		if yv, ok := y.(string); ok {
			return strings.Compare(xv, yv)
		}
	case []string:
		if yv, ok := y.([]string); ok {
			return strings.Compare(strings.Join(xv, ", "), strings.Join(yv, ", "))
		}
	}
	return 0
}

// Sequence accumulates tracks, keeping them sorted when ordering is enabled
// and in arrival order otherwise.
type Sequence struct {
	spec   Spec
	tracks []*track.Track
}

// NewSequence creates an empty sequence for the given ordering.
func NewSequence(spec Spec) *Sequence {
	return &Sequence{
		spec:   spec,
		tracks: make([]*track.Track, 0),
	}
}

// Add places t in the sequence.
func (s *Sequence) Add(t *track.Track) {
	if !s.spec.Enabled {
		s.tracks = append(s.tracks, t)
		return
	}
	s.tracks = Insert(s.tracks, t, s.spec.Compare)
}

// Len returns the number of tracks accumulated.
func (s *Sequence) Len() int {
	return len(s.tracks)
}

// Tracks returns the accumulated tracks in order.
func (s *Sequence) Tracks() []*track.Track {
	return s.tracks
}

// Insert splices t into the sorted slice tracks.
//
// The probe index is hi-1-(hi-lo)/2. When the probe compares equal, t is
// inserted at the probe, ahead of the equal element, so the most recently
// inserted of several equal tracks comes first.
func Insert(tracks []*track.Track, t *track.Track, compare func(a, b *track.Track) int) []*track.Track {
	lo, hi := 0, len(tracks)
	for lo < hi {
		mid := hi - 1 - (hi-lo)/2
		c := compare(t, tracks[mid])
		if c == 0 {
			return slices.Insert(tracks, mid, t)
		}
		if c < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return slices.Insert(tracks, lo, t)
}
