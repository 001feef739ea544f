// Package limit provides count and duration truncation for smart playlists.
package limit

import (
	"math"
	"strings"

	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/smartlist/internal/app/rule"
	"github.com/osa030/smartlist/internal/domain/track"
)

// MaxSongLimit caps song-count limits.
const MaxSongLimit = 10000

// Kind is the working unit of a limit.
type Kind string

const (
	KindSongs        Kind = "songs"
	KindMilliseconds Kind = "milliseconds"
)

// Spec describes how generated tracks are truncated.
type Spec struct {
	Enabled  bool
	Kind     Kind
	RawValue float64 // Value as requested
	RawUnit  string  // Unit as requested (songs, minutes, hours, ...)
	Value    int64   // Value in the working unit: track count or milliseconds
}

// Parse builds a limit from raw request values. Malformed or non-positive
// values disable limiting.
func Parse(limitType string, value float64) Spec {
	unit := strings.ToLower(strings.TrimSpace(limitType))
	if unit == "" {
		return Spec{}
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value <= 0 {
		zlog.Warn().Msgf("limit disabled: invalid value %v for %s", value, unit)
		return Spec{}
	}

	if unit == string(KindSongs) {
		n := int64(value)
		if n <= 0 {
			zlog.Warn().Msgf("limit disabled: song limit %v rounds to zero", value)
			return Spec{}
		}
		if n > MaxSongLimit {
			zlog.Warn().Msgf("song limit %d exceeds maximum, clamping to %d", n, MaxSongLimit)
			n = MaxSongLimit
		}
		return Spec{Enabled: true, Kind: KindSongs, RawValue: value, RawUnit: unit, Value: n}
	}

	ms, ok := rule.ConvertUnit(unit, value)
	if !ok || unit == "percent" {
		zlog.Warn().Msgf("limit disabled: unsupported limit type %q", limitType)
		return Spec{}
	}
	n := int64(math.Round(ms))
	if n <= 0 {
		zlog.Warn().Msgf("limit disabled: %v %s rounds to zero milliseconds", value, unit)
		return Spec{}
	}
	return Spec{Enabled: true, Kind: KindMilliseconds, RawValue: value, RawUnit: unit, Value: n}
}

// Apply truncates tracks from the tail. It never reorders or re-filters.
func (s Spec) Apply(tracks []*track.Track) []*track.Track {
	if !s.Enabled {
		return tracks
	}

	switch s.Kind {
	case KindSongs:
		for int64(len(tracks)) > s.Value {
			tracks = tracks[:len(tracks)-1]
		}
	case KindMilliseconds:
		var total int64
		for _, t := range tracks {
			total += int64(t.DurationMs)
		}
		for total > s.Value && len(tracks) > 0 {
			last := tracks[len(tracks)-1]
			total -= int64(last.DurationMs)
			tracks = tracks[:len(tracks)-1]
		}
	}
	return tracks
}
