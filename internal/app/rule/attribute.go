// Package rule provides the attribute accessors, comparison operators and
// compiler for smart playlist rules.
package rule

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/smartlist/internal/domain/track"
)

// ErrUnknownRuleType is returned when a rule names an attribute that has no accessor.
var ErrUnknownRuleType = errors.New("unknown rule type")

// Attribute identifies a track attribute a rule or ordering can refer to.
type Attribute string

const (
	AttrSong             Attribute = "song"
	AttrAlbum            Attribute = "album"
	AttrArtist           Attribute = "artist"
	AttrReleaseDate      Attribute = "releaseDate"
	AttrYear             Attribute = "year"
	AttrDateAdded        Attribute = "dateAdded"
	AttrDuration         Attribute = "duration"
	AttrPopularity       Attribute = "popularity"
	AttrGenre            Attribute = "genre"
	AttrTempo            Attribute = "tempo"
	AttrEnergy           Attribute = "energy"
	AttrValence          Attribute = "valence"
	AttrDanceability     Attribute = "danceability"
	AttrAcousticness     Attribute = "acousticness"
	AttrInstrumentalness Attribute = "instrumentalness"
	AttrLiveness         Attribute = "liveness"
	AttrSpeechiness      Attribute = "speechiness"
	AttrLoudness         Attribute = "loudness"
	AttrMeter            Attribute = "meter"
	AttrKey              Attribute = "key"
	AttrMode             Attribute = "mode"
)

// Kind describes the shape of the value an attribute yields.
type Kind int

const (
	KindText     Kind = iota // upper-cased string
	KindTextList             // upper-cased []string
	KindDate                 // date string, ordered lexically
	KindNumber               // float64
)

// Enrichment names the lookup an attribute depends on.
type Enrichment int

const (
	EnrichmentNone Enrichment = iota
	EnrichmentGenres
	EnrichmentAudioFeatures
)

type attributeDef struct {
	kind  Kind
	needs Enrichment
	label string
	value func(t *track.Track) any
}

var attributes = map[Attribute]attributeDef{
	AttrSong: {kind: KindText, label: "song name", value: func(t *track.Track) any {
		return strings.ToUpper(t.Name)
	}},
	AttrAlbum: {kind: KindText, label: "album name", value: func(t *track.Track) any {
		return strings.ToUpper(t.Album)
	}},
	AttrArtist: {kind: KindTextList, label: "artist", value: func(t *track.Track) any {
		names := make([]string, len(t.Artists))
		for i, n := range t.Artists {
			names[i] = strings.ToUpper(n)
		}
		return names
	}},
	AttrReleaseDate: {kind: KindDate, label: "release date", value: func(t *track.Track) any {
		return t.ReleaseDate
	}},
	AttrYear:      {kind: KindNumber, label: "release year", value: releaseYear},
	AttrDateAdded: {kind: KindDate, label: "date added", value: func(t *track.Track) any {
		return t.AddedAt
	}},
	AttrDuration: {kind: KindNumber, label: "duration", value: func(t *track.Track) any {
		return float64(t.DurationMs)
	}},
	AttrPopularity: {kind: KindNumber, label: "popularity", value: func(t *track.Track) any {
		return float64(t.Popularity)
	}},
	AttrGenre: {kind: KindTextList, needs: EnrichmentGenres, label: "genre", value: func(t *track.Track) any {
		if t.Genres == nil {
			return nil
		}
		return t.Genres.Sorted()
	}},
	AttrTempo:            audioFeature(track.FeatureTempo, "tempo"),
	AttrEnergy:           audioFeature(track.FeatureEnergy, "energy"),
	AttrValence:          audioFeature(track.FeatureValence, "valence"),
	AttrDanceability:     audioFeature(track.FeatureDanceability, "danceability"),
	AttrAcousticness:     audioFeature(track.FeatureAcousticness, "acousticness"),
	AttrInstrumentalness: audioFeature(track.FeatureInstrumentalness, "instrumentalness"),
	AttrLiveness:         audioFeature(track.FeatureLiveness, "liveness"),
	AttrSpeechiness:      audioFeature(track.FeatureSpeechiness, "speechiness"),
	AttrLoudness:         audioFeature(track.FeatureLoudness, "loudness"),
	AttrMeter:            audioFeature(track.FeatureTimeSignature, "meter"),
	AttrKey:              audioFeature(track.FeatureKey, "key"),
	AttrMode:             audioFeature(track.FeatureMode, "mode"),
}

func audioFeature(name, label string) attributeDef {
	return attributeDef{
		kind:  KindNumber,
		needs: EnrichmentAudioFeatures,
		label: label,
		value: func(t *track.Track) any {
			if t.AudioFeatures == nil {
				return nil
			}
			v, ok := t.AudioFeatures[name]
			if !ok {
				return nil
			}
			return v
		},
	}
}

// releaseYear parses the first four characters of the release date.
func releaseYear(t *track.Track) any {
	if len(t.ReleaseDate) < 4 {
		return nil
	}
	year, err := strconv.ParseFloat(t.ReleaseDate[:4], 64)
	if err != nil {
		return nil
	}
	return year
}

// ParseAttribute resolves a raw rule type. Matching is case-insensitive.
func ParseAttribute(s string) (Attribute, error) {
	s = strings.TrimSpace(s)
	if _, ok := attributes[Attribute(s)]; ok {
		return Attribute(s), nil
	}
	for a := range attributes {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownRuleType, "%q", s)
}

// Value extracts the attribute from t. Text values are upper-cased; values
// that depend on enrichment are nil until it has run.
func (a Attribute) Value(t *track.Track) any {
	def, ok := attributes[a]
	if !ok {
		return nil
	}
	return def.value(t)
}

// Kind returns the value shape of the attribute.
func (a Attribute) Kind() Kind {
	return attributes[a].kind
}

// Needs returns the enrichment the attribute depends on.
func (a Attribute) Needs() Enrichment {
	return attributes[a].needs
}

// Label returns a human-readable name for descriptions.
func (a Attribute) Label() string {
	if def, ok := attributes[a]; ok {
		return def.label
	}
	return string(a)
}
