// Package track provides the Track domain entity.
package track

import "sort"

// Audio feature names stored in AudioFeatures.
const (
	FeatureTempo            = "tempo"
	FeatureEnergy           = "energy"
	FeatureValence          = "valence"
	FeatureDanceability     = "danceability"
	FeatureAcousticness     = "acousticness"
	FeatureInstrumentalness = "instrumentalness"
	FeatureLiveness         = "liveness"
	FeatureSpeechiness      = "speechiness"
	FeatureLoudness         = "loudness"
	FeatureTimeSignature    = "time_signature"
	FeatureKey              = "key"
	FeatureMode             = "mode"
)

// AudioFeatures maps an audio feature name to its value.
type AudioFeatures map[string]float64

// StringSet is an unordered set of strings.
type StringSet map[string]struct{}

// NewStringSet creates a set from the given values.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

// Add adds v to the set.
func (s StringSet) Add(v string) {
	s[v] = struct{}{}
}

// Has reports whether v is in the set.
func (s StringSet) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in ascending order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Track represents a saved track from the user's library.
// Genres and AudioFeatures stay nil until enrichment attaches them.
type Track struct {
	ID          string   // Spotify Track ID
	URI         string   // Spotify URI (spotify:track:...)
	Name        string   // Track name
	Album       string   // Album name
	ReleaseDate string   // Album release date (YYYY, YYYY-MM or YYYY-MM-DD)
	Artists     []string // Artist names
	ArtistIDs   []string // Artist IDs, parallel to Artists
	AddedAt     string   // Time the track was saved to the library (RFC3339)
	DurationMs  int      // Track duration in milliseconds
	Popularity  int      // Popularity score (0-100)
	Explicit    bool     // Explicit content flag
	URL         string   // Spotify URL

	Genres        StringSet     // Genres of all artists, upper-cased
	AudioFeatures AudioFeatures // Audio analysis values
}

// Available reports whether the track can be played and added to playlists.
// Removed or region-locked tracks come back from the catalog without an ID.
func (t *Track) Available() bool {
	return t != nil && t.ID != ""
}

// Page is one page of the saved-track catalog.
type Page struct {
	Items  []*Track
	Offset int
	Limit  int
	Total  int
}

// IsLast reports whether no further page follows this one.
func (p *Page) IsLast() bool {
	return p.Offset+p.Limit >= p.Total
}

// Available returns the page's available tracks in catalog order.
func (p *Page) Available() []*Track {
	out := make([]*Track, 0, len(p.Items))
	for _, t := range p.Items {
		if t.Available() {
			out = append(out, t)
		}
	}
	return out
}
