// Package enrich attaches genre and audio-feature data that the saved-track
// catalog does not carry.
package enrich

import (
	"context"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/smartlist/internal/app/rule"
	"github.com/osa030/smartlist/internal/domain/track"
)

// Lookup batch ceilings imposed by the catalog API.
const (
	ArtistChunkSize       = 50
	AudioFeatureChunkSize = 100
)

// GenreSource resolves artist IDs to genre names.
type GenreSource interface {
	FetchArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error)
}

// AudioFeatureSource resolves track IDs to audio features.
type AudioFeatureSource interface {
	FetchAudioFeatures(ctx context.Context, trackIDs []string) (map[string]track.AudioFeatures, error)
}

// Source provides both lookups.
type Source interface {
	GenreSource
	AudioFeatureSource
}

// Requirements records which enrichers must run before rules can be evaluated.
type Requirements struct {
	Genres        bool
	AudioFeatures bool
}

// Any reports whether any enrichment is required.
func (r Requirements) Any() bool {
	return r.Genres || r.AudioFeatures
}

// RequirementsFor computes the enrichment needed by rules and by the
// attributes used for ordering.
func RequirementsFor(rules []rule.Rule, extra ...rule.Attribute) Requirements {
	var req Requirements
	mark := func(a rule.Attribute) {
		switch a.Needs() {
		case rule.EnrichmentGenres:
			req.Genres = true
		case rule.EnrichmentAudioFeatures:
			req.AudioFeatures = true
		}
	}
	for _, r := range rules {
		mark(r.Attribute)
	}
	for _, a := range extra {
		mark(a)
	}
	return req
}

// Cache holds lookups made during one pipeline run.
type Cache struct {
	ArtistGenres  map[string]track.StringSet
	AudioFeatures map[string]track.AudioFeatures
}

// NewCache creates an empty run cache.
func NewCache() *Cache {
	return &Cache{
		ArtistGenres:  make(map[string]track.StringSet),
		AudioFeatures: make(map[string]track.AudioFeatures),
	}
}

// Enricher attaches looked-up data to batches of tracks.
type Enricher struct {
	source Source
	cache  *Cache
}

// New creates an enricher over source that records lookups in cache.
func New(source Source, cache *Cache) *Enricher {
	if cache == nil {
		cache = NewCache()
	}
	return &Enricher{
		source: source,
		cache:  cache,
	}
}

// Enrich runs the enrichers named by req over batch.
func (e *Enricher) Enrich(ctx context.Context, batch []*track.Track, req Requirements) error {
	if req.Genres {
		if err := e.Genres(ctx, batch); err != nil {
			return err
		}
	}
	if req.AudioFeatures {
		if err := e.AudioFeatures(ctx, batch); err != nil {
			return err
		}
	}
	return nil
}

// Genres attaches the union of each track's artist genres.
// Any failed lookup aborts without attaching anything.
func (e *Enricher) Genres(ctx context.Context, batch []*track.Track) error {
	var missing []string
	queued := make(map[string]bool)
	for _, t := range batch {
		for _, id := range t.ArtistIDs {
			if id == "" || queued[id] {
				continue
			}
			if _, ok := e.cache.ArtistGenres[id]; ok {
				continue
			}
			queued[id] = true
			missing = append(missing, id)
		}
	}

	if len(missing) > 0 {
		if e.source == nil {
			return errors.New("genre enrichment requires a genre source")
		}
		for _, ids := range chunk(missing, ArtistChunkSize) {
			found, err := e.source.FetchArtistGenres(ctx, ids)
			if err != nil {
				return errors.Wrapf(err, "failed to fetch genres for %d artists", len(ids))
			}
			for _, id := range ids {
				set := track.NewStringSet()
				for _, g := range found[id] {
					if g = strings.ToUpper(strings.TrimSpace(g)); g != "" {
						set.Add(g)
					}
				}
				e.cache.ArtistGenres[id] = set
			}
		}
		zerolog.Ctx(ctx).Debug().Msgf("resolved genres: artists=%d cached=%d", len(missing), len(e.cache.ArtistGenres))
	}

	for _, t := range batch {
		genres := track.NewStringSet()
		for _, id := range t.ArtistIDs {
			for g := range e.cache.ArtistGenres[id] {
				genres.Add(g)
			}
		}
		t.Genres = genres
	}
	return nil
}

// AudioFeatures attaches each track's audio features.
// Any failed lookup aborts without attaching anything.
func (e *Enricher) AudioFeatures(ctx context.Context, batch []*track.Track) error {
	var missing []string
	queued := make(map[string]bool)
	for _, t := range batch {
		if t.ID == "" || queued[t.ID] {
			continue
		}
		if _, ok := e.cache.AudioFeatures[t.ID]; ok {
			continue
		}
		queued[t.ID] = true
		missing = append(missing, t.ID)
	}

	if len(missing) > 0 {
		if e.source == nil {
			return errors.New("audio feature enrichment requires an audio feature source")
		}
		for _, ids := range chunk(missing, AudioFeatureChunkSize) {
			found, err := e.source.FetchAudioFeatures(ctx, ids)
			if err != nil {
				return errors.Wrapf(err, "failed to fetch audio features for %d tracks", len(ids))
			}
			for _, id := range ids {
				features, ok := found[id]
				if !ok || features == nil {
					features = track.AudioFeatures{}
				}
				e.cache.AudioFeatures[id] = features
			}
		}
		zerolog.Ctx(ctx).Debug().Msgf("resolved audio features: tracks=%d cached=%d", len(missing), len(e.cache.AudioFeatures))
	}

	for _, t := range batch {
		features, ok := e.cache.AudioFeatures[t.ID]
		if !ok {
			features = track.AudioFeatures{}
		}
		t.AudioFeatures = features
	}
	return nil
}

func chunk[T any](items []T, size int) [][]T {
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
