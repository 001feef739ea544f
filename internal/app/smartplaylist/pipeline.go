package smartplaylist

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osa030/smartlist/internal/app/enrich"
	"github.com/osa030/smartlist/internal/app/filter"
	"github.com/osa030/smartlist/internal/app/limit"
	"github.com/osa030/smartlist/internal/app/order"
	"github.com/osa030/smartlist/internal/app/rule"
	"github.com/osa030/smartlist/internal/domain/track"
)

const (
	// PreviewSize is the number of passing tracks after which a preview stops.
	PreviewSize = 25
	// DefaultPageSize is the saved-track page size (the catalog's maximum).
	DefaultPageSize = 50
)

// PageSource pages through the user's saved tracks.
type PageSource interface {
	FetchTrackPage(ctx context.Context, pageNumber, pageSize int) (*track.Page, error)
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID       string
	Tracks      []*track.Track
	Order       order.Spec
	Limit       limit.Spec
	Description string
	Pages       int // Pages fetched
	Scanned     int // Tracks evaluated against the rules
	Matched     int // Tracks that passed the rules, before limiting
}

// Pipeline generates smart playlists from a page source and an enrichment source.
// A Pipeline holds no per-run state and may serve concurrent runs.
type Pipeline struct {
	pages      PageSource
	enrichment enrich.Source
	pageSize   int
}

// NewPipeline creates a pipeline. A non-positive pageSize selects DefaultPageSize.
func NewPipeline(pages PageSource, enrichment enrich.Source, pageSize int) *Pipeline {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Pipeline{
		pages:      pages,
		enrichment: enrichment,
		pageSize:   pageSize,
	}
}

// GetTracks runs the pipeline once with the default page size.
func GetTracks(ctx context.Context, pages PageSource, enrichment enrich.Source, settings *Settings) (*Result, error) {
	return NewPipeline(pages, enrichment, DefaultPageSize).Generate(ctx, settings)
}

// Generate retrieves, filters, orders and limits tracks for settings.
func (p *Pipeline) Generate(ctx context.Context, settings *Settings) (*Result, error) {
	if settings == nil {
		return nil, errors.New("settings are required")
	}

	runID := uuid.New().String()
	logger := zerolog.Ctx(ctx).With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx)

	var orderFields []rule.Attribute
	if settings.Order.Enabled {
		orderFields = append(orderFields, settings.Order.Field)
	}
	run := &run{
		settings: settings,
		required: enrich.RequirementsFor(settings.Rules, orderFields...),
		enricher: enrich.New(p.enrichment, enrich.NewCache()),
		chain:    filter.NewChain(settings.Rules...),
		sequence: order.NewSequence(settings.Order),
	}

	logger.Info().Msgf("generating smart playlist: rules=%d preview=%v genres=%v audio_features=%v",
		len(settings.Rules), settings.Preview, run.required.Genres, run.required.AudioFeatures)

	if err := p.retrieve(ctx, run); err != nil {
		return nil, err
	}

	matched := run.sequence.Len()
	tracks := settings.Limit.Apply(run.sequence.Tracks())

	logger.Info().Msgf("smart playlist generated: pages=%d scanned=%d matched=%d tracks=%d",
		run.pages, run.scanned, matched, len(tracks))

	return &Result{
		RunID:       runID,
		Tracks:      tracks,
		Order:       settings.Order,
		Limit:       settings.Limit,
		Description: Description(settings.Limit, settings.Order),
		Pages:       run.pages,
		Scanned:     run.scanned,
		Matched:     matched,
	}, nil
}

// run is the state owned by one Generate call.
type run struct {
	settings *Settings
	required enrich.Requirements
	enricher *enrich.Enricher
	chain    *filter.Chain
	sequence *order.Sequence

	pages   int
	scanned int
}

// retrieve pages through the catalog until the last page, or until a
// preview has collected PreviewSize tracks.
func (p *Pipeline) retrieve(ctx context.Context, r *run) error {
	logger := zerolog.Ctx(ctx)

	hasMore := true
	for pageNumber := 0; hasMore; pageNumber++ {
		if err := ctx.Err(); err != nil {
			return errors.Wrap(err, "track retrieval cancelled")
		}

		page, err := p.pages.FetchTrackPage(ctx, pageNumber, p.pageSize)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch track page %d", pageNumber)
		}
		if page == nil {
			return errors.Newf("track page %d is missing", pageNumber)
		}
		r.pages++
		// Unavailable entries still count towards the page, so a page made
		// up entirely of them does not end retrieval.
		hasMore = !page.IsLast() && len(page.Items) > 0

		items := page.Available()
		if skipped := len(page.Items) - len(items); skipped > 0 {
			logger.Debug().Msgf("skipping %d unavailable tracks on page %d", skipped, pageNumber)
		}

		if r.required.Any() {
			if err := r.enricher.Enrich(ctx, items, r.required); err != nil {
				return errors.Wrapf(err, "failed to enrich track page %d", pageNumber)
			}
		}

		for _, t := range items {
			r.scanned++
			if result := r.chain.Execute(t); !result.Accepted {
				continue
			}
			r.sequence.Add(t)

			if r.settings.Preview && r.sequence.Len() >= PreviewSize {
				logger.Debug().Msgf("preview complete after %d pages", r.pages)
				return nil
			}
		}

		logger.Debug().Msgf("processed page: page=%d items=%d total=%d matched=%d",
			pageNumber, len(page.Items), page.Total, r.sequence.Len())
	}

	return nil
}
