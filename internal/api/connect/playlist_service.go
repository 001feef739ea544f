package connect

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/osa030/smartlist/internal/app/smartplaylist"
	"github.com/osa030/smartlist/internal/domain/playlist"
	"github.com/osa030/smartlist/internal/infra/spotify"
)

// Generator runs the smart playlist pipeline.
type Generator interface {
	Generate(ctx context.Context, settings *smartplaylist.Settings) (*smartplaylist.Result, error)
}

// PlaylistWriter materializes generated playlists.
type PlaylistWriter interface {
	CreatePlaylist(ctx context.Context, name, description string) (string, error)
	AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error
	ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error
	ChangePlaylistDescription(ctx context.Context, playlistID, description string) error
	GetPlaylistURL(playlistID string) string
}

// PlaylistService implements the PlaylistService RPC.
type PlaylistService struct {
	generator Generator
	writer    PlaylistWriter
}

// NewPlaylistService creates a new PlaylistService.
func NewPlaylistService(generator Generator, writer PlaylistWriter) *PlaylistService {
	return &PlaylistService{
		generator: generator,
		writer:    writer,
	}
}

// NewPlaylistServiceHandler builds an HTTP handler serving svc. It returns
// the path prefix to mount the handler on.
func NewPlaylistServiceHandler(svc *PlaylistService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(PreviewProcedure, connect.NewUnaryHandler(PreviewProcedure, svc.Preview, opts...))
	mux.Handle(CreateProcedure, connect.NewUnaryHandler(CreateProcedure, svc.Create, opts...))
	mux.Handle(DescribeProcedure, connect.NewUnaryHandler(DescribeProcedure, svc.Describe, opts...))
	return "/" + ServiceName + "/", mux
}

// Preview returns the first tracks the params would select.
func (s *PlaylistService) Preview(
	ctx context.Context,
	req *connect.Request[PreviewRequest],
) (*connect.Response[PreviewResponse], error) {
	settings, err := smartplaylist.ParseSettings(req.Msg.Params, true)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	result, err := s.generator.Generate(ctx, settings)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	pl := &playlist.Playlist{Description: result.Description, Tracks: result.Tracks}
	tracks := make([]Track, len(pl.Tracks))
	for i, t := range pl.Tracks {
		tracks[i] = toTrackMessage(t)
	}

	return connect.NewResponse(&PreviewResponse{
		Tracks:          tracks,
		Description:     pl.Description,
		TotalDurationMs: pl.TotalDurationMs(),
	}), nil
}

// Create generates the full playlist and writes it to Spotify.
func (s *PlaylistService) Create(
	ctx context.Context,
	req *connect.Request[CreateRequest],
) (*connect.Response[CreateResponse], error) {
	name := strings.TrimSpace(req.Msg.Name)
	target := strings.TrimSpace(req.Msg.PlaylistURL)
	if name == "" && target == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("playlist name is required"))
	}

	settings, err := smartplaylist.ParseSettings(req.Msg.Params, false)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	result, err := s.generator.Generate(ctx, settings)
	if err != nil {
		return nil, toConnectError(ctx, err)
	}

	pl := &playlist.Playlist{
		Name:        name,
		Description: result.Description,
		Tracks:      result.Tracks,
	}
	if err := s.write(ctx, pl, target); err != nil {
		return nil, toConnectError(ctx, err)
	}

	zerolog.Ctx(ctx).Info().Msgf("playlist written: id=%s tracks=%d", pl.ID, len(pl.Tracks))

	return connect.NewResponse(&CreateResponse{
		PlaylistID:  pl.ID,
		PlaylistURL: pl.URL,
		Description: pl.Description,
		TrackCount:  len(pl.Tracks),
	}), nil
}

// write creates pl, or overwrites the playlist target refers to.
func (s *PlaylistService) write(ctx context.Context, pl *playlist.Playlist, target string) error {
	if s.writer == nil {
		return errors.New("playlist writer is not configured")
	}

	if target != "" {
		pl.ID = spotify.ExtractPlaylistID(target)
		if err := s.writer.ReplacePlaylistTracks(ctx, pl.ID, pl.TrackIDs()); err != nil {
			return errors.Wrapf(err, "failed to replace tracks of playlist %s", pl.ID)
		}
		if err := s.writer.ChangePlaylistDescription(ctx, pl.ID, pl.Description); err != nil {
			return errors.Wrapf(err, "failed to update description of playlist %s", pl.ID)
		}
	} else {
		id, err := s.writer.CreatePlaylist(ctx, pl.Name, pl.Description)
		if err != nil {
			return errors.Wrap(err, "failed to create playlist")
		}
		pl.ID = id
		if err := s.writer.AddTracksToPlaylist(ctx, pl.ID, pl.TrackIDs()); err != nil {
			return errors.Wrapf(err, "failed to add tracks to playlist %s", pl.ID)
		}
	}

	pl.URL = s.writer.GetPlaylistURL(pl.ID)
	return nil
}

// Describe returns the description params would produce without touching
// the catalog.
func (s *PlaylistService) Describe(
	_ context.Context,
	req *connect.Request[DescribeRequest],
) (*connect.Response[DescribeResponse], error) {
	settings, err := smartplaylist.ParseSettings(req.Msg.Params, false)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	return connect.NewResponse(&DescribeResponse{
		Description: smartplaylist.Description(settings.Limit, settings.Order),
	}), nil
}

func toConnectError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	zerolog.Ctx(ctx).Error().Err(err).Msg("playlist generation failed")
	return connect.NewError(connect.CodeInternal, err)
}
