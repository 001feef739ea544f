package connect

import (
	"github.com/osa030/smartlist/internal/domain/track"
)

// ServiceName is the fully-qualified name of the playlist service.
const ServiceName = "smartlist.v1.PlaylistService"

// Procedure paths.
const (
	PreviewProcedure  = "/" + ServiceName + "/Preview"
	CreateProcedure   = "/" + ServiceName + "/Create"
	DescribeProcedure = "/" + ServiceName + "/Describe"
)

// Track is the wire form of a generated track.
type Track struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri,omitempty"`
	Name        string   `json:"name"`
	Album       string   `json:"album,omitempty"`
	Artists     []string `json:"artists"`
	ReleaseDate string   `json:"release_date,omitempty"`
	AddedAt     string   `json:"added_at,omitempty"`
	DurationMs  int      `json:"duration_ms"`
	Popularity  int      `json:"popularity"`
	Explicit    bool     `json:"explicit,omitempty"`
	URL         string   `json:"url,omitempty"`
	Genres      []string `json:"genres,omitempty"`
}

// PreviewRequest asks for a preview of the playlist params would generate.
type PreviewRequest struct {
	Params map[string]string `json:"params"`
}

// PreviewResponse carries the preview tracks.
type PreviewResponse struct {
	Tracks          []Track `json:"tracks"`
	Description     string  `json:"description"`
	TotalDurationMs int64   `json:"total_duration_ms"`
}

// CreateRequest generates a playlist and writes it to the user's account.
// When PlaylistURL is set, that playlist's contents are replaced instead.
type CreateRequest struct {
	Name        string            `json:"name"`
	PlaylistURL string            `json:"playlist_url,omitempty"`
	Params      map[string]string `json:"params"`
}

// CreateResponse identifies the written playlist.
type CreateResponse struct {
	PlaylistID  string `json:"playlist_id"`
	PlaylistURL string `json:"playlist_url"`
	Description string `json:"description"`
	TrackCount  int    `json:"track_count"`
}

// DescribeRequest asks for the description params would produce.
type DescribeRequest struct {
	Params map[string]string `json:"params"`
}

// DescribeResponse carries the description.
type DescribeResponse struct {
	Description string `json:"description"`
}

func toTrackMessage(t *track.Track) Track {
	msg := Track{
		ID:          t.ID,
		URI:         t.URI,
		Name:        t.Name,
		Album:       t.Album,
		Artists:     t.Artists,
		ReleaseDate: t.ReleaseDate,
		AddedAt:     t.AddedAt,
		DurationMs:  t.DurationMs,
		Popularity:  t.Popularity,
		Explicit:    t.Explicit,
		URL:         t.URL,
	}
	if t.Genres != nil {
		msg.Genres = t.Genres.Sorted()
	}
	return msg
}
