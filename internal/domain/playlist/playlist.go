// Package playlist provides the Playlist domain entity.
package playlist

import "github.com/osa030/smartlist/internal/domain/track"

// Playlist represents a generated smart playlist.
type Playlist struct {
	ID          string         // Spotify Playlist ID (empty until materialized)
	Name        string         // Playlist name
	Description string         // Human-readable summary of the applied limit and order
	URL         string         // Spotify URL
	Tracks      []*track.Track // Tracks in playlist order
}

// TrackIDs returns all track IDs in the playlist.
func (p *Playlist) TrackIDs() []string {
	ids := make([]string, len(p.Tracks))
	for i, t := range p.Tracks {
		ids[i] = t.ID
	}
	return ids
}

// TotalDurationMs returns the total duration of all tracks in milliseconds.
func (p *Playlist) TotalDurationMs() int64 {
	var total int64
	for _, t := range p.Tracks {
		total += int64(t.DurationMs)
	}
	return total
}
