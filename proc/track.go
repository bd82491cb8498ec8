package proc

import (
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// Track is a playable item produced by an Engine. Handle carries whatever the
// engine needs to stream it later and is never inspected here.
type Track struct {
	Title    string
	Author   string
	Duration time.Duration
	URI      string
	Handle   any
}

// Playlist is a transient group of tracks returned by a single load.
type Playlist struct {
	Name           string
	Tracks         []*Track
	Selected       *Track
	IsSearchResult bool
}

type OriginKind string

const (
	OriginSingle       OriginKind = "single"
	OriginPlaylist     OriginKind = "playlist"
	OriginPlaylistFile OriginKind = "playlist_file"
)

type RequestMetadata struct {
	RequesterID snowflake.ID
	RequestedAt time.Time
	Origin      OriginKind
}

// QueuedTrack references the engine's Track; it never copies it.
type QueuedTrack struct {
	Track    *Track
	Metadata RequestMetadata
}

func NewQueuedTrack(t *Track, requester snowflake.ID, origin OriginKind) *QueuedTrack {
	return &QueuedTrack{
		Track: t,
		Metadata: RequestMetadata{
			RequesterID: requester,
			RequestedAt: time.Now(),
			Origin:      origin,
		},
	}
}
