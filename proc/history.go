package proc

import (
	"context"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
)

// HistoryRecorder returns a queue hook that writes every accepted track to track_history.
func HistoryRecorder(ctx context.Context) func(guildID snowflake.ID, qt *QueuedTrack) {
	return func(guildID snowflake.ID, qt *QueuedTrack) {
		if sys.DB == nil {
			return
		}
		h := &sys.TrackHistory{
			GuildID:     guildID,
			RequesterID: qt.Metadata.RequesterID,
			Title:       qt.Track.Title,
			URI:         qt.Track.URI,
			Duration:    qt.Track.Duration,
			Origin:      string(qt.Metadata.Origin),
			RequestedAt: qt.Metadata.RequestedAt,
		}
		if err := sys.AddTrackHistory(ctx, h); err != nil {
			sys.LogWarn(sys.MsgDatabaseHistoryFail, guildID, err)
		}
	}
}
