package home

import (
	"context"

	"github.com/leeineian/jukebox/proc"
	"github.com/leeineian/jukebox/sys"
)

var (
	Player      *proc.Player
	Queues      *proc.QueueRegistry
	Suggestions *proc.Suggester
)

// Setup builds the play pipeline from configuration. Call it before the gateway opens.
func Setup(ctx context.Context, cfg *sys.Config) {
	Queues = proc.NewQueueRegistry()
	Queues.OnAdd(proc.HistoryRecorder(ctx))

	var catalog *proc.CatalogLinkResolver
	if cfg.CatalogEnabled() {
		catalog = proc.NewCatalogLinkResolver(proc.NewSpotifyCatalog(cfg.SpotifyID, cfg.SpotifySecret), cfg.SpotifyRefreshExpired)
	} else {
		sys.LogWarn(sys.MsgConfigNoCatalog)
	}

	Player = &proc.Player{
		Engine:    proc.NewYTDLPEngine(cfg.YTDLPRate),
		Queues:    Queues,
		Catalog:   catalog,
		Playlists: proc.NewFilePlaylistStore(cfg.PlaylistsDir),
		Messages: proc.Messages{
			Emojis:      cfg.Emojis,
			MaxDuration: cfg.MaxTrackDuration(),
		},
		ConfirmTimeout: cfg.ConfirmTimeout,
	}
	Suggestions = proc.NewSuggester(cfg.YoutubePrefix, cfg.YTMusicPrefix)
}
