package proc

import (
	"fmt"
	"strings"
	"time"

	"github.com/leeineian/jukebox/sys"
)

const (
	ChoiceLoad   = "📥"
	ChoiceCancel = "🚫"
)

// Messages renders every user-facing status line of the play pipeline.
type Messages struct {
	Emojis      sys.Emojis
	MaxDuration time.Duration
}

func (m Messages) maxTime() string {
	return sys.FormatTime(m.MaxDuration)
}

func (m Messages) NoSong() string {
	return m.Emojis.Error + " No song specified."
}

func (m Messages) Loading(query string) string {
	return fmt.Sprintf("%s Loading... `[%s]`", m.Emojis.Loading, query)
}

func (m Messages) Searching(query string) string {
	return fmt.Sprintf("%s Searching... `[%s]`", m.Emojis.Searching, query)
}

func (m Messages) Redirected(ref *CatalogTrackRef) string {
	return fmt.Sprintf("%s Redirected **%s** by **%s** to YouTube search.", m.Emojis.Success, ref.Title, ref.Artist)
}

func (m Messages) CatalogFailure(err error) string {
	ce := classifyCatalogError(err)
	switch ce.Kind {
	case CatalogAuth:
		msg := ce.Message
		if msg == "" && ce.Err != nil {
			msg = ce.Err.Error()
		}
		return m.Emojis.Error + " Spotify API error: " + msg
	case CatalogNetwork:
		return m.Emojis.Error + " Network error while accessing Spotify API."
	default:
		return m.Emojis.Error + " Error processing Spotify URL."
	}
}

func (m Messages) TooLong(t *Track) string {
	return fmt.Sprintf("%s This track (**%s**) is longer than the allowed maximum: `%s` > `%s`",
		m.Emojis.Warning, t.Title, sys.FormatTime(t.Duration), m.maxTime())
}

// Added phrases a 1-based queue position; position 1 starts playing right away.
func (m Messages) Added(t *Track, pos int) string {
	where := "to begin playing"
	if pos > 1 {
		where = fmt.Sprintf("to the queue at position %d", pos-1)
	}
	return fmt.Sprintf("%s Added **%s** (`%s`) %s", m.Emojis.Success, t.Title, sys.FormatTime(t.Duration), where)
}

func (m Messages) PlaylistPrompt(added string, size int) string {
	return fmt.Sprintf("%s\n%s This track has a playlist of **%d** tracks attached. Select %s to load playlist.",
		added, m.Emojis.Warning, size, ChoiceLoad)
}

func (m Messages) PlaylistAccepted(added string, loaded int) string {
	return fmt.Sprintf("%s\n%s Loaded **%d** additional tracks!", added, m.Emojis.Success, loaded)
}

func playlistLabel(name string) string {
	if name == "" {
		return ""
	}
	return "(**" + name + "**) "
}

// Bulk summarizes a playlist auto-load: empty source, all over the limit, or
// a success count with an omission note.
func (m Messages) Bulk(pl *Playlist, inserted int) string {
	total := len(pl.Tracks)
	switch {
	case total == 0:
		return fmt.Sprintf("%s The playlist %scould not be loaded or contained 0 entries", m.Emojis.Warning, playlistLabel(pl.Name))
	case inserted == 0:
		return fmt.Sprintf("%s All entries in this playlist %swere longer than the allowed maximum (`%s`)",
			m.Emojis.Warning, playlistLabel(pl.Name), m.maxTime())
	}

	found := "a playlist"
	if pl.Name != "" {
		found = "playlist **" + pl.Name + "**"
	}
	out := fmt.Sprintf("%s Found %s with `%d` entries; added to the queue!", m.Emojis.Success, found, total)
	if inserted < total {
		out += fmt.Sprintf("\n%s Tracks longer than the allowed maximum (`%s`) have been omitted.", m.Emojis.Warning, m.maxTime())
	}
	return out
}

func (m Messages) NoResults(raw string) string {
	return fmt.Sprintf("%s No results found for `%s`.", m.Emojis.Warning, raw)
}

func (m Messages) LoadFailed(f LoadFailed) string {
	if f.Severity == SeverityCommon {
		return m.Emojis.Error + " Error loading: " + f.Message
	}
	return m.Emojis.Error + " Error loading track."
}

func (m Messages) PlaylistNotFound(name string) string {
	return fmt.Sprintf("%s I could not find `%s.txt` in the Playlists folder.", m.Emojis.Error, name)
}

func (m Messages) PlaylistLoading(name string, items int) string {
	return fmt.Sprintf("%s Loading playlist **%s**... (%d items)", m.Emojis.Loading, name, items)
}

// PlaylistSummary renders the outcome of a playlist file load, capped to one message.
func (m Messages) PlaylistSummary(report *PlaylistLoadReport) string {
	var sb strings.Builder
	if report.Loaded == 0 {
		sb.WriteString(m.Emojis.Warning + " No tracks were loaded!")
	} else {
		fmt.Fprintf(&sb, "%s Loaded **%d** tracks!", m.Emojis.Success, report.Loaded)
	}
	if len(report.Errors) > 0 {
		sb.WriteString("\n\nThe following tracks failed to load:")
	}
	for _, e := range report.Errors {
		fmt.Fprintf(&sb, "\n`[%d]` **%s**: %s", e.Index+1, e.Item, e.Reason)
	}
	return sys.CapMessage(sb.String())
}
