package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
	"golang.org/x/sync/errgroup"
)

const playlistLoadConcurrency = 4

var (
	ErrPlaylistNotFound = errors.New("playlist not found")
	errTrackTooLong     = errors.New("this track is longer than the allowed maximum")
)

// NamedPlaylist is a stored list of queries, one per line.
type NamedPlaylist struct {
	Name    string
	Items   []string
	Shuffle bool
}

type PlaylistStore interface {
	Get(name string) (*NamedPlaylist, error)
	List() ([]string, error)
}

// FilePlaylistStore reads <name>.txt files from Dir.
type FilePlaylistStore struct {
	Dir string
}

func NewFilePlaylistStore(dir string) *FilePlaylistStore {
	return &FilePlaylistStore{Dir: dir}
}

func (s *FilePlaylistStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".txt"))
	}
	slices.Sort(names)
	return names, nil
}

// Get parses <name>.txt. Blank lines and lines starting with # or // are
// skipped; a #shuffle or //shuffle line shuffles the items.
func (s *FilePlaylistStore) Get(name string) (*NamedPlaylist, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, name)
	}
	f, err := os.Open(filepath.Join(s.Dir, name+".txt"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrPlaylistNotFound, name)
		}
		return nil, err
	}
	defer f.Close()

	pl := &NamedPlaylist{Name: name}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//"):
			directive := strings.TrimSpace(strings.TrimLeft(line, "#/"))
			if strings.EqualFold(directive, "shuffle") {
				pl.Shuffle = true
			}
		default:
			pl.Items = append(pl.Items, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if pl.Shuffle {
		rand.Shuffle(len(pl.Items), func(i, j int) { pl.Items[i], pl.Items[j] = pl.Items[j], pl.Items[i] })
	}
	return pl, nil
}

// itemQuery turns a stored item into an engine query; bare text becomes a search.
func itemQuery(item string) string {
	if strings.HasPrefix(item, "http://") || strings.HasPrefix(item, "https://") ||
		strings.HasPrefix(item, SearchPrefix) || strings.HasPrefix(item, MusicSearchPrefix) {
		return item
	}
	return SearchPrefix + item
}

type PlaylistItemError struct {
	Index  int
	Item   string
	Reason string
}

// PlaylistLoadReport is built while items resolve; Errors are ordered by Index.
type PlaylistLoadReport struct {
	Loaded int
	Errors []PlaylistItemError

	mu sync.Mutex
}

func (r *PlaylistLoadReport) loaded() {
	r.mu.Lock()
	r.Loaded++
	r.mu.Unlock()
}

func (r *PlaylistLoadReport) failed(i int, item, reason string) {
	r.mu.Lock()
	r.Errors = append(r.Errors, PlaylistItemError{Index: i, Item: item, Reason: reason})
	r.mu.Unlock()
}

// LoadTracks resolves every item through engine and hands each track to accept
// as it arrives. accept returning an error records the item as failed.
func (pl *NamedPlaylist) LoadTracks(ctx context.Context, engine Engine, guildID snowflake.ID, accept func(*Track) error) *PlaylistLoadReport {
	report := &PlaylistLoadReport{}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(playlistLoadConcurrency)

	for i, item := range pl.Items {
		g.Go(func() error {
			ch := make(chan LoadResult, 1)
			engine.Load(gctx, guildID, itemQuery(item), func(res LoadResult) { ch <- res })

			var res LoadResult
			select {
			case res = <-ch:
			case <-gctx.Done():
				report.failed(i, item, gctx.Err().Error())
				return nil
			}

			var tracks []*Track
			switch r := res.(type) {
			case TrackLoaded:
				tracks = []*Track{r.Track}
			case PlaylistLoaded:
				switch {
				case r.Playlist.Selected != nil:
					tracks = []*Track{r.Playlist.Selected}
				case r.Playlist.IsSearchResult && len(r.Playlist.Tracks) > 0:
					tracks = r.Playlist.Tracks[:1]
				default:
					tracks = r.Playlist.Tracks
				}
				if len(tracks) == 0 {
					report.failed(i, item, "No results found")
					return nil
				}
			case NoMatches:
				report.failed(i, item, "No results found")
				return nil
			case LoadFailed:
				reason := "Failed to load track"
				if r.Severity == SeverityCommon && r.Message != "" {
					reason += ": " + r.Message
				}
				report.failed(i, item, reason)
				return nil
			}

			for _, t := range tracks {
				if err := accept(t); err != nil {
					report.failed(i, item, err.Error())
					continue
				}
				report.loaded()
			}
			return nil
		})
	}
	_ = g.Wait()

	slices.SortStableFunc(report.Errors, func(a, b PlaylistItemError) int { return a.Index - b.Index })
	return report
}

// PlayPlaylist loads a stored playlist into the guild queue and reports a summary.
func (p *Player) PlayPlaylist(ctx context.Context, inv Invocation, name string) {
	pl, err := p.Playlists.Get(name)
	if err != nil {
		if errors.Is(err, ErrPlaylistNotFound) {
			inv.Replier.Reply(p.Messages.PlaylistNotFound(name))
			return
		}
		sys.LogPlaylist("Reading playlist %s failed: %v", name, err)
		inv.Replier.Reply(p.Messages.Emojis.Error + " Error reading playlist.")
		return
	}

	status := inv.Replier.Reply(p.Messages.PlaylistLoading(name, len(pl.Items)))
	q := p.Queues.Get(inv.GuildID)
	report := pl.LoadTracks(ctx, p.Engine, inv.GuildID, func(t *Track) error {
		if p.tooLong(t) {
			return errTrackTooLong
		}
		q.Add(NewQueuedTrack(t, inv.RequesterID, OriginPlaylistFile))
		return nil
	})

	sys.LogPlaylist("Loaded playlist %s: %d tracks, %d failures", name, report.Loaded, len(report.Errors))
	status.Edit(p.Messages.PlaylistSummary(report))
}
