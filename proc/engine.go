package proc

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/leeineian/jukebox/sys"
	"github.com/lrstanley/go-ytdlp"
	"github.com/raitonoberu/ytmusic"
	"golang.org/x/time/rate"
)

// MusicSearchPrefix searches YouTube Music instead of YouTube.
const MusicSearchPrefix = "ytmsearch:"

const (
	searchResultSize = 5
	playlistMaxItems = 500
	ytdlpEntryFormat = "%(webpage_url,url)s\t%(title)s\t%(uploader,channel)s\t%(duration)s\t%(id)s\t%(playlist_title)s"
)

// ytdlpRunner runs yt-dlp and returns its stdout and stderr.
type ytdlpRunner func(ctx context.Context, items string, target string) (stdout, stderr string, err error)

// musicSearcher queries YouTube Music.
type musicSearcher func(query string) ([]*Track, error)

// YTDLPEngine resolves queries with yt-dlp and YouTube Music. Process launches
// share one rate limiter.
type YTDLPEngine struct {
	limiter *rate.Limiter
	timeout time.Duration
	run     ytdlpRunner
	music   musicSearcher
}

func NewYTDLPEngine(perSecond float64) *YTDLPEngine {
	return &YTDLPEngine{
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		timeout: 45 * time.Second,
		run:     runYTDLP,
		music:   searchYTMusic,
	}
}

func runYTDLP(ctx context.Context, items string, target string) (string, string, error) {
	cmd := ytdlp.New().
		FlatPlaylist().
		Print(ytdlpEntryFormat).
		NoWarnings().
		IgnoreConfig()
	if items != "" {
		cmd = cmd.PlaylistItems(items)
	}
	sys.LogDebug("yt-dlp %s (items %q)", target, items)
	res, err := cmd.Run(ctx, target)
	if res == nil {
		return "", "", err
	}
	return res.Stdout, res.Stderr, err
}

func searchYTMusic(query string) ([]*Track, error) {
	r, err := ytmusic.TrackSearch(query).Next()
	if err != nil {
		return nil, err
	}
	var out []*Track
	for _, v := range r.Tracks {
		if v.VideoID == "" {
			continue
		}
		t := &Track{
			Title:    v.Title,
			Duration: time.Duration(v.Duration) * time.Second,
			URI:      "https://music.youtube.com/watch?v=" + v.VideoID,
			Handle:   v.VideoID,
		}
		if len(v.Artists) > 0 {
			t.Author = v.Artists[0].Name
		}
		out = append(out, t)
		if len(out) >= searchResultSize {
			break
		}
	}
	return out, nil
}

// Load resolves query on its own goroutine and reports exactly once.
func (e *YTDLPEngine) Load(ctx context.Context, guildID snowflake.ID, query string, cb func(LoadResult)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				sys.LogError(sys.MsgLoaderPanicRecovered, r)
			}
		}()
		cb(e.safeResolve(ctx, query))
	}()
}

// safeResolve turns a panic during resolution into a fault result.
func (e *YTDLPEngine) safeResolve(ctx context.Context, query string) (res LoadResult) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogError(sys.MsgLoaderPanicRecovered, r)
			res = LoadFailed{Severity: SeverityFault, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.resolve(ctx, query)
}

func (e *YTDLPEngine) resolve(ctx context.Context, query string) LoadResult {
	switch {
	case strings.HasPrefix(query, SearchPrefix):
		return e.search(ctx, strings.TrimSpace(strings.TrimPrefix(query, SearchPrefix)))
	case strings.HasPrefix(query, MusicSearchPrefix):
		return e.searchMusic(ctx, strings.TrimSpace(strings.TrimPrefix(query, MusicSearchPrefix)))
	}
	if q, ok := searchQueryFromRedirect(query); ok {
		return e.search(ctx, q)
	}
	if isHTTPURL(query) {
		return e.extract(ctx, query)
	}
	return NoMatches{}
}

func (e *YTDLPEngine) wait(ctx context.Context) error {
	if e.limiter == nil {
		return nil
	}
	return e.limiter.Wait(ctx)
}

func (e *YTDLPEngine) search(ctx context.Context, q string) LoadResult {
	if q == "" {
		return NoMatches{}
	}
	if err := e.wait(ctx); err != nil {
		return LoadFailed{Severity: SeverityFault, Err: err}
	}
	stdout, stderr, err := e.run(ctx, "", fmt.Sprintf("ytsearch%d:%s", searchResultSize, q))
	if err != nil {
		return classifyFailure(stderr, err)
	}
	tracks, _ := parseEntries(stdout)
	if len(tracks) == 0 {
		return NoMatches{}
	}
	return PlaylistLoaded{Playlist: &Playlist{Name: "Search results for: " + q, Tracks: tracks, IsSearchResult: true}}
}

func (e *YTDLPEngine) searchMusic(ctx context.Context, q string) LoadResult {
	if q == "" {
		return NoMatches{}
	}
	if err := ctx.Err(); err != nil {
		return LoadFailed{Severity: SeverityFault, Err: err}
	}
	tracks, err := e.music(q)
	if err != nil {
		return LoadFailed{Severity: SeverityFault, Message: "YouTube Music search failed", Err: err}
	}
	if len(tracks) == 0 {
		return NoMatches{}
	}
	return PlaylistLoaded{Playlist: &Playlist{Name: "Search results for: " + q, Tracks: tracks, IsSearchResult: true}}
}

func (e *YTDLPEngine) extract(ctx context.Context, link string) LoadResult {
	if err := e.wait(ctx); err != nil {
		return LoadFailed{Severity: SeverityFault, Err: err}
	}
	stdout, stderr, err := e.run(ctx, "1-"+strconv.Itoa(playlistMaxItems), link)
	if err != nil {
		return classifyFailure(stderr, err)
	}
	tracks, name := parseEntries(stdout)
	switch len(tracks) {
	case 0:
		return NoMatches{}
	case 1:
		return TrackLoaded{Track: tracks[0]}
	}

	pl := &Playlist{Name: name, Tracks: tracks}
	if id := selectedVideoID(link); id != "" {
		for _, t := range tracks {
			if t.Handle == id {
				pl.Selected = t
				break
			}
		}
	}
	return PlaylistLoaded{Playlist: pl}
}

// parseEntries reads the tab separated lines printed by yt-dlp and returns the
// tracks plus the playlist title, if any.
func parseEntries(stdout string) ([]*Track, string) {
	var tracks []*Track
	name := ""
	for _, l := range strings.Split(strings.TrimSpace(stdout), "\n") {
		ps := strings.Split(l, "\t")
		if len(ps) < 5 || ps[0] == "" || ps[0] == "NA" {
			continue
		}
		d := time.Duration(0)
		if secs, err := strconv.ParseFloat(ps[3], 64); err == nil {
			d = time.Duration(secs * float64(time.Second))
		}
		t := &Track{Title: ps[1], Author: naToEmpty(ps[2]), Duration: d, URI: ps[0], Handle: ps[4]}
		if len(ps) > 5 && name == "" {
			name = naToEmpty(ps[5])
		}
		tracks = append(tracks, t)
	}
	return tracks, name
}

func naToEmpty(s string) string {
	if s == "NA" {
		return ""
	}
	return s
}

var commonFailureMarkers = []string{
	"unavailable", "private video", "not available", "drm", "copyright", "sign in", "confirm your age", "removed",
}

// classifyFailure turns a yt-dlp error into a LoadFailed. Content problems the
// user can act on are common; anything else is a fault.
func classifyFailure(stderr string, err error) LoadFailed {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return LoadFailed{Severity: SeverityFault, Err: err}
	}
	msg := lastErrorLine(stderr)
	if msg == "" {
		return LoadFailed{Severity: SeverityFault, Err: err}
	}
	lower := strings.ToLower(msg)
	for _, m := range commonFailureMarkers {
		if strings.Contains(lower, m) {
			return LoadFailed{Severity: SeverityCommon, Message: msg, Err: err}
		}
	}
	// The extractor reported something it has no known cause for.
	return LoadFailed{Severity: SeveritySuspicious, Message: msg, Err: err}
}

// lastErrorLine extracts the final "ERROR:" line without its extractor tag.
func lastErrorLine(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		l := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(l, "ERROR:") {
			continue
		}
		l = strings.TrimSpace(strings.TrimPrefix(l, "ERROR:"))
		if strings.HasPrefix(l, "[") {
			if end := strings.Index(l, "]"); end >= 0 {
				l = strings.TrimSpace(l[end+1:])
			}
			// "[youtube] abc123: Video unavailable"
			if colon := strings.Index(l, ": "); colon >= 0 && !strings.Contains(l[:colon], " ") {
				l = l[colon+2:]
			}
		}
		return l
	}
	return ""
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// searchQueryFromRedirect unpacks a YouTube results URL into its search terms.
func searchQueryFromRedirect(s string) (string, bool) {
	u, err := url.Parse(s)
	if err != nil || u.Path != "/results" || !strings.HasSuffix(u.Host, "youtube.com") {
		return "", false
	}
	q := u.Query().Get("search_query")
	return q, q != ""
}

// selectedVideoID returns v= from a URL that also names a list.
func selectedVideoID(s string) string {
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	q := u.Query()
	if q.Get("list") == "" {
		return ""
	}
	return q.Get("v")
}
