package proc

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/leeineian/jukebox/sys"
	"github.com/ppalone/ytsearch"
	"github.com/raitonoberu/ytmusic"
)

// Suggestion is one autocomplete entry for /play.
type Suggestion struct {
	Title string
	URL   string
}

type sourceFunc func(ctx context.Context, q string) []Suggestion

// Suggester races YouTube Music and YouTube searches for autocomplete.
type Suggester struct {
	YoutubePrefix string
	MusicPrefix   string
	Deadline      time.Duration

	youtube sourceFunc
	music   sourceFunc
}

func NewSuggester(ytPrefix, ytmPrefix string) *Suggester {
	s := &Suggester{YoutubePrefix: ytPrefix, MusicPrefix: ytmPrefix, Deadline: 2300 * time.Millisecond}
	s.youtube = s.searchYoutube
	s.music = s.searchMusic
	return s
}

func (s *Suggester) searchMusic(_ context.Context, q string) []Suggestion {
	r, err := ytmusic.TrackSearch(q).Next()
	if err != nil || r == nil {
		return nil
	}
	var out []Suggestion
	for _, v := range r.Tracks {
		if v.VideoID == "" {
			continue
		}
		art := ""
		if len(v.Artists) > 0 {
			art = " - " + v.Artists[0].Name
		}
		out = append(out, Suggestion{
			URL:   "https://music.youtube.com/watch?v=" + v.VideoID,
			Title: sys.TruncateWithPreserve(v.Title, 100, s.MusicPrefix+" ", art),
		})
	}
	return out
}

func (s *Suggester) searchYoutube(ctx context.Context, q string) []Suggestion {
	r, err := ytsearch.NewClient(nil).Search(ctx, q)
	if err != nil {
		return nil
	}
	var out []Suggestion
	for _, v := range r.Results {
		out = append(out, Suggestion{
			URL:   "https://www.youtube.com/watch?v=" + v.VideoID,
			Title: sys.TruncateWithPreserve(v.Title, 100, s.YoutubePrefix+" ", ""),
		})
	}
	return out
}

// Suggest returns up to 25 suggestions. A leading YouTube prefix puts YouTube
// results first; otherwise YouTube Music leads.
func (s *Suggester) Suggest(ctx context.Context, q string) []Suggestion {
	preferYoutube := false
	switch {
	case hasPrefixFold(q, s.YoutubePrefix):
		preferYoutube, q = true, strings.TrimSpace(q[len(s.YoutubePrefix):])
	case hasPrefixFold(q, s.MusicPrefix):
		q = strings.TrimSpace(q[len(s.MusicPrefix):])
	}
	if q == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.Deadline)
	defer cancel()

	var (
		mu      sync.Mutex
		yt, ytm []Suggestion
		wg      sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		r := s.music(ctx, q)
		mu.Lock()
		ytm = r
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		r := s.youtube(ctx, q)
		mu.Lock()
		yt = r
		mu.Unlock()
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	mu.Lock()
	defer mu.Unlock()
	first, second := ytm, yt
	if preferYoutube {
		first, second = yt, ytm
	}
	seen := make(map[string]bool)
	var out []Suggestion
	for _, list := range [][]Suggestion{first, second} {
		for _, sg := range list {
			if seen[sg.URL] {
				continue
			}
			seen[sg.URL] = true
			out = append(out, sg)
			if len(out) == 25 {
				return out
			}
		}
	}
	return out
}

func hasPrefixFold(s, prefix string) bool {
	return prefix != "" && len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
