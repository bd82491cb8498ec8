package proc

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	testGuild     = snowflake.ID(10)
	testRequester = snowflake.ID(42)
)

func newTestPlayer(engine Engine, max time.Duration) *Player {
	return &Player{
		Engine:         engine,
		Queues:         NewQueueRegistry(),
		Messages:       Messages{Emojis: testEmojis, MaxDuration: max},
		ConfirmTimeout: 50 * time.Millisecond,
	}
}

func invocation(args string, aff Affordances) (Invocation, *fakeReplier) {
	r := &fakeReplier{}
	return Invocation{
		GuildID:     testGuild,
		RequesterID: testRequester,
		RawArgs:     args,
		Replier:     r,
		Affordances: aff,
	}, r
}

func TestDispatch(t *testing.T) {
	a, b, c := track("a", 0), track("b", 0), track("c", 0)
	req := &Request{Query: "q"}
	fallback := &Request{Query: "ytsearch:q", Fallback: true}

	tests := []struct {
		name     string
		res      LoadResult
		req      *Request
		kind     ActionKind
		track    *Track
		attached bool
	}{
		{"track", TrackLoaded{Track: a}, req, ActionLoadSingle, a, false},
		{"one track playlist", PlaylistLoaded{Playlist: &Playlist{Tracks: []*Track{b}}}, req, ActionLoadSingle, b, false},
		{"search result picks first", PlaylistLoaded{Playlist: &Playlist{Tracks: []*Track{a, b}, IsSearchResult: true}}, req, ActionLoadSingle, a, false},
		{"search result honors selection", PlaylistLoaded{Playlist: &Playlist{Tracks: []*Track{a, b}, Selected: b, IsSearchResult: true}}, req, ActionLoadSingle, b, false},
		{"selected in playlist", PlaylistLoaded{Playlist: &Playlist{Tracks: []*Track{a, b, c}, Selected: c}}, req, ActionLoadSingle, c, true},
		{"bulk", PlaylistLoaded{Playlist: &Playlist{Tracks: []*Track{a, b, c}}}, req, ActionLoadBulk, nil, true},
		{"empty search result", PlaylistLoaded{Playlist: &Playlist{IsSearchResult: true}}, req, ActionRetrySearch, nil, false},
		{"no match retries", NoMatches{}, req, ActionRetrySearch, nil, false},
		{"no match after retry", NoMatches{}, fallback, ActionNoResults, nil, false},
		{"failure", LoadFailed{Severity: SeverityCommon, Message: "gone"}, req, ActionFailure, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			act := Dispatch(tt.res, tt.req)
			assert.Equal(t, tt.kind, act.Kind)
			assert.Same(t, tt.track, act.Track)
			assert.Equal(t, tt.attached, act.Playlist != nil)
		})
	}

	assert.Equal(t, "ytsearch:q", Dispatch(NoMatches{}, req).Query)
}

func TestPlaySingleTrack(t *testing.T) {
	engine := newFakeEngine().
		on("first", TrackLoaded{Track: track("First", 3*time.Minute)}).
		on("second", TrackLoaded{Track: track("Second", 61*time.Second)})
	p := newTestPlayer(engine, 0)

	inv, r := invocation("first", nil)
	p.Play(context.Background(), inv)
	engine.Wait()
	assert.Equal(t, "⌚ Loading... `[first]`", r.Status().texts[0])
	assert.Equal(t, "🎶 Added **First** (`03:00`) to begin playing", r.Status().Last())

	inv, r = invocation("second", nil)
	p.Play(context.Background(), inv)
	engine.Wait()
	assert.Equal(t, "🎶 Added **Second** (`01:01`) to the queue at position 1", r.Status().Last())

	q := p.Queues.Get(testGuild)
	require.Equal(t, 2, q.Len())
	assert.Equal(t, testRequester, q.Snapshot()[0].Metadata.RequesterID)
	assert.Equal(t, OriginSingle, q.Snapshot()[0].Metadata.Origin)
}

func TestPlayRejectsLongTrack(t *testing.T) {
	engine := newFakeEngine().on("long", TrackLoaded{Track: track("Long", 20*time.Minute)})
	p := newTestPlayer(engine, 10*time.Minute)

	inv, r := invocation("long", nil)
	p.Play(context.Background(), inv)
	engine.Wait()

	assert.Equal(t, "💡 This track (**Long**) is longer than the allowed maximum: `20:00` > `10:00`", r.Status().Last())
	assert.Equal(t, 0, p.Queues.Get(testGuild).Len())
}

func TestPlayEmptyInput(t *testing.T) {
	engine := newFakeEngine()
	p := newTestPlayer(engine, 0)

	inv, r := invocation("", nil)
	p.Play(context.Background(), inv)

	require.Len(t, r.Replies(), 1)
	assert.Equal(t, "🚫 No song specified.", r.Status().Last())
	assert.Empty(t, engine.Queries())
}

func TestPlayFallsBackToSearchOnce(t *testing.T) {
	engine := newFakeEngine().on("ytsearch:obscure song", PlaylistLoaded{Playlist: &Playlist{
		Tracks:         []*Track{track("Obscure", time.Minute), track("Other", time.Minute)},
		IsSearchResult: true,
	}})
	p := newTestPlayer(engine, 0)

	inv, r := invocation("obscure song", nil)
	p.Play(context.Background(), inv)
	engine.Wait()

	assert.Equal(t, []string{"obscure song", "ytsearch:obscure song"}, engine.Queries())
	assert.Equal(t, []string{
		"⌚ Loading... `[obscure song]`",
		"🔎 Searching... `[obscure song]`",
		"🎶 Added **Obscure** (`01:00`) to begin playing",
	}, r.Status().Texts())
}

func TestPlayNoResultsAfterFallback(t *testing.T) {
	engine := newFakeEngine()
	p := newTestPlayer(engine, 0)

	inv, r := invocation("<nothing here>", nil)
	p.Play(context.Background(), inv)
	engine.Wait()

	assert.Equal(t, []string{"nothing here", "ytsearch:nothing here"}, engine.Queries())
	assert.Equal(t, "💡 No results found for `<nothing here>`.", r.Status().Last())
}

func TestPlayLoadFailures(t *testing.T) {
	engine := newFakeEngine().
		on("https://x/common", LoadFailed{Severity: SeverityCommon, Message: "Video unavailable"}).
		on("https://x/fault", LoadFailed{Severity: SeverityFault, Message: "stack trace", Err: errors.New("exit 1")})
	p := newTestPlayer(engine, 0)

	inv, r := invocation("https://x/common", nil)
	p.Play(context.Background(), inv)
	engine.Wait()
	assert.Equal(t, "🚫 Error loading: Video unavailable", r.Status().Last())

	inv, r = invocation("https://x/fault", nil)
	p.Play(context.Background(), inv)
	engine.Wait()
	assert.Equal(t, "🚫 Error loading track.", r.Status().Last())
}

func TestPlayBulkPlaylistOmitsLongTracks(t *testing.T) {
	list := tracks(5, time.Minute)
	list[1].Duration = time.Hour
	list[3].Duration = time.Hour
	engine := newFakeEngine().on("https://x/list", PlaylistLoaded{Playlist: &Playlist{Name: "Mix", Tracks: list}})
	p := newTestPlayer(engine, 10*time.Minute)

	inv, r := invocation("https://x/list", nil)
	p.Play(context.Background(), inv)
	engine.Wait()

	assert.Equal(t, 3, p.Queues.Get(testGuild).Len())
	assert.Equal(t, "🎶 Found playlist **Mix** with `5` entries; added to the queue!\n💡 Tracks longer than the allowed maximum (`10:00`) have been omitted.", r.Status().Last())
}

func TestPlayBulkPlaylistEdgeCases(t *testing.T) {
	long := tracks(2, time.Hour)
	engine := newFakeEngine().
		on("https://x/empty", PlaylistLoaded{Playlist: &Playlist{Name: "Empty"}}).
		on("https://x/long", PlaylistLoaded{Playlist: &Playlist{Tracks: long}}).
		on("https://x/ok", PlaylistLoaded{Playlist: &Playlist{Tracks: tracks(3, time.Minute)}})
	p := newTestPlayer(engine, 10*time.Minute)

	inv, r := invocation("https://x/empty", nil)
	p.Play(context.Background(), inv)
	engine.Wait()
	assert.Equal(t, "💡 The playlist (**Empty**) could not be loaded or contained 0 entries", r.Status().Last())

	inv, r = invocation("https://x/long", nil)
	p.Play(context.Background(), inv)
	engine.Wait()
	assert.Equal(t, "💡 All entries in this playlist were longer than the allowed maximum (`10:00`)", r.Status().Last())

	inv, r = invocation("https://x/ok", nil)
	p.Play(context.Background(), inv)
	engine.Wait()
	assert.Equal(t, "🎶 Found a playlist with `3` entries; added to the queue!", r.Status().Last())
	assert.Equal(t, 3, p.Queues.Get(testGuild).Len())
}

func attachedPlaylistEngine() (*fakeEngine, *Playlist) {
	list := tracks(10, time.Minute)
	pl := &Playlist{Name: "Album", Tracks: list, Selected: list[4]}
	return newFakeEngine().on("https://x/watch?v=e&list=L", PlaylistLoaded{Playlist: pl}), pl
}

func TestPlayAttachedPlaylistAccepted(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine, pl := attachedPlaylistEngine()
	p := newTestPlayer(engine, 0)
	p.ConfirmTimeout = time.Minute
	aff := newFakeAffordances(true)

	inv, r := invocation("https://x/watch?v=e&list=L", aff)
	p.Play(context.Background(), inv)
	engine.Wait()

	added := "🎶 Added **e** (`01:00`) to begin playing"
	assert.Equal(t, added+"\n💡 This track has a playlist of **10** tracks attached. Select 📥 to load playlist.", r.Status().Last())
	assert.Equal(t, testRequester, aff.requester)
	assert.Equal(t, []string{ChoiceLoad, ChoiceCancel}, aff.choices)

	aff.choose(ChoiceLoad)
	require.True(t, aff.waitCleared())
	aff.choose(ChoiceLoad)

	assert.Equal(t, added+"\n🎶 Loaded **9** additional tracks!", r.Status().Last())
	q := p.Queues.Get(testGuild)
	require.Equal(t, 10, q.Len())
	count := 0
	for _, qt := range q.Snapshot() {
		if qt.Track == pl.Selected {
			count++
		}
	}
	assert.Equal(t, 1, count, "selected track is not inserted twice")
	assert.Equal(t, int32(1), aff.cancels.Load())
}

func TestPlayAttachedPlaylistTimesOut(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine, _ := attachedPlaylistEngine()
	p := newTestPlayer(engine, 0)
	aff := newFakeAffordances(true)

	inv, r := invocation("https://x/watch?v=e&list=L", aff)
	p.Play(context.Background(), inv)
	engine.Wait()

	require.True(t, aff.waitCleared())
	aff.choose(ChoiceLoad)

	assert.Equal(t, "🎶 Added **e** (`01:00`) to begin playing", r.Status().Last())
	assert.Equal(t, 1, p.Queues.Get(testGuild).Len())
}

func TestPlayAttachedPlaylistAcceptedBeforeReactionsFail(t *testing.T) {
	defer goleak.VerifyNone(t)

	engine, _ := attachedPlaylistEngine()
	p := newTestPlayer(engine, 0)
	p.ConfirmTimeout = time.Minute
	aff := newFakeAffordances(true)
	aff.immediate = ChoiceLoad
	aff.presentErr = errors.New("reaction failed")

	inv, r := invocation("https://x/watch?v=e&list=L", aff)
	p.Play(context.Background(), inv)
	engine.Wait()

	require.True(t, aff.waitCleared())
	assert.Equal(t, 10, p.Queues.Get(testGuild).Len())
	assert.Equal(t, "🎶 Added **e** (`01:00`) to begin playing\n🎶 Loaded **9** additional tracks!", r.Status().Last())
}

func TestPlayAttachedPlaylistWithoutPermission(t *testing.T) {
	engine, _ := attachedPlaylistEngine()
	p := newTestPlayer(engine, 0)
	aff := newFakeAffordances(false)

	inv, r := invocation("https://x/watch?v=e&list=L", aff)
	p.Play(context.Background(), inv)
	engine.Wait()

	assert.Equal(t, "🎶 Added **e** (`01:00`) to begin playing", r.Status().Last())
	assert.Nil(t, aff.choices)
}

func TestPlayCatalogLink(t *testing.T) {
	redirect := "https://www.youtube.com/results?search_query=Song+Artist"
	engine := newFakeEngine().on(redirect, PlaylistLoaded{Playlist: &Playlist{
		Tracks:         []*Track{track("Song (Official Video)", 4*time.Minute)},
		IsSearchResult: true,
	}})
	p := newTestPlayer(engine, 0)
	p.Catalog = NewCatalogLinkResolver(&fakeCatalog{track: &CatalogTrack{Title: "Song", Artists: []string{"Artist"}}}, false)

	inv, r := invocation("https://open.spotify.com/track/abc123?si=xyz", nil)
	p.Play(context.Background(), inv)
	engine.Wait()

	replies := r.Replies()
	require.Len(t, replies, 2)
	assert.Equal(t, "🎶 Redirected **Song** by **Artist** to YouTube search.", replies[0].Last())
	assert.Equal(t, []string{redirect}, engine.Queries())
	assert.True(t, strings.HasPrefix(replies[1].Last(), "🎶 Added **Song (Official Video)**"))
}

func TestPlayCatalogFailureStopsRequest(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"api", &CatalogError{Kind: CatalogAuth, Status: 400, Message: "invalid id"}, "🚫 Spotify API error: invalid id"},
		{"network", &CatalogError{Kind: CatalogNetwork, Err: errors.New("timeout")}, "🚫 Network error while accessing Spotify API."},
		{"other", errors.New("surprise"), "🚫 Error processing Spotify URL."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newFakeEngine()
			p := newTestPlayer(engine, 0)
			p.Catalog = NewCatalogLinkResolver(&fakeCatalog{trackErrs: []error{tt.err}}, false)

			inv, r := invocation("https://open.spotify.com/track/abc", nil)
			p.Play(context.Background(), inv)

			require.Len(t, r.Replies(), 1)
			assert.Equal(t, tt.want, r.Status().Last())
			assert.Empty(t, engine.Queries())
		})
	}
}
