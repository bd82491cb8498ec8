package proc

import (
	"context"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/google/uuid"
	"github.com/leeineian/jukebox/sys"
)

// SearchPrefix forces a keyword search on the engine.
const SearchPrefix = "ytsearch:"

// Engine resolves a query and invokes cb exactly once, off the caller's goroutine.
type Engine interface {
	Load(ctx context.Context, guildID snowflake.ID, query string, cb func(LoadResult))
}

// StatusMessage is a reply that can be edited later. Rendering errors stay
// inside the implementation.
type StatusMessage interface {
	ID() snowflake.ID
	Edit(text string)
}

type Replier interface {
	Reply(text string) StatusMessage
}

// Affordances puts reaction choices on a status message.
type Affordances interface {
	// Permitted reports whether the bot may add reactions in the channel.
	Permitted() bool
	// Present adds choices to msg and calls onChoice for reactions from requester.
	// The returned cancel stops delivery.
	Present(msg StatusMessage, requester snowflake.ID, choices []string, onChoice func(choice string)) (cancel func(), err error)
	// Clear removes the choices; failures are ignored.
	Clear(msg StatusMessage)
}

// Invocation is what the chat layer knows about one /play call.
type Invocation struct {
	GuildID     snowflake.ID
	ChannelID   snowflake.ID
	RequesterID snowflake.ID
	RawArgs     string
	Attachments []string
	Replier     Replier
	Affordances Affordances
}

// Request is one in-flight resolution. A retry is a new Request with Fallback set.
type Request struct {
	ID          uuid.UUID
	RawArgs     string
	Query       string
	GuildID     snowflake.ID
	ChannelID   snowflake.ID
	RequesterID snowflake.ID
	Status      StatusMessage
	Fallback    bool
}

func (r *Request) quoted() string {
	if r.RawArgs != "" {
		return r.RawArgs
	}
	return r.Query
}

type ActionKind int

const (
	ActionLoadSingle ActionKind = iota
	ActionLoadBulk
	ActionRetrySearch
	ActionNoResults
	ActionFailure
)

// Action is the next step for a request after its engine callback.
type Action struct {
	Kind     ActionKind
	Track    *Track
	Playlist *Playlist
	Query    string
	Failure  LoadFailed
}

// Dispatch decides what to do with an engine outcome. It has no side effects.
func Dispatch(res LoadResult, req *Request) Action {
	switch r := res.(type) {
	case TrackLoaded:
		return Action{Kind: ActionLoadSingle, Track: r.Track}
	case PlaylistLoaded:
		pl := r.Playlist
		switch {
		case pl == nil || (len(pl.Tracks) == 0 && pl.IsSearchResult && pl.Selected == nil):
			return Dispatch(NoMatches{}, req)
		case len(pl.Tracks) == 1 || pl.IsSearchResult:
			t := pl.Selected
			if t == nil {
				t = pl.Tracks[0]
			}
			return Action{Kind: ActionLoadSingle, Track: t}
		case pl.Selected != nil:
			return Action{Kind: ActionLoadSingle, Track: pl.Selected, Playlist: pl}
		default:
			return Action{Kind: ActionLoadBulk, Playlist: pl}
		}
	case NoMatches:
		if req.Fallback {
			return Action{Kind: ActionNoResults}
		}
		return Action{Kind: ActionRetrySearch, Query: SearchPrefix + req.Query}
	case LoadFailed:
		return Action{Kind: ActionFailure, Failure: r}
	}
	return Action{Kind: ActionFailure, Failure: LoadFailed{Severity: SeverityFault}}
}

// Player drives a /play request from raw input to queue insertion.
type Player struct {
	Engine         Engine
	Queues         *QueueRegistry
	Catalog        *CatalogLinkResolver
	Playlists      PlaylistStore
	Messages       Messages
	ConfirmTimeout time.Duration
}

func (p *Player) tooLong(t *Track) bool {
	return p.Messages.MaxDuration > 0 && t.Duration > p.Messages.MaxDuration
}

// Play normalizes the input, rewrites catalog links and submits the query.
// It blocks only on the catalog lookup; everything after is callback driven.
func (p *Player) Play(ctx context.Context, inv Invocation) {
	query, err := NormalizeRequest(inv.RawArgs, inv.Attachments)
	if err == nil && IsCatalogTrackLink(query) && p.Catalog.Enabled() {
		ref, cerr := p.Catalog.Resolve(ctx, query)
		if cerr != nil {
			sys.LogCatalog("Lookup for %s failed: %v", query, cerr)
			inv.Replier.Reply(p.Messages.CatalogFailure(cerr))
			return
		}
		query = ref.Query
		inv.Replier.Reply(p.Messages.Redirected(ref))
	}
	if err != nil {
		inv.Replier.Reply(p.Messages.NoSong())
		return
	}

	req := &Request{
		ID:          uuid.New(),
		RawArgs:     inv.RawArgs,
		Query:       query,
		GuildID:     inv.GuildID,
		ChannelID:   inv.ChannelID,
		RequesterID: inv.RequesterID,
	}
	req.Status = inv.Replier.Reply(p.Messages.Loading(query))
	sys.LogPlayer("[%s] %s requested %q in guild %s", req.ID, req.RequesterID, query, req.GuildID)
	p.submit(ctx, req, inv.Affordances)
}

func (p *Player) submit(ctx context.Context, req *Request, aff Affordances) {
	p.Engine.Load(ctx, req.GuildID, req.Query, func(res LoadResult) {
		p.handle(ctx, req, aff, res)
	})
}

func (p *Player) handle(ctx context.Context, req *Request, aff Affordances, res LoadResult) {
	act := Dispatch(res, req)
	switch act.Kind {
	case ActionLoadSingle:
		p.loadSingle(req, aff, act.Track, act.Playlist)
	case ActionLoadBulk:
		n := p.loadPlaylistBulk(req, act.Playlist, nil)
		sys.LogPlayer("[%s] Bulk loaded %d/%d tracks", req.ID, n, len(act.Playlist.Tracks))
		req.Status.Edit(p.Messages.Bulk(act.Playlist, n))
	case ActionRetrySearch:
		retry := *req
		retry.Query = act.Query
		retry.Fallback = true
		sys.LogPlayer("[%s] No match, retrying as %q", req.ID, retry.Query)
		req.Status.Edit(p.Messages.Searching(req.Query))
		p.submit(ctx, &retry, aff)
	case ActionNoResults:
		req.Status.Edit(p.Messages.NoResults(req.quoted()))
	case ActionFailure:
		sys.LogPlayer("[%s] Load failed (%s): %s %v", req.ID, act.Failure.Severity, act.Failure.Message, act.Failure.Err)
		req.Status.Edit(p.Messages.LoadFailed(act.Failure))
	}
}

func (p *Player) loadSingle(req *Request, aff Affordances, t *Track, attached *Playlist) {
	if p.tooLong(t) {
		req.Status.Edit(p.Messages.TooLong(t))
		return
	}

	origin := OriginSingle
	if attached != nil {
		origin = OriginPlaylist
	}
	pos := p.Queues.Get(req.GuildID).Add(NewQueuedTrack(t, req.RequesterID, origin))
	added := p.Messages.Added(t, pos)

	if attached == nil || aff == nil || !aff.Permitted() {
		req.Status.Edit(added)
		return
	}

	req.Status.Edit(p.Messages.PlaylistPrompt(added, len(attached.Tracks)))
	c := NewConfirmation(req.Status, req.RequesterID, aff, p.ConfirmTimeout)
	c.OnAccept = func() {
		n := p.loadPlaylistBulk(req, attached, t)
		req.Status.Edit(p.Messages.PlaylistAccepted(added, n))
	}
	c.OnDecline = func() {
		req.Status.Edit(added)
	}
	if err := c.Start(); err != nil {
		sys.LogPlayer("[%s] Could not present playlist prompt: %v", req.ID, err)
		req.Status.Edit(added)
	}
}

// loadPlaylistBulk inserts every track of pl except exclude and those over the
// duration limit, returning how many went in.
func (p *Player) loadPlaylistBulk(req *Request, pl *Playlist, exclude *Track) int {
	q := p.Queues.Get(req.GuildID)
	count := 0
	for _, t := range pl.Tracks {
		if t == exclude || p.tooLong(t) {
			continue
		}
		q.Add(NewQueuedTrack(t, req.RequesterID, OriginPlaylist))
		count++
	}
	return count
}
