package proc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/leeineian/jukebox/sys"
	"golang.org/x/sync/singleflight"
)

// CatalogTrackLinkMarker identifies a link to a single catalog track.
const CatalogTrackLinkMarker = "open.spotify.com/track/"

// SearchRedirectBase is the generic search URL a catalog link is rewritten to.
const SearchRedirectBase = "https://www.youtube.com/results?search_query="

const credentialExchangeTimeout = 15 * time.Second

var (
	ErrCatalogAuth     = errors.New("catalog api error")
	ErrCatalogNetwork  = errors.New("catalog network error")
	ErrCatalogOther    = errors.New("catalog error")
	ErrCatalogDisabled = errors.New("catalog credentials not configured")
)

type CatalogErrorKind int

const (
	CatalogAuth CatalogErrorKind = iota
	CatalogNetwork
	CatalogOther
)

func (k CatalogErrorKind) sentinel() error {
	switch k {
	case CatalogAuth:
		return ErrCatalogAuth
	case CatalogNetwork:
		return ErrCatalogNetwork
	default:
		return ErrCatalogOther
	}
}

// CatalogError classifies a failed catalog call. errors.Is matches the
// sentinel for its Kind.
type CatalogError struct {
	Kind    CatalogErrorKind
	Status  int
	Message string
	Err     error
}

func (e *CatalogError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%v (status %d): %s", e.Kind.sentinel(), e.Status, msg)
	}
	return fmt.Sprintf("%v: %s", e.Kind.sentinel(), msg)
}

func (e *CatalogError) Unwrap() error { return e.Err }

func (e *CatalogError) Is(target error) bool { return target == e.Kind.sentinel() }

// classifyCatalogError maps anything a CatalogService returns onto a *CatalogError.
func classifyCatalogError(err error) *CatalogError {
	var ce *CatalogError
	if errors.As(err, &ce) {
		return ce
	}
	var netErr net.Error
	var urlErr *url.Error
	if errors.As(err, &netErr) || errors.As(err, &urlErr) ||
		errors.Is(err, context.DeadlineExceeded) {
		return &CatalogError{Kind: CatalogNetwork, Err: err}
	}
	return &CatalogError{Kind: CatalogOther, Err: err}
}

// Credential is the access token issued by the catalog. A zero Expiry means unknown.
type Credential struct {
	Token  string
	Expiry time.Time
}

func (c *Credential) expired(now time.Time) bool {
	return !c.Expiry.IsZero() && !now.Before(c.Expiry)
}

type CatalogTrack struct {
	Title   string
	Artists []string
}

// CatalogService is the external metadata provider.
type CatalogService interface {
	ExchangeCredential(ctx context.Context) (*Credential, error)
	GetTrack(ctx context.Context, cred *Credential, trackID string) (*CatalogTrack, error)
}

// CatalogTrackRef is what a catalog link resolved to, plus the rewritten query.
type CatalogTrackRef struct {
	TrackID string
	Title   string
	Artist  string
	Query   string
}

// IsCatalogTrackLink reports whether s points at a catalog track.
func IsCatalogTrackLink(s string) bool {
	return strings.Contains(s, CatalogTrackLinkMarker)
}

// ExtractTrackID returns the last path segment of link with any query string removed.
func ExtractTrackID(link string) string {
	id := link[strings.LastIndex(link, "/")+1:]
	if i := strings.IndexByte(id, '?'); i >= 0 {
		id = id[:i]
	}
	return id
}

// BuildSearchRedirect formats the generic search URL for "title artist".
func BuildSearchRedirect(title, artist string) string {
	return SearchRedirectBase + url.QueryEscape(strings.TrimSpace(title+" "+artist))
}

// CatalogLinkResolver rewrites catalog track links into search queries. The
// credential is process-wide and fetched only when absent; concurrent first
// fetches collapse into one exchange.
type CatalogLinkResolver struct {
	svc            CatalogService
	refreshExpired bool
	now            func() time.Time

	mu    sync.RWMutex
	cred  *Credential
	group singleflight.Group
}

// NewCatalogLinkResolver returns a resolver backed by svc. With refreshExpired set,
// a credential past its expiry is treated as absent.
func NewCatalogLinkResolver(svc CatalogService, refreshExpired bool) *CatalogLinkResolver {
	return &CatalogLinkResolver{svc: svc, refreshExpired: refreshExpired, now: time.Now}
}

func (r *CatalogLinkResolver) Enabled() bool {
	return r != nil && r.svc != nil
}

// Resolve looks up the track behind link. Every failure is terminal for the
// request; a 401 drops the cached credential so the next call refetches.
func (r *CatalogLinkResolver) Resolve(ctx context.Context, link string) (*CatalogTrackRef, error) {
	if !r.Enabled() {
		return nil, ErrCatalogDisabled
	}
	id := ExtractTrackID(link)

	cred, err := r.credential(ctx)
	if err != nil {
		return nil, classifyCatalogError(err)
	}

	track, err := r.svc.GetTrack(ctx, cred, id)
	if err != nil {
		ce := classifyCatalogError(err)
		if ce.Status == 401 {
			r.invalidate(cred)
		}
		return nil, ce
	}
	if track == nil {
		return nil, &CatalogError{Kind: CatalogOther, Message: "empty track response"}
	}

	ref := &CatalogTrackRef{TrackID: id, Title: track.Title}
	if len(track.Artists) > 0 {
		ref.Artist = track.Artists[0]
	}
	ref.Query = BuildSearchRedirect(ref.Title, ref.Artist)
	sys.LogCatalog("Resolved %s to %q by %q", id, ref.Title, ref.Artist)
	return ref, nil
}

func (r *CatalogLinkResolver) cached() *Credential {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cred == nil {
		return nil
	}
	if r.refreshExpired && r.cred.expired(r.now()) {
		return nil
	}
	return r.cred
}

func (r *CatalogLinkResolver) credential(ctx context.Context) (*Credential, error) {
	if c := r.cached(); c != nil {
		return c, nil
	}
	// Waiters share one exchange; it outlives the request that started it.
	ch := r.group.DoChan("credential", func() (any, error) {
		if c := r.cached(); c != nil {
			return c, nil
		}
		ectx, cancel := context.WithTimeout(context.WithoutCancel(ctx), credentialExchangeTimeout)
		defer cancel()
		c, err := r.svc.ExchangeCredential(ectx)
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cred = c
		r.mu.Unlock()
		sys.LogCatalog("Fetched catalog credential")
		return c, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Credential), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// invalidate clears the cache only if it still holds the credential that failed.
func (r *CatalogLinkResolver) invalidate(stale *Credential) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cred == stale {
		r.cred = nil
		sys.LogCatalog("Dropped rejected catalog credential")
	}
}
