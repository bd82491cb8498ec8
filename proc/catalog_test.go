package proc

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractTrackID(t *testing.T) {
	assert.Equal(t, "abc123", ExtractTrackID("https://open.spotify.com/track/abc123?si=xyz"))
	assert.Equal(t, "abc123", ExtractTrackID("https://open.spotify.com/track/abc123"))
	assert.Equal(t, "abc123", ExtractTrackID("https://open.spotify.com/intl-de/track/abc123?si=1&x=2"))
	assert.True(t, IsCatalogTrackLink("listen: https://open.spotify.com/track/abc123"))
	assert.False(t, IsCatalogTrackLink("https://open.spotify.com/album/abc123"))
}

func TestCatalogResolveRewritesToSearch(t *testing.T) {
	svc := &fakeCatalog{track: &CatalogTrack{Title: "Song", Artists: []string{"Artist", "Feature"}}}
	r := NewCatalogLinkResolver(svc, false)

	ref, err := r.Resolve(context.Background(), "https://open.spotify.com/track/abc123?si=xyz")
	require.NoError(t, err)

	assert.Equal(t, "abc123", ref.TrackID)
	assert.Equal(t, "Song", ref.Title)
	assert.Equal(t, "Artist", ref.Artist)
	assert.Equal(t, "https://www.youtube.com/results?search_query=Song+Artist", ref.Query)
}

func TestCatalogCredentialFetchedOnce(t *testing.T) {
	svc := &fakeCatalog{track: &CatalogTrack{Title: "Song", Artists: []string{"Artist"}}, delay: 50 * time.Millisecond}
	r := NewCatalogLinkResolver(svc, false)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), "https://open.spotify.com/track/x")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), svc.exchanges.Load())
	assert.Equal(t, int32(10), svc.lookups.Load())
}

func TestCatalogExchangeSurvivesCancelledStarter(t *testing.T) {
	svc := &fakeCatalog{track: &CatalogTrack{Title: "Song", Artists: []string{"Artist"}}, delay: 80 * time.Millisecond}
	r := NewCatalogLinkResolver(svc, false)

	starterCtx, cancel := context.WithCancel(context.Background())
	starterErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(starterCtx, "https://open.spotify.com/track/x")
		starterErr <- err
	}()
	require.Eventually(t, func() bool { return svc.exchanges.Load() == 1 }, time.Second, time.Millisecond)

	waiterErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(context.Background(), "https://open.spotify.com/track/x")
		waiterErr <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	assert.Error(t, <-starterErr)
	assert.NoError(t, <-waiterErr)
	assert.Equal(t, int32(1), svc.exchanges.Load())
}

func TestCatalogUnauthorizedDropsCredential(t *testing.T) {
	svc := &fakeCatalog{
		track:     &CatalogTrack{Title: "Song", Artists: []string{"Artist"}},
		trackErrs: []error{&CatalogError{Kind: CatalogAuth, Status: 401, Message: "The access token expired"}},
	}
	r := NewCatalogLinkResolver(svc, false)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "https://open.spotify.com/track/x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCatalogAuth)
	assert.Equal(t, int32(1), svc.exchanges.Load(), "no retry within the failed request")

	_, err = r.Resolve(ctx, "https://open.spotify.com/track/x")
	require.NoError(t, err)
	assert.Equal(t, int32(2), svc.exchanges.Load())
}

func TestCatalogOtherFailureKeepsCredential(t *testing.T) {
	svc := &fakeCatalog{
		track:     &CatalogTrack{Title: "Song"},
		trackErrs: []error{&CatalogError{Kind: CatalogAuth, Status: 404, Message: "non existing id"}},
	}
	r := NewCatalogLinkResolver(svc, false)
	ctx := context.Background()

	_, err := r.Resolve(ctx, "https://open.spotify.com/track/x")
	require.Error(t, err)
	_, err = r.Resolve(ctx, "https://open.spotify.com/track/x")
	require.NoError(t, err)
	assert.Equal(t, int32(1), svc.exchanges.Load())
}

func TestCatalogExpiryOnlyWhenEnabled(t *testing.T) {
	ctx := context.Background()
	link := "https://open.spotify.com/track/x"

	lazy := &fakeCatalog{track: &CatalogTrack{Title: "Song"}, expiry: -time.Minute}
	r := NewCatalogLinkResolver(lazy, false)
	_, _ = r.Resolve(ctx, link)
	_, _ = r.Resolve(ctx, link)
	assert.Equal(t, int32(1), lazy.exchanges.Load())

	strict := &fakeCatalog{track: &CatalogTrack{Title: "Song"}, expiry: -time.Minute}
	r = NewCatalogLinkResolver(strict, true)
	_, _ = r.Resolve(ctx, link)
	_, _ = r.Resolve(ctx, link)
	assert.Equal(t, int32(2), strict.exchanges.Load())
}

func TestCatalogErrorClasses(t *testing.T) {
	ctx := context.Background()
	link := "https://open.spotify.com/track/x"

	netErr := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	r := NewCatalogLinkResolver(&fakeCatalog{exchangeErr: netErr}, false)
	_, err := r.Resolve(ctx, link)
	assert.ErrorIs(t, err, ErrCatalogNetwork)

	r = NewCatalogLinkResolver(&fakeCatalog{exchangeErr: &CatalogError{Kind: CatalogAuth, Status: 400, Message: "invalid_client"}}, false)
	_, err = r.Resolve(ctx, link)
	assert.ErrorIs(t, err, ErrCatalogAuth)

	r = NewCatalogLinkResolver(&fakeCatalog{exchangeErr: errors.New("boom")}, false)
	_, err = r.Resolve(ctx, link)
	assert.ErrorIs(t, err, ErrCatalogOther)

	var disabled *CatalogLinkResolver
	assert.False(t, disabled.Enabled())
	_, err = disabled.Resolve(ctx, link)
	assert.ErrorIs(t, err, ErrCatalogDisabled)
}
