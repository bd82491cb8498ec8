package proc

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// SpotifyCatalog implements CatalogService against the Spotify Web API using
// the client-credentials grant.
type SpotifyCatalog struct {
	creds      clientcredentials.Config
	httpClient *http.Client
}

func NewSpotifyCatalog(clientID, clientSecret string) *SpotifyCatalog {
	return &SpotifyCatalog{
		creds: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     spotifyauth.TokenURL,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SpotifyCatalog) ExchangeCredential(ctx context.Context) (*Credential, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	tok, err := s.creds.Token(ctx)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			ce := &CatalogError{Kind: CatalogAuth, Message: re.ErrorDescription, Err: err}
			if re.Response != nil {
				ce.Status = re.Response.StatusCode
			}
			if ce.Message == "" {
				ce.Message = re.ErrorCode
			}
			return nil, ce
		}
		return nil, err
	}
	return &Credential{Token: tok.AccessToken, Expiry: tok.Expiry}, nil
}

func (s *SpotifyCatalog) GetTrack(ctx context.Context, cred *Credential, trackID string) (*CatalogTrack, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cred.Token, TokenType: "Bearer"})
	client := spotify.New(oauth2.NewClient(ctx, ts))

	track, err := client.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		var apiErr spotify.Error
		if errors.As(err, &apiErr) {
			return nil, &CatalogError{Kind: CatalogAuth, Status: apiErr.Status, Message: apiErr.Message, Err: err}
		}
		return nil, err
	}

	out := &CatalogTrack{Title: track.Name}
	for _, a := range track.Artists {
		out.Artists = append(out.Artists, a.Name)
	}
	return out, nil
}
