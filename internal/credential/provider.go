package credential

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
)

// Scopes cover reading, sending, trashing and relabelling.
var Scopes = []string{gmail.GmailModifyScope}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Provider struct {
	oauth *oauth2.Config
	store TokenStore
	log   *zap.Logger
}

func NewProvider(cfg Config, store TokenStore, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		store: store,
		log:   log,
	}
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	if err := p.store.Save(ctx, tok); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}
	return tok, nil
}

// TokenSource returns a source built on the stored token. Refreshed tokens
// are written back to the store.
func (p *Provider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &persistingSource{
		base:  p.oauth.TokenSource(ctx, tok),
		store: p.store,
		log:   p.log,
		last:  tok.AccessToken,
	}, nil
}

type persistingSource struct {
	base  oauth2.TokenSource
	store TokenStore
	log   *zap.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		if err := s.store.Save(context.Background(), tok); err != nil {
			s.log.Warn("persist refreshed token failed", zap.Error(err))
		} else {
			s.last = tok.AccessToken
		}
	}
	return tok, nil
}
