package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/gmail-file-downloader/internal/instrumentation"
	"github.com/teemow/gmail-file-downloader/internal/logging"
)

// Default auth directory layout.
const (
	DefaultAuthDir         = "auth"
	DefaultCredentialsFile = "credentials.json"
	DefaultTokenFile       = "token.json"
)

// AuthConfig locates the client secrets and token files. Relative file names
// are resolved against Dir; absolute ones are used as they are.
type AuthConfig struct {
	Dir             string
	CredentialsFile string
	TokenFile       string
	Scopes          []string
}

// DefaultAuthConfig returns auth/credentials.json and auth/token.json with
// read-only Gmail scope.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Dir:             DefaultAuthDir,
		CredentialsFile: DefaultCredentialsFile,
		TokenFile:       DefaultTokenFile,
		Scopes:          DefaultOAuthScopes,
	}
}

// CredentialsPath returns the resolved path of the client secrets file.
func (c AuthConfig) CredentialsPath() string {
	return c.resolve(c.CredentialsFile, DefaultCredentialsFile)
}

// TokenPath returns the resolved path of the token file.
func (c AuthConfig) TokenPath() string {
	return c.resolve(c.TokenFile, DefaultTokenFile)
}

func (c AuthConfig) resolve(name, fallback string) string {
	if name == "" {
		name = fallback
	}
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.Dir, name)
}

// LoadConfig parses the client secrets file into an OAuth2 config using the
// loopback redirect URL.
func LoadConfig(cfg AuthConfig) (*oauth2.Config, error) {
	path := cfg.CredentialsPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client secrets %s: %w", path, err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}

	conf, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secrets %s: %w", path, err)
	}
	conf.RedirectURL = RedirectURL
	return conf, nil
}

// Authorizer owns the token lifecycle for one token file.
type Authorizer struct {
	config    *oauth2.Config
	tokenPath string
	prompter  CodePrompter
	logger    logging.Logger
	metrics   *instrumentation.Metrics
}

// Option configures an Authorizer.
type Option func(*Authorizer)

// WithPrompter replaces the terminal prompt used to read the verification code.
func WithPrompter(p CodePrompter) Option {
	return func(a *Authorizer) { a.prompter = p }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(a *Authorizer) { a.logger = l }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Authorizer) { a.metrics = m }
}

// NewAuthorizer loads the client secrets described by cfg.
func NewAuthorizer(cfg AuthConfig, opts ...Option) (*Authorizer, error) {
	conf, err := LoadConfig(cfg)
	if err != nil {
		return nil, err
	}
	return NewAuthorizerFromConfig(conf, cfg.TokenPath(), opts...), nil
}

// NewAuthorizerFromConfig builds an Authorizer from an existing OAuth2 config.
func NewAuthorizerFromConfig(conf *oauth2.Config, tokenPath string, opts ...Option) *Authorizer {
	a := &Authorizer{
		config:    conf,
		tokenPath: tokenPath,
		prompter:  NewTerminalPrompter(),
		logger:    logging.DefaultLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// TokenPath returns the token file this Authorizer reads and writes.
func (a *Authorizer) TokenPath() string {
	return a.tokenPath
}

// Token returns a usable token. A valid saved token is returned untouched.
// An expired one is refreshed once when it carries a refresh token; otherwise
// the user is asked to authorize. New tokens are saved to the token file.
func (a *Authorizer) Token(ctx context.Context) (*oauth2.Token, error) {
	saved, err := LoadToken(a.tokenPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}

	if saved != nil && saved.Valid() {
		a.logger.Debug("using saved token", "path", a.tokenPath)
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
		return saved, nil
	}

	var tok *oauth2.Token
	if saved != nil && saved.RefreshToken != "" {
		tok, err = a.refresh(ctx, saved)
	} else {
		tok, err = a.Authorize(ctx)
	}
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}

	if err := SaveToken(a.tokenPath, tok); err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	a.logger.Info("saved token", "path", a.tokenPath)
	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)

	return tok, nil
}

// refresh exchanges the refresh token for a new access token.
func (a *Authorizer) refresh(ctx context.Context, saved *oauth2.Token) (*oauth2.Token, error) {
	a.logger.Info("refreshing expired token", "refresh_token", logging.SanitizeToken(saved.RefreshToken))

	tok, err := a.config.TokenSource(ctx, saved).Token()
	if err != nil {
		result := instrumentation.OAuthResultFailure
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			result = instrumentation.OAuthResultExpired
		}
		a.metrics.RecordOAuthTokenRefresh(ctx, result)
		return nil, fmt.Errorf("failed to refresh token (delete %s or run the auth command with --force to re-authorize): %w", a.tokenPath, err)
	}

	a.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	return tok, nil
}

// Authorize runs the interactive flow: it prints the consent URL, reads the
// verification code and exchanges it for a token. The token is not saved.
func (a *Authorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	state, err := newState()
	if err != nil {
		return nil, err
	}

	authURL := a.config.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", ConsentPrompt),
	)

	input, err := a.prompter.PromptCode(ctx, authURL)
	if err != nil {
		return nil, err
	}

	code, err := ParseCode(input, state)
	if err != nil {
		return nil, err
	}

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return tok, nil
}

// Reauthorize ignores any saved token, runs the interactive flow and saves
// the result.
func (a *Authorizer) Reauthorize(ctx context.Context) (*oauth2.Token, error) {
	tok, err := a.Authorize(ctx)
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	if err := SaveToken(a.tokenPath, tok); err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, err
	}
	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	return tok, nil
}

// HTTPClient bootstraps a token and returns an HTTP client that authorizes
// Gmail API requests with it. Tokens refreshed by the client later on are
// persisted to the token file.
func (a *Authorizer) HTTPClient(ctx context.Context) (*http.Client, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}

	ts := newPersistingTokenSource(a.config.TokenSource(ctx, tok), a.tokenPath, tok, a.logger)
	client := oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts))

	// Force HTTP/1.1 unless the caller supplied its own base client.
	if _, custom := ctx.Value(oauth2.HTTPClient).(*http.Client); !custom {
		if transport, ok := client.Transport.(*oauth2.Transport); ok {
			transport.Base = &http.Transport{
				Proxy:             http.ProxyFromEnvironment,
				ForceAttemptHTTP2: false,
			}
		}
	}

	return client, nil
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
