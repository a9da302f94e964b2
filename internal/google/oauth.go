package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultAccount names the token used when no account is configured.
const DefaultAccount = "default"

// DefaultRedirectURL is a loopback address nothing listens on; the browser
// shows an error page whose address bar carries the code to paste back.
const DefaultRedirectURL = "http://localhost"

// ErrNoToken means no token has been stored for the account yet.
var ErrNoToken = errors.New("no Google OAuth token found, run `emailagent auth` first")

var accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Config identifies the OAuth client and where its token lives.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// TokenDir defaults to DefaultTokenDir().
	TokenDir string
	// Account selects one of several stored tokens. Defaults to DefaultAccount.
	Account string
}

func (c Config) account() string {
	if c.Account == "" {
		return DefaultAccount
	}
	return c.Account
}

// Validate checks that the client credentials are present and the account
// name is safe to use in a file name.
func (c Config) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET are required for the gmail mailbox")
	}
	return validateAccountName(c.account())
}

func validateAccountName(account string) error {
	if account == "" {
		return fmt.Errorf("account name cannot be empty")
	}
	if !accountNamePattern.MatchString(account) {
		return fmt.Errorf("invalid account name %q: only letters, digits, hyphens and underscores are allowed", account)
	}
	return nil
}

// DefaultTokenDir returns the per-user cache directory for tokens.
func DefaultTokenDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "emailagent")
}

// TokenFile returns the path of the token for the configured account.
func (c Config) TokenFile() string {
	dir := c.TokenDir
	if dir == "" {
		dir = DefaultTokenDir()
	}
	return filepath.Join(dir, "google-"+c.account()+".token")
}

// OAuthConfig returns the oauth2 configuration for the Gmail scopes.
func (c Config) OAuthConfig() *oauth2.Config {
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       Scopes,
	}
}

// AuthURL returns the consent page URL. Offline access is requested so a
// refresh token is issued.
func (c Config) AuthURL(state string) string {
	return c.OAuthConfig().AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// HasToken reports whether a token file exists for the account.
func (c Config) HasToken() bool {
	if validateAccountName(c.account()) != nil {
		return false
	}
	_, err := os.Stat(c.TokenFile())
	return err == nil
}

// ParseCode accepts either the bare authorization code or the full
// redirect URL the browser ended up on.
func ParseCode(input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("authorization code is empty")
	}
	if !strings.Contains(input, "://") {
		return input, nil
	}

	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("parsing redirect URL: %w", err)
	}
	if e := u.Query().Get("error"); e != "" {
		return "", fmt.Errorf("authorization denied: %s", e)
	}
	code := u.Query().Get("code")
	if code == "" {
		return "", fmt.Errorf("redirect URL carries no code parameter")
	}
	return code, nil
}

// Exchange trades an authorization code (or redirect URL) for a token and
// stores it.
func (c Config) Exchange(ctx context.Context, input string) (*oauth2.Token, error) {
	code, err := ParseCode(input)
	if err != nil {
		return nil, err
	}

	tok, err := c.OAuthConfig().Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	if err := SaveToken(c.TokenFile(), tok); err != nil {
		return nil, err
	}
	return tok, nil
}

// SaveToken writes tok to path as JSON, readable by the owner only.
func SaveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// LoadToken reads a token written by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNoToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("invalid token file %s: %w", path, err)
	}
	return &tok, nil
}

// TokenSource returns a token source for the stored token. Refreshed tokens
// are written back to disk.
func (c Config) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if err := validateAccountName(c.account()); err != nil {
		return nil, err
	}
	path := c.TokenFile()
	tok, err := LoadToken(path)
	if err != nil {
		return nil, err
	}

	base := c.OAuthConfig().TokenSource(ctx, tok)
	return oauth2.ReuseTokenSource(tok, &persistingSource{base: base, path: path, last: tok.AccessToken}), nil
}

type persistingSource struct {
	base oauth2.TokenSource
	path string

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
		s.last = tok.AccessToken
		// A failed write only costs a refresh on the next run.
		_ = SaveToken(s.path, tok)
	}
	return tok, nil
}

// HTTPClient returns an HTTP client authorized with the stored token.
// The client is configured to use HTTP/1.1 to avoid HTTP/2 protocol errors.
func (c Config) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := c.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	client := oauth2.NewClient(ctx, ts)
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}
	return client, nil
}
