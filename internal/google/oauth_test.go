package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_TokenFile(t *testing.T) {
	cfg := Config{TokenDir: "/tmp/tokens"}
	assert.Equal(t, filepath.Join("/tmp/tokens", "google-default.token"), cfg.TokenFile())

	cfg.Account = "work"
	assert.Equal(t, filepath.Join("/tmp/tokens", "google-work.token"), cfg.TokenFile())

	assert.True(t, strings.HasSuffix(Config{}.TokenFile(), filepath.Join("emailagent", "google-default.token")))
}

func TestConfig_Validate(t *testing.T) {
	assert.Error(t, Config{}.Validate())
	assert.Error(t, Config{ClientID: "id", ClientSecret: "s", Account: "a b"}.Validate())
	assert.NoError(t, Config{ClientID: "id", ClientSecret: "s"}.Validate())
}

func TestConfig_AuthURL(t *testing.T) {
	u := Config{ClientID: "client-123", ClientSecret: "s"}.AuthURL("xyz")
	assert.Contains(t, u, "client_id=client-123")
	assert.Contains(t, u, "access_type=offline")
	assert.Contains(t, u, "state=xyz")
	assert.Contains(t, u, "gmail.readonly")
}

func TestParseCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "bare code", input: " 4/0Abc ", want: "4/0Abc"},
		{name: "redirect url", input: "http://localhost/?state=x&code=4/0Xyz&scope=a", want: "4/0Xyz"},
		{name: "denied", input: "http://localhost/?error=access_denied", wantErr: true},
		{name: "url without code", input: "http://localhost/?state=x", wantErr: true},
		{name: "empty", input: "  ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCode(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSaveLoadToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "google-default.token")
	tok := &oauth2.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, SaveToken(path, tok))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, tok.AccessToken, loaded.AccessToken)
	assert.Equal(t, tok.RefreshToken, loaded.RefreshToken)
	assert.True(t, tok.Expiry.Equal(loaded.Expiry))
}

func TestTokenSource_NoToken(t *testing.T) {
	cfg := Config{ClientID: "id", ClientSecret: "s", TokenDir: t.TempDir()}
	assert.False(t, cfg.HasToken())

	_, err := cfg.TokenSource(context.Background())
	assert.ErrorIs(t, err, ErrNoToken)
}

func TestTokenSource_ValidStoredToken(t *testing.T) {
	cfg := Config{ClientID: "id", ClientSecret: "s", TokenDir: t.TempDir()}
	require.NoError(t, SaveToken(cfg.TokenFile(), &oauth2.Token{
		AccessToken: "still-valid",
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Hour),
	}))
	assert.True(t, cfg.HasToken())

	ts, err := cfg.TokenSource(context.Background())
	require.NoError(t, err)
	tok, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "still-valid", tok.AccessToken)

	client, err := cfg.HTTPClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
}
