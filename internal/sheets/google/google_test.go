package google

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"moneytracker/internal/cache"
	"moneytracker/internal/sheets"
)

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	t.Run("inline wins", func(t *testing.T) {
		b, err := credentials(Config{ServiceAccountJSON: ` {"type":"service_account"} `, ServiceAccountFile: "/nope"})
		require.NoError(t, err)
		assert.Equal(t, `{"type":"service_account"}`, string(b))
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "sa.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"type":"service_account"}`), 0o600))
		b, err := credentials(Config{ServiceAccountFile: path})
		require.NoError(t, err)
		assert.Contains(t, string(b), "service_account")
	})

	t.Run("unreadable file", func(t *testing.T) {
		_, err := credentials(Config{ServiceAccountFile: filepath.Join(t.TempDir(), "missing.json")})
		assert.ErrorContains(t, err, "read service account file")
	})

	t.Run("application default path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "adc.json")
		require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o600))
		t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", path)
		b, err := credentials(Config{})
		require.NoError(t, err)
		assert.Equal(t, "{}", string(b))
	})

	t.Run("nothing set", func(t *testing.T) {
		_, err := credentials(Config{})
		assert.ErrorContains(t, err, "missing service account credentials")
	})
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2024, "2024 Transactions"},
		{"  Ledger ", 2023, "2023 Ledger"},
		{"2022 Archive", 2024, "2022 Archive"},
		{"", 2024, ""},
		{"1234", 2024, "2024 1234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, yearPrefixedName(tt.base, tt.year), tt.base)
	}
}

func TestContainsTransaction(t *testing.T) {
	values := [][]any{
		sheets.Header[:2],
		{"7", "2024-01"},
		{"8"},
		{" 9 ", "2024-02"},
	}
	assert.True(t, containsTransaction(values, "2024-01", 7))
	assert.True(t, containsTransaction(values, "2024-02", 9))
	assert.False(t, containsTransaction(values, "2024-02", 7))
	assert.False(t, containsTransaction(values, "2024-01", 8))
	assert.False(t, containsTransaction(nil, "2024-01", 7))
}

func TestClient_NotInitialized(t *testing.T) {
	c := &Client{sheetBase: "Transactions", headers: map[string]bool{}}

	_, err := c.AppendRow(context.Background(), sheets.TransactionRow{MonthKey: "2024-01"})
	assert.ErrorContains(t, err, "not initialized")

	_, err = c.HasTransaction(context.Background(), "2024-01", 1)
	assert.ErrorContains(t, err, "not initialized")
}

func TestClient_SheetFor(t *testing.T) {
	c := &Client{sheetBase: "Transactions"}

	name, err := c.sheetFor("2025-03")
	require.NoError(t, err)
	assert.Equal(t, "2025 Transactions", name)

	_, err = c.sheetFor("bad")
	assert.Error(t, err)
}

const testOAuthClient = `{"installed":{"client_id":"test","client_secret":"test","redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token"}}`

func TestOAuthConfig(t *testing.T) {
	conf, err := OAuthConfig(Config{OAuthClientJSON: testOAuthClient})
	require.NoError(t, err)
	assert.Equal(t, "test", conf.ClientID)
	assert.Contains(t, conf.Scopes, "https://www.googleapis.com/auth/spreadsheets")

	_, err = OAuthConfig(Config{OAuthClientJSON: "invalid-json"})
	assert.ErrorContains(t, err, "oauth config")

	_, err = OAuthConfig(Config{OAuthClientFile: filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "read OAuth client file")
}

func TestLoadToken(t *testing.T) {
	tok, err := loadToken(Config{OAuthTokenJSON: `{"access_token":"test","refresh_token":"r"}`})
	require.NoError(t, err)
	assert.Equal(t, "test", tok.AccessToken)

	_, err = loadToken(Config{OAuthTokenJSON: `{}`})
	assert.ErrorContains(t, err, "neither access nor refresh token")

	_, err = loadToken(Config{})
	assert.ErrorContains(t, err, "missing OAuth token")
}

func TestSaveToken_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, SaveToken(path, &oauth2.Token{AccessToken: "a", RefreshToken: "r"}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := loadToken(Config{OAuthTokenFile: path})
	require.NoError(t, err)
	assert.Equal(t, "r", tok.RefreshToken)
}

func TestNew_OAuthMissingToken(t *testing.T) {
	_, err := New(context.Background(), Config{SpreadsheetID: "id", OAuthClientJSON: testOAuthClient}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing OAuth token")
}

// syncBuffer is a bytes.Buffer safe to read while Authorize writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAuthorize_RejectsStateMismatch(t *testing.T) {
	conf, err := OAuthConfig(Config{OAuthClientJSON: testOAuthClient})
	require.NoError(t, err)

	prompt := &syncBuffer{}
	errCh := make(chan error, 1)
	go func() {
		_, err := Authorize(context.Background(), conf, "127.0.0.1:0", prompt, 5*time.Second)
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(prompt.String(), "https://")
	}, 2*time.Second, 10*time.Millisecond)

	lines := strings.Split(strings.TrimSpace(prompt.String()), "\n")
	consent, err := url.Parse(lines[len(lines)-1])
	require.NoError(t, err)
	redirect := consent.Query().Get("redirect_uri")
	require.True(t, strings.HasPrefix(redirect, "http://localhost:"), redirect)

	resp, err := http.Get(redirect + "?code=abc&state=wrong")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	select {
	case err := <-errCh:
		assert.ErrorContains(t, err, "state mismatch")
	case <-time.After(5 * time.Second):
		t.Fatal("Authorize did not return")
	}
}

func TestAuthorize_Timeout(t *testing.T) {
	conf, err := OAuthConfig(Config{OAuthClientJSON: testOAuthClient})
	require.NoError(t, err)

	_, err = Authorize(context.Background(), conf, "127.0.0.1:0", io.Discard, 50*time.Millisecond)
	assert.ErrorContains(t, err, "timed out")
}

func TestClient_KnownTransactionsSkipTheSheet(t *testing.T) {
	c := &Client{sheetBase: "Transactions", headers: map[string]bool{}}
	assert.False(t, c.known("2024-01", 7), "no cache configured")
	c.remember("2024-01", 7)

	c.mirrored = cache.NewLRU[string, struct{}](8, time.Hour)
	assert.False(t, c.known("2024-01", 7))
	c.remember("2024-01", 7)
	assert.True(t, c.known("2024-01", 7))
	assert.False(t, c.known("2024-02", 7), "keyed by month")
	assert.Equal(t, "2024-01/7", mirroredKey("2024-01", 7))
}
