package browser

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storageState = `{
  "cookies": [
    {"name": "NYT-S", "value": "abc", "domain": ".nytimes.com", "path": "/", "expires": 1893456000, "httpOnly": true, "secure": true, "sameSite": "Lax"},
    {"name": "nyt-a", "value": "xyz", "domain": ".nytimes.com", "path": "/", "expires": -1, "httpOnly": false, "secure": true, "sameSite": "None"}
  ],
  "origins": [
    {"origin": "https://www.nytimes.com", "localStorage": [{"name": "k", "value": "v"}]}
  ]
}`

func TestParseSession(t *testing.T) {
	s, err := ParseSession([]byte(storageState))
	require.NoError(t, err)

	require.Len(t, s.Cookies, 2)
	assert.Equal(t, "NYT-S", s.Cookies[0].Name)
	assert.True(t, s.Cookies[0].HTTPOnly)
	assert.Equal(t, "Lax", s.Cookies[0].SameSite)
	require.Len(t, s.Origins, 1)
	assert.Equal(t, "v", s.Origins[0].LocalStorage[0].Value)
}

func TestParseSession_Errors(t *testing.T) {
	_, err := ParseSession([]byte("  "))
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = ParseSession([]byte("{not json"))
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = ParseSession([]byte(`{"cookies": [], "origins": []}`))
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = ParseSession([]byte(`{"cookies": [{"name": "a", "value": "b"}]}`))
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestLoadSession_PrefersBlob(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s, err := LoadSession(storageState, path)
	require.NoError(t, err)
	assert.Len(t, s.Cookies, 2)
}

func TestLoadSession_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth_state.json")
	require.NoError(t, os.WriteFile(path, []byte(storageState), 0o600))

	s, err := LoadSession("", path)
	require.NoError(t, err)
	assert.Len(t, s.Cookies, 2)
}

func TestLoadSession_Missing(t *testing.T) {
	_, err := LoadSession("", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = LoadSession("", "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionSave_RoundTrip(t *testing.T) {
	s, err := ParseSession([]byte(storageState))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "state", "auth_state.json")
	require.NoError(t, s.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadSession("", path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	s := &Session{Cookies: []Cookie{
		{Name: "a", Domain: "x", Expires: float64(now.Add(-time.Hour).Unix())},
		{Name: "b", Domain: "x", Expires: float64(now.Add(-2 * time.Hour).Unix())},
	}}
	assert.True(t, s.Expired(now))

	s.Cookies = append(s.Cookies, Cookie{Name: "c", Domain: "x", Expires: float64(now.Add(time.Hour).Unix())})
	assert.False(t, s.Expired(now))

	s.Cookies = []Cookie{{Name: "d", Domain: "x", Expires: -1}}
	assert.False(t, s.Expired(now))
}

func TestCookieParams(t *testing.T) {
	s, err := ParseSession([]byte(storageState))
	require.NoError(t, err)

	params := cookieParams(s.Cookies)
	require.Len(t, params, 2)

	assert.Equal(t, network.CookieSameSiteLax, params[0].SameSite)
	require.NotNil(t, params[0].Expires)
	assert.Equal(t, int64(1893456000), params[0].Expires.Time().Unix())

	assert.Equal(t, network.CookieSameSiteNone, params[1].SameSite)
	assert.Nil(t, params[1].Expires, "session cookies carry no expiry")
}

func TestCookieFromNetwork(t *testing.T) {
	c := cookieFromNetwork(&network.Cookie{
		Name: "a", Value: "b", Domain: ".example.com", Path: "/",
		Expires: 123, Session: true, SameSite: network.CookieSameSiteStrict,
	})

	assert.Equal(t, float64(-1), c.Expires)
	assert.Equal(t, "Strict", c.SameSite)
}
