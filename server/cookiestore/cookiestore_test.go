package cookiestore_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/gmail-connect/server/cookiestore"
	"github.com/stretchr/testify/require"
)

func TestReadOnly_ReadsButRejectsWrites(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})

	c := cookiestore.NewReadOnly(r)
	require.False(t, c.Writable())

	v, ok := c.Get("sid")
	require.True(t, ok)
	require.Equal(t, "abc", v)

	_, ok = c.Get("missing")
	require.False(t, ok)

	require.ErrorIs(t, c.Set("sid", "def", cookiestore.Options{}), cookiestore.ErrWriteRejected)
	require.ErrorIs(t, c.Remove("sid", cookiestore.Options{}), cookiestore.ErrWriteRejected)

	// Reads still work after a rejected write
	v, ok = c.Get("sid")
	require.True(t, ok)
	require.Equal(t, "abc", v)
}

func TestWritable_SetIsVisibleAndEmitted(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()

	c := cookiestore.NewWritable(w, r)
	require.True(t, c.Writable())

	opts := cookiestore.DefaultOptions(time.Hour)
	require.NoError(t, c.Set("sid", "new-session", opts))

	v, ok := c.Get("sid")
	require.True(t, ok)
	require.Equal(t, "new-session", v)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "sid", cookies[0].Name)
	require.Equal(t, "new-session", cookies[0].Value)
	require.Equal(t, 3600, cookies[0].MaxAge)
	require.True(t, cookies[0].HttpOnly)
	require.False(t, cookies[0].Secure)
	require.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
}

func TestWritable_RemoveHidesRequestCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
	w := httptest.NewRecorder()

	c := cookiestore.NewWritable(w, r)
	require.NoError(t, c.Remove("sid", cookiestore.DefaultOptions(0)))

	_, ok := c.Get("sid")
	require.False(t, ok)

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestWritable_SecureBehindProxy(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()

	require.NoError(t, cookiestore.NewWritable(w, r).Set("sid", "abc", cookiestore.DefaultOptions(time.Minute)))

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	require.True(t, cookies[0].Secure)
}
