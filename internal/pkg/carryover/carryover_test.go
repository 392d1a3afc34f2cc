package carryover

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithCookies(t *testing.T, w *httptest.ResponseRecorder) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/v1/registrations/complete", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestWriteThenRead_RoundTrips(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, Record{CoupleID: "c1", EmailA: "a@x.com", EmailB: "b@x.com"}, 7*24*time.Hour)

	rec, ok := Read(requestWithCookies(t, w))
	require.True(t, ok)
	assert.Equal(t, "c1", rec.CoupleID)
	assert.Equal(t, "a@x.com", rec.EmailA)
	assert.Equal(t, "b@x.com", rec.EmailB)
}

func TestRead_NoCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := Read(r)
	assert.False(t, ok)
}

func TestRead_MalformedCookie(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: cookieName, Value: "%%%not-base64"})
	_, ok := Read(r)
	assert.False(t, ok)
}

func TestResolveCoupleID_ExplicitOverridesStored(t *testing.T) {
	w := httptest.NewRecorder()
	Write(w, Record{CoupleID: "stored", EmailA: "a@x.com", EmailB: "b@x.com"}, time.Hour)
	r := requestWithCookies(t, w)

	assert.Equal(t, "explicit", ResolveCoupleID("explicit", r))
	assert.Equal(t, "stored", ResolveCoupleID("", r))
}

func TestResolveCoupleID_NothingAvailable(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", ResolveCoupleID("", r))
}

func TestClear_ExpiresCookie(t *testing.T) {
	w := httptest.NewRecorder()
	Clear(w)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, cookieName, cookies[0].Name)
	assert.Negative(t, cookies[0].MaxAge)
}
