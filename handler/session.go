package handler

import (
	"net/http"
	"time"

	"github.com/mgmassand/life-curriculum-assistant/service"
)

const (
	AccessCookieName  = "access_token"
	RefreshCookieName = "refresh_token"
	CSRFCookieName    = "csrf_token"

	// RefreshCookiePath covers the two endpoints that read the refresh cookie,
	// refresh and logout. Narrower paths keep it away from logout.
	RefreshCookiePath = "/api/auth"
)

// SessionCookies writes and clears the three session cookies. Secure is
// false only in debug mode so the cookies work over plain http locally.
type SessionCookies struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewSessionCookies(secure bool, accessTTL, refreshTTL time.Duration) SessionCookies {
	return SessionCookies{Secure: secure, AccessTTL: accessTTL, RefreshTTL: refreshTTL}
}

// Set writes the access and refresh cookies and a fresh CSRF token.
func (c SessionCookies) Set(w http.ResponseWriter, accessToken, refreshToken string) error {
	csrf, err := service.GenerateOpaqueToken()
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(c.AccessTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     RefreshCookiePath,
		MaxAge:   int(c.RefreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	// Readable by scripts, no max-age.
	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    csrf,
		Path:     "/",
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires all three cookies. Each is cleared on the path it was set on,
// otherwise the browser keeps it.
func (c SessionCookies) Clear(w http.ResponseWriter) {
	for _, ck := range []struct {
		name     string
		path     string
		httpOnly bool
	}{
		{AccessCookieName, "/", true},
		{RefreshCookieName, RefreshCookiePath, true},
		{CSRFCookieName, "/", false},
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     ck.name,
			Value:    "",
			Path:     ck.path,
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: ck.httpOnly,
			Secure:   c.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
