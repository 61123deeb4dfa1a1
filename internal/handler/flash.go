package handler

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

const (
	flashCookieName = "flash"
	flashTTL        = 60 * time.Second
	flashIssuer     = "studyhub/flash"
)

type flashKeyCtx struct{}

// FlashSigner sets the key flash cookies are signed with for every request.
// Pass the session secret so any instance can read another's flashes.
func FlashSigner(secret string) func(http.Handler) http.Handler {
	return chimiddleware.WithValue(flashKeyCtx{}, []byte(secret))
}

// processFlashKey signs flashes on requests that did not pass FlashSigner.
var processFlashKey = func() []byte {
	key := make([]byte, 32)
	rand.Read(key)
	return key
}()

func flashKey(r *http.Request) []byte {
	if key, ok := r.Context().Value(flashKeyCtx{}).([]byte); ok && len(key) > 0 {
		return key
	}
	return processFlashKey
}

type flashClaims struct {
	Messages []string `json:"msgs"`
	jwt.RegisteredClaims
}

// setFlash queues a one-shot message for the next rendered page. The message
// travels in a short-lived HS256-signed cookie, so it survives the redirect
// that usually follows and a client cannot forge one. Messages are
// HTML-escaped on output like any other template value.
func setFlash(w http.ResponseWriter, r *http.Request, message string) {
	now := time.Now()
	c := flashClaims{
		Messages: append(readFlashes(r), message),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(flashTTL)),
			Issuer:    flashIssuer,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(flashKey(r))
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(flashTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes returns the queued messages and deletes the cookie.
func popFlashes(w http.ResponseWriter, r *http.Request) []string {
	messages := readFlashes(r)
	if _, err := r.Cookie(flashCookieName); err == nil {
		http.SetCookie(w, &http.Cookie{
			Name:     flashCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return messages
}

// readFlashes verifies and decodes the flash cookie. A malformed, expired or
// unsigned cookie reads as empty.
func readFlashes(r *http.Request) []string {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	key := flashKey(r)
	token, err := jwt.ParseWithClaims(cookie.Value, &flashClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return key, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(flashIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil
	}
	c, ok := token.Claims.(*flashClaims)
	if !ok || !token.Valid {
		return nil
	}
	return c.Messages
}
