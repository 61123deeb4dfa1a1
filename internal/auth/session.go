package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	// SessionCookieName is the cookie carrying the signed session token.
	SessionCookieName = "session"

	sessionIssuer = "studyhub"

	// MinSecretLength guards against trivially guessable signing keys.
	MinSecretLength = 16
)

var (
	ErrSessionExpired = errors.New("auth: session expired")
	ErrInvalidSession = errors.New("auth: invalid session")
)

// SessionManager issues and validates session tokens.
//
// A session is an HS256-signed JWT stored in an HttpOnly cookie. The server
// keeps no session table: the signature proves the token came from us, and
// the claims carry everything a request needs to know about its user.
type SessionManager struct {
	secret []byte
	ttl    time.Duration
	secure bool
}

// NewSessionManager returns a SessionManager signing with secret.
// secure controls the cookie's Secure attribute (true behind HTTPS).
func NewSessionManager(secret string, ttl time.Duration, secure bool) (*SessionManager, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("auth: session secret must be at least %d characters", MinSecretLength)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("auth: session ttl must be positive, got %s", ttl)
	}
	return &SessionManager{secret: []byte(secret), ttl: ttl, secure: secure}, nil
}

// sessionClaims embeds the registered claims (sub, exp, iat, iss, jti) and
// adds the username so pages can greet the user without a database hit.
type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// Issue returns a signed token for id, valid for the manager's TTL.
func (m *SessionManager) Issue(id Identity) (string, error) {
	return m.issueWithDuration(id, m.ttl)
}

func (m *SessionManager) issueWithDuration(id Identity, d time.Duration) (string, error) {
	now := time.Now()

	c := sessionClaims{
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        xid.New().String(),
			Subject:   strconv.FormatInt(id.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    sessionIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns the identity it carries.
//
// Only HS256 is accepted; pinning the method stops "alg":"none" and
// algorithm-confusion tricks.
func (m *SessionManager) Parse(tokenStr string) (Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrSessionExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return Identity{}, ErrInvalidSession
	}

	userID, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return Identity{}, fmt.Errorf("%w: bad subject %q", ErrInvalidSession, c.Subject)
	}

	return Identity{UserID: userID, Username: c.Username}, nil
}

// SetCookie writes a fresh session cookie for id.
//
// HttpOnly keeps the token away from JavaScript; SameSite=Lax stops the
// browser sending it on cross-site POSTs.
func (m *SessionManager) SetCookie(w http.ResponseWriter, id Identity) error {
	token, err := m.Issue(id)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie tells the browser to drop the session cookie.
func (m *SessionManager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
