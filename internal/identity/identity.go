package identity

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	jwt "github.com/golang-jwt/jwt/v5"

	"storefront/pkg/domain"
)

const (
	// DefaultTokenTTL is the lifetime for issued access tokens.
	DefaultTokenTTL = 24 * time.Hour
	// DefaultLeeway is clock skew tolerance for token validation.
	DefaultLeeway = 15 * time.Second

	defaultIssuer = "storefront"

	sessionHeader = "X-Session-Id"
	sessionCookie = "storefront_session"
)

// Claims carries the authenticated user id and role.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
}

// NewTokenManager builds a manager around a shared HS256 secret.
func NewTokenManager(secret, issuer string, ttl time.Duration) (*TokenManager, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = defaultIssuer
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		leeway: DefaultLeeway,
	}, nil
}

// Issue signs a token for the given user id and role.
func (m *TokenManager) Issue(userID, role string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", errors.New("user id is required")
	}
	now := time.Now().UTC()
	claims := Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Verify validates token signature, expiry and issuer, returning claims.
func (m *TokenManager) Verify(token string) (Claims, error) {
	claims := Claims{}
	token = strings.TrimSpace(token)
	if token == "" {
		return claims, errors.New("token required")
	}
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unsupported signing method")
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(m.leeway),
	)
	if err != nil || !parsed.Valid {
		if err == nil {
			err = errors.New("invalid token")
		}
		return claims, err
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return claims, errors.New("subject required")
	}
	return claims, nil
}

// BearerToken extracts a bearer token from the request header.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

// Resolver turns a request into a domain.Identity: a verified bearer
// token yields the user id, and the session id comes from the
// X-Session-Id header, then the session cookie, then a freshly minted
// uuid set back on the response.
type Resolver struct {
	tokens *TokenManager
}

// NewResolver builds a Resolver. tokens may be nil, in which case all
// visitors are anonymous.
func NewResolver(tokens *TokenManager) *Resolver {
	return &Resolver{tokens: tokens}
}

// Resolve returns the visitor identity and the role claim, minting a
// session cookie when the request carries none.
func (res *Resolver) Resolve(w http.ResponseWriter, r *http.Request) (domain.Identity, string) {
	var id domain.Identity
	var role string

	if res.tokens != nil {
		if token, ok := BearerToken(r); ok {
			if claims, err := res.tokens.Verify(token); err == nil {
				id.UserID = claims.Subject
				role = claims.Role
			}
		}
	}

	if sid := strings.TrimSpace(r.Header.Get(sessionHeader)); sid != "" {
		id.SessionID = sid
		return id, role
	}
	if c, err := r.Cookie(sessionCookie); err == nil && strings.TrimSpace(c.Value) != "" {
		id.SessionID = strings.TrimSpace(c.Value)
		return id, role
	}

	id.SessionID = uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id.SessionID,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, role
}
