package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/viper"
)

// Identity carries the authenticated caller through the request context.
type Identity struct {
	UserID   int
	Username string
	IsAdmin  bool
}

type contextKey string

// IdentityKey is the request-context key holding the caller's Identity.
const IdentityKey contextKey = "identity"

// IdentityFromContext returns the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(IdentityKey).(*Identity)
	return id
}

// Auth validates bearer tokens and attaches the caller identity to the
// request context. Tokens revoked at logout are tracked in Redis.
type Auth struct {
	redis *redis.Client
}

func NewAuth(redisClient *redis.Client) *Auth {
	return &Auth{redis: redisClient}
}

// extractToken finds the token in, by priority: the token query parameter,
// the JSON or form body (token or Authorization field), and finally the
// Authorization header. Clients integrate in very different ways; accepting
// any one source keeps them all working.
func extractToken(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	if r.Method == http.MethodPost && r.Body != nil {
		contentType := r.Header.Get("Content-Type")
		switch {
		case strings.HasPrefix(contentType, "application/json"):
			body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
			if err == nil {
				// Restore the body for the handler.
				r.Body = io.NopCloser(bytes.NewReader(body))
				var fields struct {
					Token         string `json:"token"`
					Authorization string `json:"Authorization"`
				}
				if json.Unmarshal(body, &fields) == nil {
					if fields.Token != "" {
						return fields.Token
					}
					if fields.Authorization != "" {
						return strings.TrimPrefix(fields.Authorization, "Bearer ")
					}
				}
			}
		case strings.HasPrefix(contentType, "application/x-www-form-urlencoded"):
			if err := r.ParseForm(); err == nil {
				if token := r.PostForm.Get("token"); token != "" {
					return token
				}
				if auth := r.PostForm.Get("Authorization"); auth != "" {
					return strings.TrimPrefix(auth, "Bearer ")
				}
			}
		}
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// Authenticate is the token gate for all protected routes.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractToken(r)
		if token == "" {
			writeAuthError(w, http.StatusUnauthorized, "Missing authentication token")
			return
		}

		if a.redis != nil {
			revoked, err := a.redis.Exists(r.Context(), "blacklist:"+token).Result()
			if err == nil && revoked > 0 {
				writeAuthError(w, http.StatusUnauthorized, "Token has been revoked")
				return
			}
		}

		identity, err := validateToken(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), IdentityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin gates operator-only routes. Must run after Authenticate.
func (a *Auth) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := IdentityFromContext(r.Context())
		if identity == nil || !identity.IsAdmin {
			writeAuthError(w, http.StatusForbidden, "Admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func validateToken(tokenString string) (*Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(viper.GetString("jwt.secret_key")), nil
	})
	if err != nil || !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}
	username, _ := claims["username"].(string)
	isAdmin, _ := claims["is_admin"].(bool)

	return &Identity{UserID: int(userID), Username: username, IsAdmin: isAdmin}, nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"message": message}); err != nil {
		log.Printf("[AUTH] Failed to write error response: %v", err)
	}
}
