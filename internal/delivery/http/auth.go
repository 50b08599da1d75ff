package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/azizikri/vinyl-checkout/internal/domain"
	"github.com/azizikri/vinyl-checkout/internal/usecase"
	"github.com/golang-jwt/jwt/v5"
)

const RoleAdmin = "admin"

// Claims is the bearer token payload. Subject carries the numeric user id.
type Claims struct {
	Account string `json:"account"`
	Role    string `json:"role"`
	jwt.RegisteredClaims
}

type actorKey struct{}

func withActor(ctx context.Context, a usecase.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

func actorFrom(ctx context.Context) (usecase.Actor, bool) {
	a, ok := ctx.Value(actorKey{}).(usecase.Actor)
	return a, ok
}

func parseToken(raw string, secret []byte) (*Claims, error) {
	var claims Claims
	tkn, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected sign method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	return &claims, nil
}

// Authenticate resolves the bearer token into a usecase.Actor. Requests without a valid
// token never reach the next handler.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				writeError(w, r, "auth_error", fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized))
				return
			}

			claims, err := parseToken(raw, secret)
			if err != nil {
				writeError(w, r, "auth_error", fmt.Errorf("%w: %v", domain.ErrUnauthorized, err))
				return
			}
			userID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil || userID <= 0 {
				writeError(w, r, "auth_error", fmt.Errorf("%w: bad subject", domain.ErrUnauthorized))
				return
			}

			actor := usecase.Actor{UserID: userID, Admin: claims.Role == RoleAdmin}
			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), actor)))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := actorFrom(r.Context())
		if !ok {
			writeError(w, r, "auth_error", domain.ErrUnauthorized)
			return
		}
		if !actor.Admin {
			writeError(w, r, "auth_error", fmt.Errorf("%w: admin role required", domain.ErrForbidden))
			return
		}
		next.ServeHTTP(w, r)
	})
}
