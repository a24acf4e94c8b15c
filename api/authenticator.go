package api

import (
	"context"
	"net/http"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/tutorhub/webfront/errors"
)

type (
	userIDKey struct{}
	tokenKey  struct{}
)

// authenticator handles the JWT verified by jwtauth.Verifier. The token must
// carry the user identifier claim. The identifier is added to the HTTP header
// as `X-User-Id` and the raw token is kept in the context, so that it can be
// forwarded to the backend by the next handlers.
func (a *API) authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			errors.ErrUnauthorized.Write(w)
			return
		}
		if token == nil || jwt.Validate(token, jwt.WithRequiredClaim(userIDClaim)) != nil {
			errors.ErrUnauthorized.Withf("%s claim not found in JWT token", userIDClaim).Write(w)
			return
		}
		userID, ok := claims[userIDClaim].(string)
		if !ok || userID == "" {
			errors.ErrUnauthorized.Withf("invalid %s claim", userIDClaim).Write(w)
			return
		}
		raw := jwtauth.TokenFromHeader(r)
		if raw == "" {
			raw = jwtauth.TokenFromCookie(r)
		}
		r.Header.Set("X-User-Id", userID)
		ctx := context.WithValue(r.Context(), userIDKey{}, userID)
		ctx = context.WithValue(ctx, tokenKey{}, raw)
		// Token is authenticated, pass it through
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken returns the raw token of the authenticated request.
func bearerToken(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

// userID returns the user identifier of the authenticated request.
func userID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}
