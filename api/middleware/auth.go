package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/haulmart-backend/api/responses"
	pkgAuth "github.com/angelmondragon/haulmart-backend/pkg/auth"
	"github.com/angelmondragon/haulmart-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/haulmart-backend/pkg/errors"
	"github.com/angelmondragon/haulmart-backend/pkg/logger"
)

// bearerToken extracts the credential from "Authorization: Bearer <token>".
// Any other scheme counts as missing.
func bearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Auth resolves the bearer token into an actor on the request context.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deny := func(err error) {
				w.Header().Set("WWW-Authenticate", `Bearer realm="haulmart"`)
				responses.WriteError(r.Context(), logg, w, err)
			}

			token, ok := bearerToken(r)
			if !ok {
				deny(pkgerrors.New(pkgerrors.CodeUnauthorized, "missing bearer token"))
				return
			}
			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				deny(pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			actor := claims.Actor()
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, actor.UserID.String()), string(actor.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
