package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/open-policy-agent/opa/rego"
	"go.opentelemetry.io/otel"
)

type userContextKey struct{ name string }

var userCtxKey = &userContextKey{"user"}

var tracer = otel.Tracer("iot-inventory-admin/authz")

// CredentialChecker verifies a username and password and returns the user.
type CredentialChecker interface {
	Authenticate(ctx context.Context, username, password string) (types.User, error)
}

// NewAuthenticator returns a middleware that requires HTTP basic credentials
// and then asks the policy in data.example.authz.allow whether the user may
// perform the request.
func NewAuthenticator(ctx context.Context, policies io.Reader, users CredentialChecker) (func(http.Handler) http.Handler, error) {
	module, err := io.ReadAll(policies)
	if err != nil {
		return nil, fmt.Errorf("unable to read authz policies: %s", err.Error())
	}

	query, err := rego.New(
		rego.Query("x = data.example.authz.allow"),
		rego.Module("inventory.rego", string(module)),
	).PrepareForEval(ctx)

	if err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var err error

			ctx, span := tracer.Start(r.Context(), "check-auth")
			defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

			logger := logging.GetLoggerFromContext(ctx)

			username, password, ok := r.BasicAuth()
			if !ok {
				err = errors.New("authorization header missing")
				logger.Info().Msg(err.Error())
				unauthorized(w)
				return
			}

			user, err := users.Authenticate(ctx, username, password)
			if err != nil {
				logger.Info().Str("username", username).Msg("authentication failed")
				unauthorized(w)
				return
			}

			path := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

			entity := r.URL.Query().Get("entity")
			if entity == "" && len(path) > 2 && path[1] == "v0" {
				entity = path[2]
			}

			input := map[string]any{
				"method":   r.Method,
				"path":     path,
				"entity":   entity,
				"role":     string(user.Role),
				"username": user.Username,
			}

			results, err := query.Eval(ctx, rego.EvalInput(input))
			if err != nil {
				logger.Error().Err(err).Msg("opa eval failed")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			if len(results) == 0 {
				err = errors.New("opa query could not be satisfied")
				logger.Error().Err(err).Msg("auth failed")
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}

			allowed, ok := results[0].Bindings["x"].(bool)
			if !ok || !allowed {
				err = errors.New("authorization failed")
				logger.Warn().Str("username", username).Str("method", r.Method).Msg(err.Error())
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}

			r = r.WithContext(WithUser(r.Context(), user))

			next.ServeHTTP(w, r)
		})
	}, nil
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="inventory"`)
	http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
}

func WithUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(userCtxKey).(types.User)
	return user, ok
}
