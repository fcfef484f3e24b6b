package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/diwise/iot-inventory-admin/internal/pkg/application/inventory"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/metrics"
	"github.com/diwise/iot-inventory-admin/internal/pkg/presentation/api/auth"
	"github.com/diwise/iot-inventory-admin/pkg/types"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("iot-inventory-admin/api")

// Inventory is the store operations served over http.
type Inventory interface {
	Authenticate(ctx context.Context, username, password string) (types.User, error)

	ListUsers(ctx context.Context, filter *types.FilterOptions, sort *types.SortOptions) []types.User
	GetUser(ctx context.Context, id string) (types.User, error)
	CreateUser(ctx context.Context, in types.UserInput) (types.User, error)
	UpdateUser(ctx context.Context, id string, in types.UserUpdate) (types.User, error)
	DeleteUser(ctx context.Context, id string) error

	ListGroups(ctx context.Context, filter *types.FilterOptions, sort *types.SortOptions) []types.Group
	GetGroup(ctx context.Context, id string) (types.Group, error)
	CreateGroup(ctx context.Context, in types.GroupInput) (types.Group, error)
	UpdateGroup(ctx context.Context, id string, in types.GroupUpdate) (types.Group, error)
	DeleteGroup(ctx context.Context, id string) error

	ListDevices(ctx context.Context, filter *types.FilterOptions, sort *types.SortOptions) []types.Device
	GetDevice(ctx context.Context, id string) (types.Device, error)
	CreateDevice(ctx context.Context, in types.DeviceInput) (types.Device, error)
	UpdateDevice(ctx context.Context, id string, in types.DeviceUpdate) (types.Device, error)
	DeleteDevice(ctx context.Context, id string) error

	Summary(ctx context.Context) types.Summary
}

type options struct {
	loginLimiter *loginLimiter
	eventStream  http.Handler
}

type Option func(*options)

// WithLoginRateLimit allows requestsPerMinute login attempts per client
// address, with bursts of up to burst attempts.
func WithLoginRateLimit(requestsPerMinute, burst int) Option {
	return func(o *options) {
		o.loginLimiter = newLoginLimiter(requestsPerMinute, burst)
	}
}

func WithEventStream(h http.Handler) Option {
	return func(o *options) {
		o.eventStream = h
	}
}

func RegisterHandlers(ctx context.Context, router *chi.Mux, policies io.Reader, store Inventory, opts ...Option) (*chi.Mux, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	log := logging.GetLoggerFromContext(ctx)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	router.Handle("/metrics", metrics.Handler())

	authenticator, err := auth.NewAuthenticator(ctx, policies, store)
	if err != nil {
		return nil, fmt.Errorf("failed to create api authenticator: %w", err)
	}

	router.Route("/api", func(r chi.Router) {
		r.Use(loggerMiddleware(log))

		r.Route("/v0", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if o.loginLimiter != nil {
					r.Use(o.loginLimiter.middleware)
				}
				r.Post("/login", loginHandler(log, store))
			})

			r.Post("/logout", logoutHandler(log))

			r.Group(func(r chi.Router) {
				r.Use(authenticator)

				if o.eventStream != nil {
					r.Handle("/events", o.eventStream)
				}

				r.Get("/summary", summaryHandler(log, store))

				r.Route("/{entity}", func(r chi.Router) {
					r.Use(entityMiddleware)

					r.Get("/", listEntitiesHandler(log, store))
					r.Post("/", createEntityHandler(log, store))
					r.Get("/{id}", getEntityHandler(log, store))
					r.Put("/{id}", updateEntityHandler(log, store))
					r.Patch("/{id}", updateEntityHandler(log, store))
					r.Delete("/{id}", deleteEntityHandler(log, store))
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Handle("/data", dataHandler(log, store))
		})
	})

	return router, nil
}

func loggerMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := logging.NewContextWithLogger(r.Context(), log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type entityContextKey struct{}

func entityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entity := types.Entity(chi.URLParam(r, "entity"))
		if !entity.Valid() {
			writeErrorMessage(w, http.StatusBadRequest, "Invalid entity type")
			return
		}

		ctx := context.WithValue(r.Context(), entityContextKey{}, entity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func entityFromContext(ctx context.Context) types.Entity {
	e, _ := ctx.Value(entityContextKey{}).(types.Entity)
	return e
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func loginHandler(log zerolog.Logger, store Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		ctx, span := tracer.Start(r.Context(), "login")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		creds := credentials{}
		err = json.NewDecoder(r.Body).Decode(&creds)
		if err != nil || creds.Username == "" || creds.Password == "" {
			requestLogger.Info().Msg("login request without credentials")
			writeErrorMessage(w, http.StatusBadRequest, "Username and password are required")
			return
		}

		user, err := store.Authenticate(ctx, creds.Username, creds.Password)
		if err != nil {
			writeError(w, requestLogger, err)
			return
		}

		writeJSON(w, requestLogger, http.StatusOK, user.WithoutPassword())
	}
}

func logoutHandler(log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Msg("logout")
		w.WriteHeader(http.StatusNoContent)
	}
}

func summaryHandler(log zerolog.Logger, store Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx, span := tracer.Start(r.Context(), "get-summary")
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		writeJSON(w, requestLogger, http.StatusOK, store.Summary(ctx))
	}
}

func listEntitiesHandler(log zerolog.Logger, store Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		entity := entityFromContext(r.Context())

		ctx, span := tracer.Start(r.Context(), "list-"+string(entity))
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		filter, sort, err := parseQuery(r)
		if err != nil {
			writeError(w, requestLogger, err)
			return
		}

		writeJSON(w, requestLogger, http.StatusOK, listEntities(ctx, store, entity, filter, sort))
	}
}

func getEntityHandler(log zerolog.Logger, store Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		entity := entityFromContext(r.Context())
		id := chi.URLParam(r, "id")

		ctx, span := tracer.Start(r.Context(), "get-"+string(entity))
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)
		requestLogger = requestLogger.With().Str("id", id).Logger()

		result, err := getEntity(ctx, store, entity, id)
		if err != nil {
			writeError(w, requestLogger, err)
			return
		}

		writeJSON(w, requestLogger, http.StatusOK, result)
	}
}

func createEntityHandler(log zerolog.Logger, store Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		entity := entityFromContext(r.Context())

		ctx, span := tracer.Start(r.Context(), "create-"+string(entity))
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)

		body, err := io.ReadAll(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to read body")
			writeErrorMessage(w, http.StatusBadRequest, "Unable to read request body")
			return
		}

		result, err := createEntity(ctx, store, entity, body)
		if err != nil {
			writeError(w, requestLogger, err)
			return
		}

		writeJSON(w, requestLogger, http.StatusCreated, result)
	}
}

func updateEntityHandler(log zerolog.Logger, store Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error
		defer r.Body.Close()

		entity := entityFromContext(r.Context())
		id := chi.URLParam(r, "id")

		ctx, span := tracer.Start(r.Context(), "update-"+string(entity))
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)
		requestLogger = requestLogger.With().Str("id", id).Logger()

		body, err := io.ReadAll(r.Body)
		if err != nil {
			requestLogger.Error().Err(err).Msg("unable to read body")
			writeErrorMessage(w, http.StatusBadRequest, "Unable to read request body")
			return
		}

		result, err := updateEntity(ctx, store, entity, id, body)
		if err != nil {
			writeError(w, requestLogger, err)
			return
		}

		writeJSON(w, requestLogger, http.StatusOK, result)
	}
}

func deleteEntityHandler(log zerolog.Logger, store Inventory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var err error

		entity := entityFromContext(r.Context())
		id := chi.URLParam(r, "id")

		ctx, span := tracer.Start(r.Context(), "delete-"+string(entity))
		defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()
		_, ctx, requestLogger := o11y.AddTraceIDToLoggerAndStoreInContext(span, log, ctx)
		requestLogger = requestLogger.With().Str("id", id).Logger()

		err = deleteEntity(ctx, store, entity, id)
		if err != nil {
			writeError(w, requestLogger, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

var errMalformedRequest = errors.New("malformed request")

// writeError maps store errors onto status codes. Validation messages are
// returned to the caller, everything else gets a generic message.
func writeError(w http.ResponseWriter, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, inventory.ErrValidation), errors.Is(err, errMalformedRequest):
		log.Info().Err(err).Msg("bad request")
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, inventory.ErrNotFound):
		log.Debug().Err(err).Msg("not found")
		writeErrorMessage(w, http.StatusNotFound, "Not found")
	case errors.Is(err, inventory.ErrInvalidCredentials):
		writeErrorMessage(w, http.StatusUnauthorized, "Invalid username or password")
	default:
		log.Error().Err(err).Msg("request failed")
		writeErrorMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, message string) {
	b, _ := json.Marshal(map[string]string{"error": message})

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}

func writeJSON(w http.ResponseWriter, log zerolog.Logger, status int, body any) {
	b, err := json.Marshal(body)
	if err != nil {
		log.Error().Err(err).Msg("unable to marshal response")
		writeErrorMessage(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
