package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/diwise/iot-inventory-admin/internal/pkg/application"
	"github.com/diwise/iot-inventory-admin/internal/pkg/application/events"
	"github.com/diwise/iot-inventory-admin/internal/pkg/application/inventory"
	"github.com/diwise/iot-inventory-admin/internal/pkg/application/query"
	"github.com/diwise/iot-inventory-admin/internal/pkg/application/webevents"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/logging"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/router"
	"github.com/diwise/iot-inventory-admin/internal/pkg/infrastructure/tracing"
	"github.com/diwise/iot-inventory-admin/internal/pkg/presentation/api"
	"github.com/diwise/messaging-golang/pkg/messaging"
	"github.com/diwise/service-chassis/pkg/infrastructure/buildinfo"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const serviceName string = "iot-inventory-admin"

func main() {
	serviceVersion := buildinfo.SourceVersion()

	ctx, logger := logging.NewLogger(context.Background(), serviceName, serviceVersion, "info")
	flags := parseExternalConfig(logger, defaultFlags())
	ctx, logger = logging.NewLogger(ctx, serviceName, serviceVersion, flags[logLevel])

	logger.Info().Msg("starting up ...")

	cleanup, err := tracing.Init(ctx, logger, serviceName, serviceVersion, flags[enableTracing] == "true")
	exitIf(err, logger, "failed to init tracing")
	defer cleanup()

	cfgFile, err := os.Open(flags[configurationFile])
	exitIf(err, logger, "could not open configuration file")

	cfg, err := application.LoadConfiguration(cfgFile)
	cfgFile.Close()
	exitIf(err, logger, "could not load configuration")

	policies, err := os.Open(flags[policiesFile])
	exitIf(err, logger, "unable to open opa policy file")
	defer policies.Close()

	senders := []events.EventSender{events.New(&cfg.Notifications)}

	if flags[enableMessaging] == "true" {
		messenger, err := messaging.Initialize(messaging.LoadConfiguration(serviceName, logger))
		exitIf(err, logger, "failed to init messenger")
		defer messenger.Close()

		senders = append(senders, events.NewTopicSender(messenger))
	}

	web := webevents.New()
	defer web.Shutdown()

	senders = append(senders, web)

	backend, err := application.NewBackend(ctx, logger, cfg.Persistence)
	exitIf(err, logger, "could not create persistence backend", "backend", cfg.Persistence.Backend)

	store, err := inventory.New(ctx, backend,
		inventory.WithEventSenders(senders...),
		inventory.WithLocale(query.ParseLocale(cfg.Locale)),
	)
	exitIf(err, logger, "could not load inventory")

	if flags[seedFile] != "" {
		seed, err := os.Open(flags[seedFile])
		exitIf(err, logger, "could not open seed file")

		err = seedInventory(ctx, store, seed)
		exitIf(err, logger, "could not seed inventory")
	}

	r, err := setupRouter(ctx, cfg, policies, store, web.Handler())
	exitIf(err, logger, "failed to setup router")

	addr := flags[listenAddress] + ":" + flags[servicePort]
	logger.Info().Str("addr", addr).Msg("starting to listen for connections")

	err = http.ListenAndServe(addr, r)
	exitIf(err, logger, "failed to start request router")
}

func seedInventory(ctx context.Context, store *inventory.Store, seed io.ReadCloser) error {
	defer seed.Close()

	data, err := inventory.LoadSeed(seed)
	if err != nil {
		return err
	}

	return store.Seed(ctx, data)
}

func setupRouter(ctx context.Context, cfg *application.Config, policies io.Reader, store api.Inventory, eventStream http.Handler) (*chi.Mux, error) {
	r := router.New(serviceName, cfg.AllowedOrigins...)

	return api.RegisterHandlers(ctx, r, policies, store,
		api.WithLoginRateLimit(cfg.Login.RequestsPerMinute, cfg.Login.Burst),
		api.WithEventStream(eventStream),
	)
}

func exitIf(err error, logger zerolog.Logger, msg string, args ...string) {
	if err != nil {
		e := logger.Fatal().Err(err)
		for i := 0; i+1 < len(args); i += 2 {
			e = e.Str(args[i], args[i+1])
		}
		time.Sleep(2 * time.Second)
		e.Msg(msg)
	}
}
