package main

import (
	"flag"

	"github.com/diwise/service-chassis/pkg/infrastructure/env"
	"github.com/rs/zerolog"
)

type flagType int
type flagMap map[flagType]string

const (
	listenAddress flagType = iota
	servicePort
	logLevel
	enableTracing
	enableMessaging

	policiesFile
	configurationFile
	seedFile
)

func defaultFlags() flagMap {
	return flagMap{
		listenAddress:   "0.0.0.0",
		servicePort:     "8080",
		logLevel:        "info",
		enableTracing:   "true",
		enableMessaging: "false",

		policiesFile:      "/opt/diwise/config/authz.rego",
		configurationFile: "/opt/diwise/config/config.yaml",
		seedFile:          "",
	}
}

func parseExternalConfig(logger zerolog.Logger, flags flagMap) flagMap {
	// environment variables override the defaults
	envOrDef := func(name string, def string) string {
		return env.GetVariableOrDefault(logger, name, def)
	}

	flags[listenAddress] = envOrDef("LISTEN_ADDRESS", flags[listenAddress])
	flags[servicePort] = envOrDef("SERVICE_PORT", flags[servicePort])
	flags[logLevel] = envOrDef("LOG_LEVEL", flags[logLevel])
	flags[enableTracing] = envOrDef("ENABLE_TRACING", flags[enableTracing])
	flags[enableMessaging] = envOrDef("ENABLE_MESSAGING", flags[enableMessaging])

	flags[policiesFile] = envOrDef("POLICIES_FILE", flags[policiesFile])
	flags[configurationFile] = envOrDef("CONFIG_FILE", flags[configurationFile])
	flags[seedFile] = envOrDef("SEED_FILE", flags[seedFile])

	apply := func(f flagType) func(string) error {
		return func(value string) error {
			flags[f] = value
			return nil
		}
	}

	// command line arguments override defaults and environment variables
	flag.Func("policies", "an authorization policy file", apply(policiesFile))
	flag.Func("config", "inventory configuration file", apply(configurationFile))
	flag.Func("seed", "initial users, groups and devices for an empty inventory", apply(seedFile))
	flag.Func("port", "the port to listen on", apply(servicePort))
	flag.Parse()

	return flags
}
