// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings. Invalid configuration is reported by
// LoadConfig as an error and is fatal at startup.
//
// # Configuration Structure
//
// Server settings:
//
//	HOST=""                 # all interfaces
//	PORT="3000"
//	READ_TIMEOUT="15s"
//	WRITE_TIMEOUT="15s"
//	IDLE_TIMEOUT="60s"
//	SHUTDOWN_TIMEOUT="10s"
//
// Storage settings:
//
//	MONGO_URL="mongodb://mongo:27017/appdb"
//	MONGO_COLLECTION="items"
//	MONGO_SERVER_SELECTION_TIMEOUT="5s"
//	MONGO_OPERATION_TIMEOUT="0"     # driver default
//
// HTTP settings:
//
//	CORS_ORIGIN="*"
//	MAX_BODY_BYTES="102400"
//
// Rate limiting (per client, /api routes only):
//
//	RATE_LIMIT_ENABLED="false"
//	RATE_LIMIT_RPS="50"
//	RATE_LIMIT_BURST="100"
//
// Observability settings:
//
//	LOG_LEVEL="info"        # debug, info, warn, error
//	METRICS_ENABLED="true"
//	OTEL_ENABLED="false"
//	OTEL_ENDPOINT="localhost:4317"
//	OTEL_SERVICE_NAME="itemsapi"
//	OTEL_INSECURE="true"
//
// Durations accept Go duration syntax ("5s", "250ms"); bare integers are
// milliseconds.
//
// # Usage
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(cfg.Server.Addr())
package config
