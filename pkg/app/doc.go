// Package app wires configuration, telemetry, the item store and the HTTP
// server into one process lifecycle.
//
// Startup is ordered and fails fast: New returns an error when the database
// cannot be reached, and the caller exits non-zero. Run serves until the
// process receives SIGINT or SIGTERM, then stops accepting connections,
// drains in-flight requests within the shutdown timeout and closes the
// database connection. Close errors are logged only.
//
//	a, err := app.New(ctx, cfg, logger)
//	if err != nil {
//		os.Exit(1)
//	}
//	if err := a.Run(ctx); err != nil {
//		os.Exit(1)
//	}
package app
