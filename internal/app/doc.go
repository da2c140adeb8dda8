// Package app wires the HTTP service together and manages its lifecycle.
//
// # Initialization Flow
//
//  1. Resolve and create the data, uploads, exports and log directories
//  2. Initialize logging and OpenTelemetry
//  3. Create the report store, extractor and services
//  4. Set up middleware, handlers and the /metrics endpoint
//  5. Start the HTTP server
//
// # Usage
//
//	cfg, err := config.Load()
//	...
//	application, err := app.NewApplication(cfg)
//	...
//	if err := application.Run(ctx); err != nil {
//	    ...
//	}
//
// # Graceful Shutdown
//
// Run returns after SIGINT, SIGTERM or cancellation of its context. In-flight
// requests are given Server.ShutdownTimeout to finish, then the telemetry
// providers are flushed. The package never calls os.Exit.
package app
