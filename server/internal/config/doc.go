// Package config loads the stockwatch-server configuration.
//
// Config fields:
//   - Server.HTTPPort        — port for the REST API and WebSocket hub (default 3000, env PORT)
//   - Server.TickInterval    — price tick / broadcast period (default 1s, env TICK_INTERVAL)
//   - Server.ShutdownTimeout — HTTP drain bound on shutdown (default 5s)
//   - Server.UIDir           — optional front-end bundle directory
//   - Server.CORS            — allowed browser origins (default "*")
//   - Server.WS              — per-client send buffer, write timeout, pong wait
//   - Market.EnforceTickers  — reject unsupported tickers on subscribe (default true)
//   - Log.Level              — debug|info|warn|error (default info, env LOG_LEVEL)
//
// Load(path) applies defaults, the optional YAML file, an optional .env file
// and environment overrides, then validates. Watch(ctx, path, fn) reloads the
// file on change.
package config
