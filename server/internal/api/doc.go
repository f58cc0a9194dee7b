// Package api implements the HTTP JSON API for stockwatch-server.
//
// New(users, quotes, opts) returns an http.Handler that serves:
//
//	POST /login        {email}          → the user, created on first login
//	POST /subscribe    {userId, ticker} → {success:true}; 400 bad ticker, 404 unknown user
//	POST /unsubscribe  {userId, ticker} → {success:true}; 404 unknown user
//	GET  /health                        → {status:"OK", timestamp, service}
//	GET  /tickers                       → the supported ticker set
//	GET  /quotes                        → current quotes without waiting for a tick
//
// All endpoints respond with Content-Type: application/json and return 405
// for the wrong method. Errors are rendered as {error: string}.
//
// Every request passes through CORS, access logging and, when metrics are
// configured, request counting. No external HTTP framework is used.
package api
