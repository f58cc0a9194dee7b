// Package types defines the shared Go types exchanged between the stockwatch
// server packages and sent to clients over HTTP and WebSocket. These are the
// canonical wire representations of tickers, quotes and user views.
package types
