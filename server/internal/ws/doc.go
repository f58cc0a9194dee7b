// Package ws implements the WebSocket hub for stockwatch-server.
//
// Hub owns the set of connected clients and the tick loop. On every tick it
// asks the price feed for new quotes, reads the user directory, and queues two
// messages to every client:
//
//	{"type": "stockUpdate", "stocks": [ /* one quote per ticker */ ]}
//	{"type": "userUpdate",  "users":  { "<id>": {"email": ..., "subscriptions": [...]} }}
//
// Every client receives every ticker and the whole directory; nothing is
// filtered per viewer. Delivery is best effort: a client whose buffer is full
// misses that message, and one client's failure never affects another.
//
// New(feed, users, opts) creates a Hub.
// Hub.Run(ctx) ticks immediately, then every opts.Interval, until ctx is
// cancelled; it then stops the ticker, closes all clients and waits for
// their writers to send a close frame.
// Hub.ServeHTTP upgrades an HTTP connection, sends
// {"type":"connection","status":"connected"} and answers {"type":"ping"} with
// {"type":"pong","timestamp":<unix ms>}. Other frames are ignored.
//
// The upgrader accepts all origins. The endpoint is mounted at /ws by the server.
package ws
