package api

// loginRequest is the body of POST /login.
type loginRequest struct {
	Email string `json:"email"`
}

// subscriptionRequest is the body of POST /subscribe and POST /unsubscribe.
type subscriptionRequest struct {
	UserID string `json:"userId"`
	Ticker string `json:"ticker"`
}

// SuccessResponse is returned by POST /subscribe and POST /unsubscribe.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"` // RFC3339
	Service   string `json:"service"`
}

// TickersResponse is the payload for GET /tickers.
type TickersResponse struct {
	Tickers []string `json:"tickers"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
