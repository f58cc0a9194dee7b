package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stockwatch/stockwatch/pkg/types"
	"github.com/stockwatch/stockwatch/server/internal/metrics"
	"github.com/stockwatch/stockwatch/server/internal/users"
)

// ServiceName is reported by GET /health.
const ServiceName = "stock-price-server"

// maxBodyBytes bounds request bodies. Every body is a two-field JSON object.
const maxBodyBytes = 1 << 16

// QuoteSource reads the latest quote per ticker.
type QuoteSource interface {
	Quotes() []types.Quote
}

// Options configures the handler. Zero values are usable.
type Options struct {
	// AllowedOrigins lists CORS origins. "*" allows any origin; empty
	// disables CORS headers.
	AllowedOrigins []string

	// Metrics is optional.
	Metrics *metrics.Metrics
}

// Handler is the HTTP handler for the JSON API.
type Handler struct {
	users   *users.Store
	quotes  QuoteSource
	metrics *metrics.Metrics
	mux     *http.ServeMux
	chain   http.Handler
	now     func() time.Time
}

// New creates a Handler wired to the user store and quote source and
// registers all routes.
func New(st *users.Store, quotes QuoteSource, opts Options) *Handler {
	h := &Handler{
		users:   st,
		quotes:  quotes,
		metrics: opts.Metrics,
		mux:     http.NewServeMux(),
		now:     time.Now,
	}

	h.mux.HandleFunc("/login", h.login)
	h.mux.HandleFunc("/subscribe", h.subscribe)
	h.mux.HandleFunc("/unsubscribe", h.unsubscribe)
	h.mux.HandleFunc("/health", h.health)
	h.mux.HandleFunc("/tickers", h.tickers)
	h.mux.HandleFunc("/quotes", h.listQuotes)

	h.chain = cors(opts.AllowedOrigins, h.observe(h.mux))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

// Routes lists the paths the handler serves, for mounting on an outer mux.
func (h *Handler) Routes() []string {
	return []string{"/login", "/subscribe", "/unsubscribe", "/health", "/tickers", "/quotes"}
}

// --- route handlers ---------------------------------------------------------

// login handles POST /login. The same email always yields the same user.
func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	u, err := h.users.Login(req.Email)
	if err != nil {
		storeErr(w, err)
		return
	}
	h.metrics.SetUsers(h.users.Count())
	slog.Debug("api: login", "user", u.ID)
	jsonResp(w, http.StatusOK, u)
}

// subscribe handles POST /subscribe.
func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	h.mutateSubscription(w, r, h.users.Subscribe)
}

// unsubscribe handles POST /unsubscribe.
func (h *Handler) unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.mutateSubscription(w, r, h.users.Unsubscribe)
}

func (h *Handler) mutateSubscription(w http.ResponseWriter, r *http.Request, apply func(userID, ticker string) error) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req subscriptionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := apply(req.UserID, req.Ticker); err != nil {
		storeErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, SuccessResponse{Success: true})
}

// health handles GET /health. It reads no state.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, HealthResponse{
		Status:    "OK",
		Timestamp: h.now().UTC().Format(time.RFC3339),
		Service:   ServiceName,
	})
}

// tickers handles GET /tickers.
func (h *Handler) tickers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	supported := types.SupportedTickers()
	out := make([]string, 0, len(supported))
	for _, t := range supported {
		out = append(out, string(t))
	}
	jsonResp(w, http.StatusOK, TickersResponse{Tickers: out})
}

// listQuotes handles GET /quotes.
func (h *Handler) listQuotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.quotes.Quotes())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// decodeBody decodes a JSON request body into v. On failure it writes a 400
// and reports false.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// storeErr maps users errors to HTTP status codes.
func storeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, users.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "user not found")
	case errors.Is(err, users.ErrValidation):
		jsonErr(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("api: unexpected store error", "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
	}
}
