// Package relay is the stateless JSON-RPC pass-through that fronts the
// fixed upstream endpoints. It forwards bodies verbatim and performs no
// retries or transformation.
package relay

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Default upstream endpoints per network segment.
var defaultUpstreams = map[string]string{
	"mainnet": "https://build.onbeam.com/rpc/mainnet",
	"testnet": "https://build.onbeam.com/rpc/testnet",
}

// Handler proxies POST JSON-RPC payloads to a per-network upstream.
type Handler struct {
	upstreams map[string]string
	client    *http.Client
	logger    *zap.Logger
}

// NewHandler creates a relay handler. A nil upstreams map selects the
// default endpoints.
func NewHandler(upstreams map[string]string, logger *zap.Logger) *Handler {
	if upstreams == nil {
		upstreams = defaultUpstreams
	}
	return &Handler{
		upstreams: upstreams,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger.Named("relay"),
	}
}

// SetupRouter wires the relay routes.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Route("/api/rpc/{network}", func(r chi.Router) {
		r.Post("/", h.Forward)
		r.Options("/", h.Preflight)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	return r
}

// Forward relays the request body to the upstream for the network
// segment and returns the upstream's status and body unchanged.
func (h *Handler) Forward(w http.ResponseWriter, r *http.Request) {
	network := chi.URLParam(r, "network")
	target, ok := h.upstreams[network]
	if !ok {
		http.Error(w, "Unknown network", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("upstream request failed",
			zap.String("network", network),
			zap.Error(err))
		http.Error(w, http.StatusText(http.StatusBadGateway), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	writeCORS(w.Header())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("copying upstream response failed", zap.Error(err))
	}
}

// Preflight answers CORS preflight requests.
func (h *Handler) Preflight(w http.ResponseWriter, r *http.Request) {
	writeCORS(w.Header())
	w.WriteHeader(http.StatusNoContent)
}

func writeCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}
