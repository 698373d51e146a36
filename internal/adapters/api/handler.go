package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"jangteo-auction-engine/internal/domain/auction"
	"jangteo-auction-engine/internal/domain/shared"
	"jangteo-auction-engine/internal/ports/inbound"

	"github.com/rs/zerolog"
)

// Handler is the thin JSON surface over the engine contract. The real
// marketplace web tier lives elsewhere; this exists so the engine binary
// can be driven directly and so rejection codes have one canonical HTTP
// mapping.
type Handler struct {
	ledger    inbound.BidEngine
	lifecycle inbound.LifecycleService
	logger    zerolog.Logger
}

type HandlerParams struct {
	Ledger    inbound.BidEngine
	Lifecycle inbound.LifecycleService
	Logger    zerolog.Logger
}

// NewHandler creates the engine API handler
func NewHandler(params HandlerParams) *Handler {
	return &Handler{
		ledger:    params.Ledger,
		lifecycle: params.Lifecycle,
		logger:    params.Logger.With().Str("component", "api").Logger(),
	}
}

// Mux returns the routed handler
func (h *Handler) Mux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/bids", h.handleBids)
	mux.HandleFunc("/api/auctions", h.handleAuctions)
	mux.HandleFunc("/api/auctions/", h.handleAuctionByID)
	mux.HandleFunc("/api/admin/status", h.handleSetStatus)
	return mux
}

func (h *Handler) handleBids(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req inbound.PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	result, err := h.ledger.PlaceBid(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAuctions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req inbound.CreateAuctionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
			return
		}
		a, err := h.lifecycle.CreateAuction(r.Context(), req)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)

	case http.MethodGet:
		req := inbound.ListAuctionsRequest{}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status := auction.Status(raw)
			req.Status = &status
		}
		if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil {
			req.Page = p
		}
		if ps, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil {
			req.PageSize = ps
		}
		auctions, err := h.lifecycle.ListAuctions(r.Context(), req)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, auctions)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (h *Handler) handleAuctionByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/auctions/")
	parts := strings.Split(rest, "/")

	auctionID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid auction id")
		return
	}

	if len(parts) > 1 && parts[1] == "bids" {
		bids, err := h.ledger.ListBids(r.Context(), auctionID)
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bids)
		return
	}

	a, err := h.lifecycle.GetAuction(r.Context(), auctionID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) handleSetStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var req inbound.SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	if err := h.lifecycle.SetStatus(r.Context(), req); err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeEngineError gives every engine outcome one stable HTTP shape:
// business rejections are 422 with their machine code, transient conflicts
// are 503 and safe to retry, lookups are 404.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	if rej, ok := shared.AsRejection(err); ok {
		writeError(w, http.StatusUnprocessableEntity, string(rej.Code), rej.Error())
		return
	}
	switch {
	case errors.Is(err, shared.ErrTransient):
		writeError(w, http.StatusServiceUnavailable, "transient", "temporary conflict, retry the request")
	case errors.Is(err, shared.ErrAuctionNotFound), errors.Is(err, shared.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	default:
		h.logger.Error().Err(err).Msg("Unhandled engine error")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
