package handler

import (
	"net/http"

	"github.com/newthinker/compass/internal/api/request"
	"github.com/newthinker/compass/internal/api/response"
	"github.com/newthinker/compass/internal/core"
	"github.com/newthinker/compass/internal/decision"
	"github.com/newthinker/compass/internal/scoring"
)

// SignalsHandler scores assets.
type SignalsHandler struct {
	engine Engine
}

// NewSignalsHandler creates a new signals handler.
func NewSignalsHandler(engine Engine) *SignalsHandler {
	return &SignalsHandler{engine: engine}
}

// Get scores one asset: GET /api/v1/signals/{ticker}?class=CRYPTO.
func (h *SignalsHandler) Get(w http.ResponseWriter, r *http.Request) {
	var class core.AssetClass
	if c := r.URL.Query().Get("class"); c != "" {
		parsed, err := core.ParseAssetClass(c)
		if err != nil {
			response.Error(w, err)
			return
		}
		class = parsed
	}

	sig, err := h.engine.ScoreAsset(r.Context(), r.PathValue("ticker"), class)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, sig)
}

// BatchRequest is the body of POST /api/v1/signals/batch.
type BatchRequest struct {
	Assets []decision.AssetRef `json:"assets" validate:"required,min=1,dive"`
}

// BatchResponse lists signals in request order.
type BatchResponse struct {
	Signals []scoring.AssetSignal `json:"signals"`
	Count   int                   `json:"count"`
}

// Batch scores several assets against one regime state.
func (h *SignalsHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := request.Decode(w, r, &req); err != nil {
		response.Error(w, err)
		return
	}

	signals, err := h.engine.ScoreBatch(r.Context(), req.Assets)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, BatchResponse{Signals: signals, Count: len(signals)})
}
