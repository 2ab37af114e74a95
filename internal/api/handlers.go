package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/archive"
	"github.com/sells-group/bid-cli/internal/catalog"
	"github.com/sells-group/bid-cli/internal/estimate"
	"github.com/sells-group/bid-cli/internal/model"
	"github.com/sells-group/bid-cli/internal/proposal"
	"github.com/sells-group/bid-cli/internal/store"
	"github.com/sells-group/bid-cli/internal/strategy"
)

var errBadRequest = eris.New("bad request")

type createBidRequest struct {
	Name       string `json:"name"`
	Difficulty string `json:"difficulty"`
}

type addItemRequest struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"qty"`
}

type scoreRequest struct {
	Client  string  `json:"client"`
	JobType string  `json:"job_type"`
	Value   float64 `json:"value"`
}

type strategyRequest struct {
	scoreRequest
	BaseCost float64 `json:"base_cost"`
}

type strategyResponse struct {
	Probability    model.ProbabilityReport      `json:"probability"`
	Recommendation model.StrategyRecommendation `json:"recommendation"`
}

type historyRequest struct {
	Client        string  `json:"client"`
	JobType       string  `json:"job_type"`
	Value         float64 `json:"value"`
	MarginPercent float64 `json:"margin_percent"`
	Outcome       string  `json:"outcome"`
	Competitor    *string `json:"competitor"`
}

type winRatioResponse struct {
	archive.Ratio
	Display string `json:"display"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createBid(w http.ResponseWriter, r *http.Request) {
	var req createBidRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, eris.Wrap(errBadRequest, "name is required"))
		return
	}

	bid := s.engine.StartBid(req.Name, req.Difficulty)
	if s.store != nil {
		if err := s.store.SaveBid(r.Context(), bid); err != nil {
			writeError(w, err)
			return
		}
	}
	s.bids.put(bid)
	writeJSON(w, http.StatusCreated, snapshot(bid))
}

func (s *Server) getBid(w http.ResponseWriter, r *http.Request) {
	var out model.Bid
	err := s.bids.with(r.Context(), chi.URLParam(r, "id"), func(bid *model.Bid) error {
		out = snapshot(bid)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var out model.Bid
	err := s.bids.with(r.Context(), chi.URLParam(r, "id"), func(bid *model.Bid) error {
		if err := s.engine.AddAssembly(bid, req.SKU, req.Quantity); err != nil {
			return err
		}
		out = snapshot(bid)
		if s.store != nil {
			return s.store.SaveBid(r.Context(), bid)
		}
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) recap(w http.ResponseWriter, r *http.Request) {
	recap, err := s.computeRecap(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recap)
}

func (s *Server) proposal(w http.ResponseWriter, r *http.Request) {
	recap, err := s.computeRecap(r)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(proposal.Render(recap)))
}

// computeRecap prices the bid with the overhead and profit query parameters,
// falling back to the configured defaults.
func (s *Server) computeRecap(r *http.Request) (*model.Recap, error) {
	overhead, err := queryFloat(r, "overhead", s.markup.OverheadPercent)
	if err != nil {
		return nil, err
	}
	profit, err := queryFloat(r, "profit", s.markup.ProfitPercent)
	if err != nil {
		return nil, err
	}

	var recap *model.Recap
	err = s.bids.with(r.Context(), chi.URLParam(r, "id"), func(bid *model.Bid) error {
		wasLocked := bid.Locked
		rc, err := s.engine.ComputeRecap(bid, overhead, profit)
		if err != nil {
			return err
		}
		recap = rc
		if s.store == nil {
			return nil
		}
		if !wasLocked {
			if err := s.store.SaveBid(r.Context(), bid); err != nil {
				return err
			}
		}
		return s.store.SaveRecap(r.Context(), *rc)
	})
	return recap, err
}

func (s *Server) revise(w http.ResponseWriter, r *http.Request) {
	var rev *model.Bid
	err := s.bids.with(r.Context(), chi.URLParam(r, "id"), func(bid *model.Bid) error {
		rev = s.engine.Revise(bid)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if s.store != nil {
		if err := s.store.SaveBid(r.Context(), rev); err != nil {
			writeError(w, err)
			return
		}
	}
	s.bids.put(rev)
	writeJSON(w, http.StatusCreated, snapshot(rev))
}

func (s *Server) score(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.predictor.Predict(req.Client, req.JobType, req.Value))
}

func (s *Server) strategy(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, err)
		return
	}

	report := s.predictor.Predict(req.Client, req.JobType, req.Value)
	rec, err := strategy.Recommend(req.BaseCost, report)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, strategyResponse{Probability: report, Recommendation: rec})
}

func (s *Server) appendHistory(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	rec, err := s.history.Append(r.Context(), model.HistoricalBid{
		Client:        req.Client,
		JobType:       req.JobType,
		Value:         req.Value,
		MarginPercent: req.MarginPercent,
		Outcome:       model.Outcome(req.Outcome),
		Competitor:    req.Competitor,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) winRatio(w http.ResponseWriter, _ *http.Request) {
	ratio := s.history.WinRatio()
	writeJSON(w, http.StatusOK, winRatioResponse{Ratio: ratio, Display: ratio.String()})
}

func (s *Server) competitor(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.history.Competitor(chi.URLParam(r, "name")))
}

func (req scoreRequest) validate() error {
	if math.IsNaN(req.Value) || math.IsInf(req.Value, 0) || req.Value < 0 {
		return eris.Wrap(errBadRequest, "value must be a finite number >= 0")
	}
	return nil
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return eris.Wrapf(errBadRequest, "invalid request body: %v", err)
	}
	return nil
}

func queryFloat(r *http.Request, key string, def float64) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, eris.Wrapf(errBadRequest, "%s must be a number", key)
	}
	return v, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, estimate.ErrInvalidMarkup),
		errors.Is(err, strategy.ErrInvalidBaseCost),
		errors.Is(err, archive.ErrInvalidRecord):
		return http.StatusBadRequest
	case errors.Is(err, errBidNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, catalog.ErrAssemblyNotFound):
		return http.StatusNotFound
	case errors.Is(err, estimate.ErrBidLocked):
		return http.StatusConflict
	case errors.Is(err, estimate.ErrInvalidQuantity):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
