package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// getLive handles GET /api/v1/market/live/{symbol}
func (s *server) getLive(w http.ResponseWriter, r *http.Request) {
	q, err := s.Market.GetLiveData(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	if q == nil {
		notFound(w, "Symbol not found")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// getBranding handles GET /api/v1/market/branding/{symbol}
func (s *server) getBranding(w http.ResponseWriter, r *http.Request) {
	b, err := s.Market.GetBranding(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// getHistory handles GET /api/v1/market/history/{symbol}?period=&interval=
func (s *server) getHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bars, err := s.Market.GetHistory(r.Context(), chi.URLParam(r, "symbol"), q.Get("period"), q.Get("interval"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	if bars == nil {
		notFound(w, "No historical data")
		return
	}
	writeJSON(w, http.StatusOK, bars)
}

// getSparkline handles GET /api/v1/market/sparkline/{symbol}?period=
func (s *server) getSparkline(w http.ResponseWriter, r *http.Request) {
	prices, err := s.Market.GetSparkline(r.Context(), chi.URLParam(r, "symbol"), r.URL.Query().Get("period"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, prices)
}

// getChart handles GET /api/v1/market/chart/{symbol}?period=&interval=
func (s *server) getChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	chart, err := s.Market.GetChart(r.Context(), chi.URLParam(r, "symbol"), q.Get("period"), q.Get("interval"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	if chart == nil {
		notFound(w, "Not enough data for chart")
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// getNews handles GET /api/v1/market/news/{symbol}
func (s *server) getNews(w http.ResponseWriter, r *http.Request) {
	items, err := s.Market.GetNews(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// getIndicators handles GET /api/v1/market/indicators/{symbol}
func (s *server) getIndicators(w http.ResponseWriter, r *http.Request) {
	rep, err := s.Market.GetIndicators(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	if rep == nil {
		notFound(w, "Not enough data for indicators")
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// getPrediction handles GET /api/v1/market/predict/{symbol}
func (s *server) getPrediction(w http.ResponseWriter, r *http.Request) {
	p, err := s.Predict.Predict(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		writeErr(w, s.Logger, err)
		return
	}
	if p == nil {
		notFound(w, "Prediction unavailable")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
