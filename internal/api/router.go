// Package api exposes the portfolio engine over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/stockpulse/portfolio-engine/internal/analytics"
	"github.com/stockpulse/portfolio-engine/internal/auth"
	"github.com/stockpulse/portfolio-engine/internal/market"
	"github.com/stockpulse/portfolio-engine/internal/metrics"
	"github.com/stockpulse/portfolio-engine/internal/predict"
	"github.com/stockpulse/portfolio-engine/internal/trade"
	"github.com/stockpulse/portfolio-engine/internal/watchlist"
)

// Deps are the services behind the HTTP surface.
type Deps struct {
	Market    *market.Service
	Predict   *predict.Service
	Trades    *trade.Service
	Analytics *analytics.Service
	Watchlist *watchlist.Service
	Hub       *trade.WSHub // optional

	// Auth authenticates /api/v1 requests and must put the user id on the
	// context with auth.WithUserID.
	Auth func(http.Handler) http.Handler

	Logger         *slog.Logger
	RequestTimeout time.Duration
}

type server struct {
	Deps
}

// NewRouter builds the HTTP handler, health and metrics endpoints included.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 30 * time.Second
	}
	s := &server{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"portfolio-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket feed of executed trades. Long-lived, so outside the
		// request timeout.
		if s.Hub != nil {
			r.Group(func(r chi.Router) {
				if s.Auth != nil {
					r.Use(s.Auth)
				}
				r.Use(requireUser)
				r.Get("/ws", s.Hub.HandleWS)
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.RequestTimeout))
			if s.Auth != nil {
				r.Use(s.Auth)
			}
			r.Use(requireUser)

			r.Route("/market", func(r chi.Router) {
				r.Get("/live/{symbol}", s.getLive)
				r.Get("/branding/{symbol}", s.getBranding)
				r.Get("/history/{symbol}", s.getHistory)
				r.Get("/sparkline/{symbol}", s.getSparkline)
				r.Get("/chart/{symbol}", s.getChart)
				r.Get("/news/{symbol}", s.getNews)
				r.Get("/indicators/{symbol}", s.getIndicators)
				r.Get("/predict/{symbol}", s.getPrediction)
				r.Get("/performance", s.getPerformance)
				r.Post("/order", s.placeOrder)
				r.Get("/orders", s.listOrders)
			})

			r.Route("/watchlist", func(r chi.Router) {
				r.Get("/", s.listWatchlist)
				r.Post("/", s.addWatchlist)
				r.Delete("/{symbol}", s.removeWatchlist)
			})

			r.Route("/portfolio", func(r chi.Router) {
				r.Get("/", s.listPositions)
				r.Post("/buy", s.buy)
				r.Post("/sell", s.sell)
				r.Get("/transactions", s.listTransactions)
				r.Get("/analytics", s.getAnalytics)
			})
		})
	})

	return r
}

// requireUser rejects requests the auth layer let through without a user.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.UserID(r.Context()) == "" {
			writeError(w, "unauthorized", "authentication required", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// cors allows cross-origin requests from the frontend.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+auth.UserHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
