// Package api exposes the estimating engine over HTTP.
//
// Bids are held in a registry with one mutex per bid id, so concurrent
// requests against the same bid are serialized while different bids proceed
// in parallel.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/bid-cli/internal/archive"
	"github.com/sells-group/bid-cli/internal/config"
	"github.com/sells-group/bid-cli/internal/estimate"
	"github.com/sells-group/bid-cli/internal/model"
	"github.com/sells-group/bid-cli/internal/scorer"
)

// BidStore is the slice of the store the API persists bids through.
type BidStore interface {
	SaveBid(ctx context.Context, bid *model.Bid) error
	GetBid(ctx context.Context, id string) (*model.Bid, error)
	SaveRecap(ctx context.Context, recap model.Recap) error
}

// Deps are the collaborators a Server is built from. Store is optional.
type Deps struct {
	Engine         *estimate.Engine
	History        *archive.Persisted
	Predictor      *scorer.Predictor
	Store          BidStore
	Markup         config.MarkupConfig
	AllowedOrigins []string
}

// Server serves the bid API.
type Server struct {
	engine    *estimate.Engine
	history   *archive.Persisted
	predictor *scorer.Predictor
	store     BidStore
	markup    config.MarkupConfig
	bids      *registry
	origins   []string
}

// NewServer creates a Server.
func NewServer(d Deps) *Server {
	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Server{
		engine:    d.Engine,
		history:   d.History,
		predictor: d.Predictor,
		store:     d.Store,
		markup:    d.Markup,
		bids:      newRegistry(d.Store),
		origins:   origins,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)

	r.Route("/bids", func(r chi.Router) {
		r.Post("/", s.createBid)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getBid)
			r.Post("/items", s.addItem)
			r.Get("/recap", s.recap)
			r.Get("/proposal", s.proposal)
			r.Post("/revise", s.revise)
		})
	})

	r.Post("/score", s.score)
	r.Post("/strategy", s.strategy)
	r.Post("/history", s.appendHistory)
	r.Get("/history/win-ratio", s.winRatio)
	r.Get("/competitors/{name}", s.competitor)

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Debug("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
