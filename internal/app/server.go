package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Freeeeeet/reception_core/internal/dialog"
	"github.com/Freeeeeet/reception_core/internal/model"
	"github.com/Freeeeeet/reception_core/internal/session"
)

// turnRequest — тело POST /v1/dialog/turn от телефонного шлюза.
type turnRequest struct {
	BusinessID int64           `json:"business_id"`
	Channel    string          `json:"channel"`
	SessionKey string          `json:"session_key"`
	Utterance  model.Utterance `json:"utterance"`
}

// Server — HTTP-поверхность диалогового ядра.
type Server struct {
	http   *http.Server
	logger *zap.Logger
}

func NewServer(
	addr string,
	orchestrator *dialog.Orchestrator,
	lock *session.TurnLock,
	pool *pgxpool.Pool,
	registry *prometheus.Registry,
	logger *zap.Logger,
) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Post("/v1/dialog/turn", handleTurn(orchestrator, lock, logger))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "down", "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &Server{
		http: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// Run блокируется до остановки сервера.
func (s *Server) Run() error {
	s.logger.Info("http server listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func handleTurn(orchestrator *dialog.Orchestrator, lock *session.TurnLock, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var in turnRequest
		if err := json.NewDecoder(req.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, model.ErrorReply("bad_request", "invalid JSON body"))
			return
		}
		if in.BusinessID == 0 || in.SessionKey == "" {
			writeJSON(w, http.StatusBadRequest, model.ErrorReply("bad_request", "business_id and session_key are required"))
			return
		}
		if in.Channel == "" {
			in.Channel = "phone"
		}

		release, err := lock.Acquire(req.Context(), in.BusinessID, in.Channel, in.SessionKey)
		if errors.Is(err, session.ErrBusy) {
			writeJSON(w, http.StatusTooManyRequests, model.ErrorReply("busy", "previous turn still in progress"))
			return
		}
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, model.ErrorReply("internal", "internal error"))
			return
		}
		defer release()

		reply, err := orchestrator.HandleTurn(req.Context(), in.BusinessID, in.Channel, in.SessionKey, in.Utterance)
		if err != nil {
			// детали отказа зависимостей наружу не отдаём
			logger.Error("turn failed",
				zap.Int64("business_id", in.BusinessID),
				zap.String("session", in.SessionKey),
				zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, model.ErrorReply("internal", "internal error"))
			return
		}

		writeJSON(w, http.StatusOK, reply)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, req.ProtoMajor)

			next.ServeHTTP(ww, req)

			logger.Info("http request",
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)))
		})
	}
}
