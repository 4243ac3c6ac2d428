package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/jackpot-predict/internal/cost"
	"github.com/sells-group/jackpot-predict/internal/engine"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initService(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           newRouter(env.Service, env.Usage, cfg.Server.AllowedOrigins),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(svc *engine.Service, usage *cost.Tracker, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/api/predict", handlePredict(svc))
	r.Post("/api/reset", handleReset(svc))
	r.Get("/api/poll", handlePoll(svc))
	r.Get("/api/health", handleHealth(svc))
	if usage != nil {
		r.Get("/api/usage", handleUsage(usage))
	}

	return r
}

func handlePredict(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string `json:"session_id"`
			ClueText  string `json:"clue_text"`
			Category  string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ClueText == "" {
			writeError(w, http.StatusBadRequest, "clue_text is required")
			return
		}

		result, err := svc.SubmitClue(r.Context(), req.SessionID, req.ClueText, req.Category)
		if err != nil {
			zap.L().Error("predict failed", zap.String("session_id", req.SessionID), zap.Error(err))
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleReset(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			SessionID string `json:"session_id"`
		}
		// An empty body resets nothing and just hands out a fresh session.
		_ = json.NewDecoder(r.Body).Decode(&req)

		id := svc.Reset(r.Context(), req.SessionID)
		writeJSON(w, http.StatusOK, map[string]string{"session_id": id})
	}
}

func handlePoll(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session_id")
		if sessionID == "" {
			writeError(w, http.StatusBadRequest, "session_id is required")
			return
		}
		turn, err := strconv.Atoi(r.URL.Query().Get("turn"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "turn must be an integer")
			return
		}

		result, err := svc.PollBackground(sessionID, turn)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func handleHealth(svc *engine.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := svc.Snapshot()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":          "ok",
			"active_sessions": stats.ActiveSessions,
			"uptime_secs":     int(stats.Uptime.Seconds()),
		})
	}
}

func handleUsage(usage *cost.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"providers": usage.Summaries(),
			"total_usd": usage.TotalUSD(),
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
