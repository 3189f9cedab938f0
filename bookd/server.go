package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type growRequest struct {
	Strategy          string `json:"strategy"`
	PlayerDeviation   *int   `json:"player_deviation,omitempty"`
	OpponentDeviation *int   `json:"opponent_deviation,omitempty"`
	Lower             *int   `json:"lower,omitempty"`
	Upper             *int   `json:"upper,omitempty"`
}

type bestMoveResponse struct {
	Move  string `json:"move"`
	Score int    `json:"score"`
	Found bool   `json:"found"`
}

func newRouter(controller *BookController, hub *ProgressHub, reg *prometheus.Registry) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Get("/api/book", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controller.Info())
	})

	r.Get("/api/book/position", func(w http.ResponseWriter, r *http.Request) {
		board, err := ParseBoard(r.URL.Query().Get("board"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		dto, ok := controller.Probe(board)
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "position not in book"})
			return
		}
		writeJSON(w, http.StatusOK, dto)
	})

	r.Get("/api/book/bestmove", func(w http.ResponseWriter, r *http.Request) {
		board, err := ParseBoard(r.URL.Query().Get("board"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		move, score, ok := controller.BestMove(board)
		if !ok {
			writeJSON(w, http.StatusOK, bestMoveResponse{Move: MoveString(NoMove), Found: false})
			return
		}
		writeJSON(w, http.StatusOK, bestMoveResponse{Move: MoveString(move), Score: score, Found: true})
	})

	r.Post("/api/book/grow", func(w http.ResponseWriter, r *http.Request) {
		var payload growRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		strategy := GrowStrategy(payload.Strategy)
		if strategy != GrowDeviate && strategy != GrowEnhance {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "strategy must be deviate or enhance"})
			return
		}
		params := DefaultGrowParams()
		if payload.PlayerDeviation != nil {
			params.PlayerDeviation = *payload.PlayerDeviation
		}
		if payload.OpponentDeviation != nil {
			params.OpponentDeviation = *payload.OpponentDeviation
		}
		if payload.Lower != nil {
			params.Lower = *payload.Lower
		}
		if payload.Upper != nil {
			params.Upper = *payload.Upper
		}
		err := controller.StartGrow(strategy, params, hub.Publish)
		if errors.Is(err, errJobRunning) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"started": true, "strategy": payload.Strategy})
	})

	r.Get("/api/book/grow", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"growing": controller.Growing()})
	})

	r.Post("/api/config", func(w http.ResponseWriter, r *http.Request) {
		// Overlay onto the current config so absent fields keep their values.
		payload := GetConfig()
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		configStore.Update(payload)
		writeJSON(w, http.StatusOK, GetConfig())
	})

	r.Get("/api/config", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, GetConfig())
	})

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		serveProgressWS(hub, w, r)
	})

	return r
}

// runServer is the serve command body: load-or-create the book, expose it
// over HTTP, and persist it on shutdown.
func runServer(logger *log.Logger) error {
	config := GetConfig()
	reg := prometheus.NewRegistry()
	metrics := newBookMetrics(reg)

	book := LoadOrNew(config.BookPath, logger)
	book.SetMetrics(metrics)
	metrics.setPositions(book.Count())
	saver := NewBookSaver(config.BookPath)
	controller := NewBookController(book, saver, logger)
	hub := NewProgressHub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx.Done())

	server := &http.Server{
		Addr:    config.ListenAddr,
		Handler: newRouter(controller, hub, reg),
	}
	serverErrCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
		close(serverErrCh)
	}()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	logger.Printf("[bookd] listening on %s, book %s (%d positions)", config.ListenAddr, config.BookPath, book.Count())
	var runErr error
	select {
	case <-sigCtx.Done():
		logger.Printf("[bookd] shutdown signal received")
	case err, ok := <-serverErrCh:
		if ok {
			runErr = err
			logger.Printf("[bookd] server error: %v", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("[bookd] graceful shutdown failed: %v", err)
		if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
			logger.Printf("[bookd] forced close failed: %v", closeErr)
		}
	}

	controller.Wait()
	if err := controller.Save(); err != nil {
		logger.Printf("[book:io] save on shutdown failed: %v", err)
	} else {
		logger.Printf("[book:io] book saved to %s", config.BookPath)
	}
	cancel()
	return runErr
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
