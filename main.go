package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

type ttCacheStatusResponse struct {
	Count         int     `json:"count"`
	Capacity      int     `json:"capacity"`
	Usage         float64 `json:"usage"`
	Full          bool    `json:"full"`
	EntryBytes    uint64  `json:"entry_bytes"`
	UsedBytes     uint64  `json:"used_bytes"`
	CapacityBytes uint64  `json:"capacity_bytes"`
	StoreEntries  int     `json:"store_entries"`
}

type ttCacheEntryDTO struct {
	Hash        string `json:"hash"`
	Hits        uint32 `json:"hits"`
	Result      string `json:"result"`
	BestMove    string `json:"best_move"`
	NumStones   uint8  `json:"num_stones"`
	ProofSize   int    `json:"proof_size"`
	GenWritten  uint32 `json:"gen_written"`
	GenLastUsed uint32 `json:"gen_last_used"`
}

type ttCacheEntriesResponse struct {
	Items  []ttCacheEntryDTO `json:"items"`
	Offset int               `json:"offset"`
	Limit  int               `json:"limit"`
	Total  int               `json:"total"`
}

func main() {
	cfg := LoadEnvConfig()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	} else {
		logrus.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	hub := NewHub()
	controller := NewSolveController(cfg, hub)

	var flushOnce sync.Once
	flushOnShutdown := func(reason string) {
		flushOnce.Do(func() {
			logrus.WithField("reason", reason).Info("flushing position store")
			controller.Abort()
			if store := controller.Solver().Positions().Store; store != nil {
				if err := store.Flush(); err != nil {
					logrus.WithError(err).Warn("store flush failed on shutdown")
				}
			}
		})
	}
	defer func() {
		if recovered := recover(); recovered != nil {
			logrus.WithField("panic", recovered).Error("panic recovered in main")
			flushOnShutdown("panic")
		}
	}()
	defer flushOnShutdown("exit")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx.Done())

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/api/ping", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	r.Get("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, controller.Status())
	})

	r.Get("/api/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, solverStats(controller))
	})

	r.Post("/api/solve", func(w http.ResponseWriter, r *http.Request) {
		var req SolveRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		if err := controller.Start(req); err != nil {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, controller.Status())
	})

	r.Post("/api/abort", func(w http.ResponseWriter, r *http.Request) {
		controller.Abort()
		writeJSON(w, http.StatusOK, controller.Status())
	})

	r.Get("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, GetConfig())
	})

	r.Post("/api/settings", func(w http.ResponseWriter, r *http.Request) {
		var payload Config
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
			return
		}
		configStore.Update(payload)
		writeJSON(w, http.StatusOK, GetConfig())
	})

	r.Get("/api/cache/tt", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, ttCacheStatus(controller))
	})
	r.Delete("/api/cache/tt", func(w http.ResponseWriter, r *http.Request) {
		if tt := controller.Solver().Positions().TT; tt != nil {
			tt.Clear()
		}
		writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
	})
	r.Get("/api/cache/tt/entries", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}
		if offset < 0 {
			offset = 0
		}
		writeJSON(w, http.StatusOK, ttCacheEntries(controller, offset, limit))
	})
	r.Delete("/api/cache/tt/entries/{hash}", func(w http.ResponseWriter, r *http.Request) {
		hashRaw := chi.URLParam(r, "hash")
		hash, err := parseTTKey(hashRaw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid hash"})
			return
		}
		deleted := false
		if tt := controller.Solver().Positions().TT; tt != nil {
			deleted = tt.DeleteByKey(hash)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"deleted": deleted,
			"hash":    fmt.Sprintf("0x%016x", hash),
		})
	})

	r.Get("/ws/progress", func(w http.ResponseWriter, r *http.Request) {
		serveProgressWS(hub, controller, w, r)
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
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

	logrus.WithField("addr", cfg.ListenAddr).Info("hexsolve listening")
	var runErr error
	select {
	case <-sigCtx.Done():
		logrus.Info("shutdown signal received")
	case err, ok := <-serverErrCh:
		if ok {
			runErr = err
			logrus.WithError(err).Error("server error")
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Warn("graceful shutdown failed")
		if closeErr := server.Close(); closeErr != nil && !errors.Is(closeErr, http.ErrServerClosed) {
			logrus.WithError(closeErr).Warn("forced close failed")
		}
	}

	cancel()
	flushOnShutdown("shutdown")
	if runErr != nil {
		logrus.WithError(runErr).Error("exiting after server error")
	}
}

type solverStatsResponse struct {
	Stats     BranchStatistics `json:"stats"`
	Histogram string           `json:"histogram"`
}

func solverStats(controller *SolveController) solverStatsResponse {
	solver := controller.Solver()
	return solverStatsResponse{
		Stats:     solver.Statistics(),
		Histogram: solver.HistogramDump(),
	}
}

func ttCacheStatus(controller *SolveController) ttCacheStatusResponse {
	positions := controller.Solver().Positions()
	resp := ttCacheStatusResponse{}
	if positions.Store != nil {
		resp.StoreEntries = positions.Store.Len()
	}
	tt := positions.TT
	if tt == nil {
		return resp
	}
	count := tt.Count()
	capacity := tt.Capacity()
	entryBytes := uint64(unsafe.Sizeof(TTEntry{}))
	resp.Count = count
	resp.Capacity = capacity
	resp.EntryBytes = entryBytes
	resp.UsedBytes = uint64(count) * entryBytes
	resp.CapacityBytes = uint64(capacity) * entryBytes
	if capacity > 0 {
		resp.Usage = float64(count) / float64(capacity)
		resp.Full = count >= capacity
	}
	return resp
}

func ttCacheEntries(controller *SolveController, offset, limit int) ttCacheEntriesResponse {
	tt := controller.Solver().Positions().TT
	if tt == nil {
		return ttCacheEntriesResponse{
			Items:  []ttCacheEntryDTO{},
			Offset: offset,
			Limit:  limit,
		}
	}
	entries, total := tt.TopEntriesByHits(offset, limit)
	items := make([]ttCacheEntryDTO, 0, len(entries))
	for _, entry := range entries {
		items = append(items, ttCacheEntryDTO{
			Hash:        fmt.Sprintf("0x%016x", entry.Key),
			Hits:        entry.Hits,
			Result:      entry.Result.String(),
			BestMove:    entry.BestMove.String(),
			NumStones:   entry.NumStones,
			ProofSize:   entry.Proof.Count(),
			GenWritten:  entry.GenWritten,
			GenLastUsed: entry.GenLastUsed,
		})
	}
	return ttCacheEntriesResponse{
		Items:  items,
		Offset: offset,
		Limit:  limit,
		Total:  total,
	}
}

func parseTTKey(raw string) (uint64, error) {
	if raw == "" {
		return 0, errors.New("empty")
	}
	return strconv.ParseUint(raw, 0, 64)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
