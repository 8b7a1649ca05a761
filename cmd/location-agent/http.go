package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/go-chi/chi/v5"
)

type agentHTTPOpts struct {
	httpAddr string
	onListen func(httpAddr string)

	agent *agent
}

type activityRequest struct {
	Type          models.ActivityType `json:"type"`
	UserID        string              `json:"userId"`
	Details       map[string]any      `json:"details"`
	ForceLocation bool                `json:"forceLocation"`
}

func runAgentHTTPServer(ctx context.Context, opts agentHTTPOpts) error {
	if opts.httpAddr == "" {
		opts.httpAddr = ":8081"
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{Handler: newAgentRouter(opts.agent)}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	return srv.Serve(lis)
}

func newAgentRouter(a *agent) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/location", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("cached") == "true" {
			sample, ok := a.location.LastKnown(r.Context())
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "no location yet"})
				return
			}
			writeJSON(w, http.StatusOK, sample)
			return
		}
		writeJSON(w, http.StatusOK, a.location.GetCurrentLocation(r.Context()))
	})

	r.Get("/permission", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.location.Permission())
	})
	r.Post("/permission", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.location.RequestPermission(r.Context()))
	})

	r.Post("/activity", func(w http.ResponseWriter, r *http.Request) {
		var req activityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed body"})
			return
		}
		if !req.Type.Valid() || req.UserID == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "type and userId are required"})
			return
		}
		id := a.logger.LogActivity(r.Context(), req.Type, req.UserID, req.Details, req.ForceLocation)
		writeJSON(w, http.StatusOK, map[string]string{"id": id})
	})

	r.Get("/fallback", func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 100
		}
		recs, err := a.fallback.List(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		if recs == nil {
			recs = []models.ActivityRecord{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"records": recs})
	})

	r.Post("/replay", func(w http.ResponseWriter, r *http.Request) {
		a.replayer.Trigger()
		writeJSON(w, http.StatusAccepted, map[string]bool{"triggered": true})
	})

	r.Get("/stats", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, a.replayer.Stats())
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
