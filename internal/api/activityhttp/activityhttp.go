package activityhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BearBump/FieldTrack/internal/models"
	"github.com/BearBump/FieldTrack/internal/services/activitylog"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/pkg/errors"
)

const maxBodyBytes = 64 << 10

type Service interface {
	Accept(ctx context.Context, p models.ActivityPayload) (string, error)
	ListActivities(ctx context.Context, userID string, limit, offset int) ([]models.StoredActivity, error)
	LastLocation(ctx context.Context, userID string) (models.LastLocation, bool, error)
}

type API struct {
	svc Service
}

func New(svc Service) *API {
	return &API{svc: svc}
}

// Routes mounts the endpoint the field agents write to.
func (a *API) Routes(r chi.Router) {
	r.Post("/api/activity-log", a.postActivity)
	r.Get("/api/activity-log", a.listActivities)
}

// RegisterGateway exposes the read side on the gateway mux.
func (a *API) RegisterGateway(mux *runtime.ServeMux) error {
	if err := mux.HandlePath(http.MethodGet, "/v1/users/{user_id}/activities", func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		a.list(w, r, params["user_id"])
	}); err != nil {
		return errors.Wrap(err, "register activities route")
	}
	if err := mux.HandlePath(http.MethodGet, "/v1/users/{user_id}/last-location", func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		a.lastLocation(w, r, params["user_id"])
	}); err != nil {
		return errors.Wrap(err, "register last-location route")
	}
	return nil
}

func (a *API) postActivity(w http.ResponseWriter, r *http.Request) {
	var p models.ActivityPayload
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}

	id, err := a.svc.Accept(r.Context(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

func (a *API) listActivities(w http.ResponseWriter, r *http.Request) {
	a.list(w, r, r.URL.Query().Get("userId"))
}

func (a *API) list(w http.ResponseWriter, r *http.Request, userID string) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	offset, err := intParam(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}

	items, err := a.svc.ListActivities(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if items == nil {
		items = []models.StoredActivity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"activities": items})
}

func (a *API) lastLocation(w http.ResponseWriter, r *http.Request, userID string) {
	ll, ok, err := a.svc.LastLocation(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no located activity")
		return
	}
	writeJSON(w, http.StatusOK, ll)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, activitylog.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, activitylog.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, activitylog.ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		slog.Error("activity api", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
