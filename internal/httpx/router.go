package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AngelCh415/smartreach/internal/llm"
	"github.com/AngelCh415/smartreach/internal/metrics"
	"github.com/AngelCh415/smartreach/internal/models"
	"github.com/AngelCh415/smartreach/internal/orchestrator"
	"github.com/AngelCh415/smartreach/internal/utils"
)

const maxBody = 1 << 20

type Pinger interface {
	Ping(ctx context.Context) error
}

type generateResponse struct {
	CampaignID          string           `json:"campaign_id"`
	Messages            []models.Message `json:"messages"`
	AverageQualityScore float64          `json:"average_quality_score"`
}

func NewRouter(log *slog.Logger, orch *orchestrator.Orchestrator, hist *metrics.Service, db Pinger, prom *metrics.Prom) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			http.Error(w, "store unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Method(http.MethodGet, "/metrics", prom.Handler())

	fail := func(w http.ResponseWriter, r *http.Request, err error) {
		code := statusFor(err)
		if code >= 500 {
			log.Error("request failed", slog.String("path", r.URL.Path), slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
	}

	mux.Route("/api", func(api chi.Router) {
		api.Post("/campaigns/research", func(w http.ResponseWriter, r *http.Request) {
			var crit models.Criteria
			if !decode(w, r, &crit) {
				return
			}
			res, err := orch.BeginResearch(r.Context(), crit)
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		api.Post("/campaigns/generate", func(w http.ResponseWriter, r *http.Request) {
			var req orchestrator.GenerateRequest
			if !decode(w, r, &req) {
				return
			}
			msgs, err := orch.GenerateForSelection(r.Context(), req)
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, generateResponse{
				CampaignID:          req.CampaignID,
				Messages:            msgs,
				AverageQualityScore: orchestrator.AverageQuality(msgs),
			})
		})

		api.Post("/campaigns/save", func(w http.ResponseWriter, r *http.Request) {
			var req orchestrator.SaveRequest
			if !decode(w, r, &req) {
				return
			}
			if err := orch.Save(r.Context(), req); err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"campaign_id": req.CampaignID, "status": string(models.StatusCompleted)})
		})

		api.Get("/campaigns/{id}/restore", func(w http.ResponseWriter, r *http.Request) {
			ws, err := orch.Restore(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, ws)
		})

		api.Get("/campaigns/{id}", func(w http.ResponseWriter, r *http.Request) {
			ws, err := orch.Working(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, ws)
		})

		api.Get("/history", func(w http.ResponseWriter, r *http.Request) {
			page, err := hist.History(r.Context(), r.URL.Query())
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, page)
		})

		api.Get("/history/{id}", func(w http.ResponseWriter, r *http.Request) {
			d, err := orch.Campaign(r.Context(), chi.URLParam(r, "id"))
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, d)
		})

		api.Delete("/history/{id}", func(w http.ResponseWriter, r *http.Request) {
			if err := orch.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
				fail(w, r, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		})

		api.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
			d, err := hist.Dashboard(r.Context())
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, d)
		})

		api.Get("/profile", func(w http.ResponseWriter, r *http.Request) {
			p, err := orch.Profile(r.Context())
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		})

		api.Put("/profile", func(w http.ResponseWriter, r *http.Request) {
			var u orchestrator.ProfileUpdate
			if !decode(w, r, &u) {
				return
			}
			p, err := orch.UpdateProfile(r.Context(), u)
			if err != nil {
				fail(w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, p)
		})
	})

	return mux
}

func statusFor(err error) int {
	var le *llm.Error
	switch {
	case errors.Is(err, orchestrator.ErrPrecondition):
		return http.StatusNotFound
	case errors.Is(err, orchestrator.ErrCompleted):
		return http.StatusConflict
	case errors.Is(err, orchestrator.ErrInvalid), errors.Is(err, metrics.ErrBadQuery):
		return http.StatusBadRequest
	case errors.As(err, &le):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
