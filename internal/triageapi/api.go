package triageapi

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"
	"github.com/linnemanlabs/mediguard/internal/authmw"
	"github.com/linnemanlabs/mediguard/internal/triage"
)

// maxBodyBytes bounds a triage request body.
const maxBodyBytes = 64 << 10

// TriageService defines the business operations triageapi needs.
type TriageService interface {
	Triage(ctx context.Context, req *triage.Request) (*triage.Result, error)
	Get(ctx context.Context, id string) (*triage.Decision, bool, error)
	ModelInfo() (string, []triage.Class)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    TriageService
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/triage", a.handleTriage)
		r.Get("/decisions/{id}", a.handleGetDecision)
		r.Get("/model", a.handleModel)
	})
}

type errorBody struct {
	Error    string   `json:"error"`
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) handleTriage(w http.ResponseWriter, r *http.Request) {
	req, problems, err := decodeRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid payload"})
		return
	}
	if len(problems) > 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing fields", Problems: problems})
		return
	}

	res, err := a.svc.Triage(r.Context(), req)
	if err != nil {
		if problems, ok := triage.InputProblems(err); ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid input", Problems: problems})
			return
		}
		a.logger.Error(r.Context(), err, "triage failed", "caller", authmw.Caller(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "triage failed"})
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleGetDecision(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("mediguard.decision.id", id))

	d, ok, err := a.svc.Get(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to get decision", "id", id)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}

	span.SetAttributes(attribute.String("mediguard.triage.class", string(d.Class)))

	writeJSON(w, http.StatusOK, d)
}

type modelInfo struct {
	Version string         `json:"model_version"`
	Classes []triage.Class `json:"classes"`
}

func (a *API) handleModel(w http.ResponseWriter, _ *http.Request) {
	version, classes := a.svc.ModelInfo()
	writeJSON(w, http.StatusOK, modelInfo{Version: version, Classes: classes})
}
