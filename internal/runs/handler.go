package runs

import (
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"legal-backend/internal/docdiff"
	"legal-backend/internal/documents"
	"legal-backend/internal/highlight"
	"legal-backend/internal/shared/server/respond"
	"legal-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc  *Service
	Docs *documents.Service

	// DefaultTargetLanguage is applied when a create request carries no
	// target language. Empty leaves translation opt-in.
	DefaultTargetLanguage string
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, docs *documents.Service) *Handler {
	return &Handler{Svc: svc, Docs: docs}
}

// RegisterRoutes attaches run routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/runs", h.create)
	rg.POST("/runs/:id/steps/:step/retry", h.retry)
	rg.GET("/runs", h.list)
	rg.GET("/runs/:id", h.get)
	rg.GET("/runs/:id/comparison", h.comparison)
	rg.GET("/runs/:id/diff", h.diff)
}

type createRequest struct {
	DocumentID         string `json:"documentId"`
	DocumentText       string `json:"documentText"`
	PrimaryFramework   string `json:"primaryFramework"`
	SecondaryFramework string `json:"secondaryFramework"`
	TargetLanguage     string `json:"targetLanguage"`
}

// create starts a run and streams its progress as NDJSON. The response
// status is committed before the first model call, so step failures surface
// on the stream (it ends without a complete event), not as an HTTP status.
func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrCodeValidation, "invalid request body", nil)
		return
	}

	text := req.DocumentText
	if text == "" && req.DocumentID != "" {
		doc, err := h.Docs.Get(c.Request.Context(), req.DocumentID)
		if err != nil {
			if errors.Is(err, documents.ErrNotFound) {
				respond.Error(c, http.StatusNotFound, ErrCodeNotFound, "document not found", nil)
				return
			}
			respond.Error(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load document", nil)
			return
		}
		text = doc.TextContent
	}

	lang := strings.TrimSpace(req.TargetLanguage)
	if lang == "" {
		lang = h.DefaultTargetLanguage
	}

	run, err := h.Svc.Start(c.Request.Context(), StartParams{
		DocumentID:         req.DocumentID,
		DocumentText:       text,
		PrimaryFramework:   req.PrimaryFramework,
		SecondaryFramework: req.SecondaryFramework,
		TargetLanguage:     lang,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			respond.Error(c, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrCodeInternal, "failed to create run", nil)
		return
	}
	c.Set("runId", run.ID)

	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(c.Writer)
	broken := false
	sink := func(ev Event) {
		if broken {
			return
		}
		if err := enc.Encode(ev); err != nil {
			// Consumer is gone; keep executing, stop writing.
			broken = true
			telemetry.Info("run.stream_closed", map[string]any{"run_id": run.ID})
			return
		}
		c.Writer.Flush()
	}

	h.Svc.Execute(c.Request.Context(), run.ID, sink)
}

type retryResponse struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Failure        `json:"error,omitempty"`
}

func (h *Handler) retry(c *gin.Context) {
	runID := c.Param("id")
	name, err := ParseStepName(c.Param("step"))
	if err != nil {
		respond.Error(c, http.StatusNotFound, ErrCodeUnknownStep, "unknown pipeline step", nil)
		return
	}

	raw, err := h.Svc.Retry(c.Request.Context(), runID, name)
	if err != nil {
		var failure *Failure
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrCodeNotFound, "analysis run not found", nil)
		case errors.Is(err, ErrUnknownStep):
			respond.Error(c, http.StatusNotFound, ErrCodeUnknownStep, "unknown pipeline step", nil)
		case errors.Is(err, ErrStepNotFailed):
			respond.Error(c, http.StatusConflict, ErrCodeStepNotFailed, "step is not in a failed state", nil)
		case errors.Is(err, ErrDependencyNotMet):
			respond.Error(c, http.StatusConflict, ErrCodeDependency, "step dependencies have not succeeded", nil)
		case errors.Is(err, ErrRetryInFlight):
			respond.Error(c, http.StatusConflict, ErrCodeRetryConflict, "a retry for this step is already in flight", nil)
		case errors.As(err, &failure):
			// The retry itself ran and failed again; that is a result, not
			// a rejected request.
			respond.OK(c, retryResponse{Success: false, Error: failure})
		default:
			respond.Error(c, http.StatusInternalServerError, ErrCodeInternal, "failed to retry step", nil)
		}
		return
	}
	respond.OK(c, retryResponse{Success: true, Result: raw})
}

func (h *Handler) get(c *gin.Context) {
	snap, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, ErrCodeNotFound, "analysis run not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, ErrCodeInternal, "failed to fetch run", nil)
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	snaps, err := h.Svc.List(c.Request.Context(), limit, offset)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, ErrCodeInternal, "failed to list runs", nil)
		return
	}
	respond.OK(c, gin.H{"runs": snaps})
}

type comparisonResponse struct {
	Original  string `json:"original"`
	Optimized string `json:"optimized"`
	Language  string `json:"language,omitempty"`
}

// comparison renders the before/after view: both texts with modification
// spans wrapped in <mark> tags. When the model returned no usable
// modification records the optimized side falls back to a word-level diff.
func (h *Handler) comparison(c *gin.Context) {
	run, opt, ok := h.loadOptimized(c)
	if !ok {
		return
	}

	optimizedText := opt.OptimizedText
	mods := opt.Modifications
	lang := strings.TrimSpace(c.Query("lang"))
	if lang != "" {
		tr, ok := h.Svc.TranslationResult(&run)
		if !ok || !strings.EqualFold(tr.TargetLanguage, lang) {
			respond.Error(c, http.StatusConflict, ErrCodeNotReady, "no translation available for the requested language", nil)
			return
		}
		optimizedText = tr.TranslatedText
		mods = tr.TranslatedModifications
	}

	resp := comparisonResponse{Language: lang}
	if len(mods) > 0 {
		resp.Original = highlight.Render(run.DocumentText, mods, highlight.SideOriginal)
		resp.Optimized = highlight.Render(optimizedText, mods, highlight.SideOptimized)
	} else {
		resp.Original = html.EscapeString(run.DocumentText)
		resp.Optimized = docdiff.Render(run.DocumentText, optimizedText)
	}
	respond.OK(c, resp)
}

// diff returns structured hunks between the original and optimized text.
func (h *Handler) diff(c *gin.Context) {
	run, opt, ok := h.loadOptimized(c)
	if !ok {
		return
	}
	respond.OK(c, gin.H{"hunks": docdiff.Hunks(run.DocumentText, opt.OptimizedText)})
}

func (h *Handler) loadOptimized(c *gin.Context) (AnalysisRun, *OptimizationResult, bool) {
	run, err := h.Svc.Repo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, ErrCodeNotFound, "analysis run not found", nil)
			return AnalysisRun{}, nil, false
		}
		respond.Error(c, http.StatusInternalServerError, ErrCodeInternal, "failed to fetch run", nil)
		return AnalysisRun{}, nil, false
	}

	opt, err := h.Svc.OptimizationResult(c.Request.Context(), &run)
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			respond.Error(c, http.StatusConflict, ErrCodeNotReady, "optimization step has not completed", nil)
			return AnalysisRun{}, nil, false
		}
		respond.Error(c, http.StatusInternalServerError, ErrCodeInternal, "failed to load optimization result", nil)
		return AnalysisRun{}, nil, false
	}
	return run, opt, true
}
