package web

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hpungsan/nihss/internal/config"
	"github.com/hpungsan/nihss/internal/errors"
	"github.com/hpungsan/nihss/internal/form"
	"github.com/hpungsan/nihss/internal/history"
	"github.com/hpungsan/nihss/internal/scale"
)

// maxFormBytes bounds a submitted assessment form.
const maxFormBytes = 64 << 10

// Handlers contains HTTP route handlers for the web UI.
type Handlers struct {
	store    *history.Store
	cfg      *config.Config
	renderer *Renderer
	log      zerolog.Logger
	now      func() time.Time
}

// HandleList handles GET /assessments: saved assessments, newest first.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	severity := r.URL.Query().Get("severity")
	var filter scale.Severity
	if severity != "" {
		s, err := scale.ParseSeverity(severity)
		if err != nil {
			h.renderer.renderError(w, r, errors.NewInvalidRequest(err.Error()))
			return
		}
		filter = s
	}

	res := h.store.List()
	records := res.Assessments
	if filter != "" {
		records = make([]scale.Assessment, 0, len(res.Assessments))
		for _, a := range res.Assessments {
			if a.Severity == filter {
				records = append(records, a)
			}
		}
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"assessments": records,
			"summary":     history.Summarize(res.Assessments),
		})
		return
	}

	h.renderer.renderPage(w, r, "list", ListPageData{
		PageData: PageData{
			Title:   "History",
			Version: h.renderer.version,
			Nav:     "assessments",
		},
		Assessments: records,
		Summary:     history.Summarize(res.Assessments),
		Bands:       scale.Bands(),
		Severity:    severity,
		Recovered:   res.Recovered,
	})
}

// HandleNew handles GET /assessments/new: an empty scoring form.
func (h *Handlers) HandleNew(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "new", h.formData(scale.Selections{}, "", ""))
}

// HandleScore handles POST /assessments/score: the live total panel for
// the selections submitted so far. Nothing is saved.
func (h *Handlers) HandleScore(w http.ResponseWriter, r *http.Request) {
	sel, _, err := parseAssessmentForm(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	score := scoreData(sel)
	if wantsJSON(r) {
		missing := scale.Missing(sel)
		if missing == nil {
			missing = []string{}
		}
		renderJSON(w, http.StatusOK, map[string]any{
			"total":    score.Total,
			"severity": score.Severity,
			"answered": score.Answered,
			"missing":  missing,
		})
		return
	}
	h.renderer.renderBlock(w, http.StatusOK, "new", "score-panel", score)
}

// HandleCreate handles POST /assessments: save the submitted form.
func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	sel, notes, err := parseAssessmentForm(w, r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	sess := form.FromSelections(sel, notes).WithClock(h.now)
	sess.RequireComplete = h.cfg.RequireComplete && r.PostForm.Get("force") != "true"

	a, err := sess.Save(h.store)
	if errors.Is(err, errors.ErrIncomplete) && !wantsJSON(r) && r.Header.Get("HX-Request") != "true" {
		missing := sess.Remaining()
		msg := fmt.Sprintf("%d item(s) not scored: %s", len(missing), strings.Join(missing, ", "))
		h.renderer.renderPageStatus(w, r, http.StatusUnprocessableEntity, "new", h.formData(sel, notes, msg))
		return
	}
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	h.log.Info().Str("id", a.ID).Int("total", a.TotalScore).Str("severity", string(a.Severity)).Msg("assessment saved")

	location := "/assessments/" + a.ID
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", location)
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		w.Header().Set("Location", location)
		renderJSON(w, http.StatusCreated, a)
		return
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}

// HandleDetail handles GET /assessments/{id}: one saved assessment.
func (h *Handlers) HandleDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("assessment ID is required"))
		return
	}

	a, ok := h.store.Get(id)
	if !ok {
		h.renderer.renderError(w, r, errors.NewNotFound(id))
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, a)
		return
	}

	h.renderer.renderPage(w, r, "detail", DetailPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("NIHSS %d · %s", a.TotalScore, formatDate(a.Timestamp)),
			Version: h.renderer.version,
			Nav:     "assessments",
		},
		Assessment:    a,
		Breakdown:     scale.Breakdown(a.Items),
		RenderedNotes: renderMarkdown(a.Notes),
		Complete:      a.Complete(),
	})
}

// HandleDelete handles DELETE /assessments/{id}. Unknown ids are not an error.
func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("assessment ID is required"))
		return
	}

	_, existed := h.store.Get(id)
	if err := h.store.Delete(id); err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/assessments")
		w.WriteHeader(http.StatusOK)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{
			"deleted": existed,
			"id":      id,
		})
		return
	}

	http.Redirect(w, r, "/assessments", http.StatusFound)
}

// HandleClear handles POST /assessments/clear: delete all history.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	if r.FormValue("confirm") != "true" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("confirm parameter must be \"true\""))
		return
	}

	count := len(h.store.List().Assessments)
	if err := h.store.ClearAll(); err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}
	h.log.Info().Int("count", count).Msg("history cleared")

	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/assessments")
		w.WriteHeader(http.StatusOK)
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"cleared": count})
		return
	}
	http.Redirect(w, r, "/assessments", http.StatusFound)
}

// HandleExport handles GET /assessments/export: the full history as a
// JSON download.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	body, err := h.store.ExportAll()
	if err != nil {
		h.renderer.renderError(w, r, errors.NewInternal(err))
		return
	}

	name := fmt.Sprintf("nihss-assessments-%s.json", h.now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *Handlers) formData(sel scale.Selections, notes, errMsg string) FormPageData {
	return FormPageData{
		PageData: PageData{
			Title:   "New Assessment",
			Version: h.renderer.version,
			Nav:     "new",
		},
		Items:           scale.Items(),
		Selected:        sel.Map(),
		Notes:           notes,
		Score:           scoreData(sel),
		RequireComplete: h.cfg.RequireComplete,
		Error:           errMsg,
	}
}

func scoreData(sel scale.Selections) ScoreData {
	total := scale.CalculateTotal(sel)
	return ScoreData{
		Total:     total,
		MaxTotal:  scale.MaxTotal(),
		Severity:  scale.ClassifySeverity(total),
		Answered:  sel.Len(),
		ItemCount: len(scale.ItemIDs()),
	}
}

// parseAssessmentForm reads item scores (one field per item id) and notes.
// Empty fields are unscored items.
func parseAssessmentForm(w http.ResponseWriter, r *http.Request) (scale.Selections, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return scale.Selections{}, "", errors.NewInvalidRequest("invalid form data")
	}

	var sel scale.Selections
	for _, id := range scale.ItemIDs() {
		raw := strings.TrimSpace(r.PostForm.Get(id))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return scale.Selections{}, "", errors.NewInvalidRequest(fmt.Sprintf("score for %q must be an integer", id))
		}
		if err := sel.Set(id, v); err != nil {
			return scale.Selections{}, "", err
		}
	}
	return sel, r.PostForm.Get("notes"), nil
}
