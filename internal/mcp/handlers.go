package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/nihss/internal/config"
	"github.com/hpungsan/nihss/internal/errors"
	"github.com/hpungsan/nihss/internal/form"
	"github.com/hpungsan/nihss/internal/history"
	"github.com/hpungsan/nihss/internal/scale"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	store *history.Store
	cfg   *config.Config
	now   func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(store *history.Store, cfg *config.Config) *Handlers {
	return &Handlers{store: store, cfg: cfg, now: time.Now}
}

// Request types for each tool

// ScoreRequest represents the arguments for scale_score.
type ScoreRequest struct {
	Items map[string]int `json:"items"`
}

// SaveRequest represents the arguments for assessment_save.
type SaveRequest struct {
	Items map[string]int `json:"items"`
	Notes string         `json:"notes,omitempty"`
	Force bool           `json:"force,omitempty"`
}

// ListRequest represents the arguments for assessment_list.
type ListRequest struct {
	Severity string `json:"severity,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// IDRequest represents the arguments for assessment_get and assessment_delete.
type IDRequest struct {
	ID string `json:"id"`
}

// ClearRequest represents the arguments for assessment_clear.
type ClearRequest struct {
	Confirm bool `json:"confirm"`
}

// PathRequest represents the arguments for assessment_export and assessment_import.
type PathRequest struct {
	Path string `json:"path,omitempty"`
}

// Output types

// ItemsOutput is returned by scale_items.
type ItemsOutput struct {
	Items    []scale.Item `json:"items"`
	Bands    []scale.Band `json:"bands"`
	MaxTotal int          `json:"max_total"`
}

// ScoreOutput is returned by scale_score.
type ScoreOutput struct {
	Total         int            `json:"total"`
	Severity      scale.Severity `json:"severity"`
	SeverityLabel string         `json:"severity_label"`
	Answered      int            `json:"answered"`
	Missing       []string       `json:"missing"`
	Complete      bool           `json:"complete"`
}

// ListOutput is returned by assessment_list.
type ListOutput struct {
	Assessments []scale.Assessment `json:"assessments"`
	Summary     history.Summary    `json:"summary"`
	Recovered   bool               `json:"recovered,omitempty"`
}

// GetOutput is returned by assessment_get.
type GetOutput struct {
	Assessment    scale.Assessment `json:"assessment"`
	SeverityLabel string           `json:"severity_label"`
	Breakdown     []scale.Row      `json:"breakdown"`
}

// DeleteOutput is returned by assessment_delete.
type DeleteOutput struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

// Handler implementations

// HandleItems handles the scale_items tool call.
func (h *Handlers) HandleItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return successResult(ItemsOutput{
		Items:    scale.Items(),
		Bands:    scale.Bands(),
		MaxTotal: scale.MaxTotal(),
	})
}

// HandleScore handles the scale_score tool call.
func (h *Handlers) HandleScore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ScoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	sel, err := scale.NewSelections(input.Items)
	if err != nil {
		return errorResult(err), nil
	}

	total := scale.CalculateTotal(sel)
	severity := scale.ClassifySeverity(total)
	missing := scale.Missing(sel)
	if missing == nil {
		missing = []string{}
	}
	return successResult(ScoreOutput{
		Total:         total,
		Severity:      severity,
		SeverityLabel: severity.Label(),
		Answered:      sel.Len(),
		Missing:       missing,
		Complete:      len(missing) == 0,
	})
}

// HandleSave handles the assessment_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	sel, err := scale.NewSelections(input.Items)
	if err != nil {
		return errorResult(err), nil
	}
	sess := form.FromSelections(sel, input.Notes).WithClock(h.now)
	sess.RequireComplete = h.cfg.RequireComplete && !input.Force

	a, err := sess.Save(h.store)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(a)
}

// HandleList handles the assessment_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must be >= 0")), nil
	}

	var filter scale.Severity
	if input.Severity != "" {
		filter, err = scale.ParseSeverity(input.Severity)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}
	}

	res := h.store.List()
	records := make([]scale.Assessment, 0, len(res.Assessments))
	for _, a := range res.Assessments {
		if filter != "" && a.Severity != filter {
			continue
		}
		records = append(records, a)
		if input.Limit > 0 && len(records) == input.Limit {
			break
		}
	}

	return successResult(ListOutput{
		Assessments: records,
		Summary:     history.Summarize(res.Assessments),
		Recovered:   res.Recovered,
	})
}

// HandleGet handles the assessment_get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	a, ok := h.store.Get(input.ID)
	if !ok {
		return errorResult(errors.NewNotFound(input.ID)), nil
	}

	return successResult(GetOutput{
		Assessment:    a,
		SeverityLabel: a.Severity.Label(),
		Breakdown:     scale.Breakdown(a.Items),
	})
}

// HandleDelete handles the assessment_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.ID == "" {
		return errorResult(errors.NewInvalidRequest("id is required")), nil
	}

	_, existed := h.store.Get(input.ID)
	if err := h.store.Delete(input.ID); err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}

	return successResult(DeleteOutput{ID: input.ID, Deleted: existed})
}

// HandleClear handles the assessment_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ClearRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if !input.Confirm {
		return errorResult(errors.NewInvalidRequest("confirm must be true")), nil
	}

	count := len(h.store.List().Assessments)
	if err := h.store.ClearAll(); err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}

	return successResult(map[string]any{"cleared": count})
}

// HandleExport handles the assessment_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.store.ExportFile(h.cfg, input.Path)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the assessment_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := h.store.ImportFile(h.cfg, input.Path)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleDeviceID handles the device_id tool call.
func (h *Handlers) HandleDeviceID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := h.store.DeviceID()
	if err != nil {
		return errorResult(errors.NewInternal(err)), nil
	}
	return successResult(map[string]string{"device_id": id})
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var scaleErr *errors.ScaleError
	if stderrors.As(err, &scaleErr) {
		msg := scaleErr.Message
		// Keep wrapper context, e.g. "import: NOT_FOUND: ..." -> "import: ..."
		if prefix := strings.TrimSuffix(err.Error(), scaleErr.Error()); prefix != err.Error() {
			msg = prefix + msg
		}
		errorObj := map[string]any{
			"code":    scaleErr.Code,
			"message": msg,
			"status":  scaleErr.Status,
		}
		if scaleErr.Code != errors.ErrInternal && scaleErr.Details != nil {
			errorObj["details"] = scaleErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
