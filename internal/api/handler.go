package api

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-report/internal/model"
	"github.com/sells-group/opportunity-report/internal/report"
)

// SuccessMessage is returned when the report was generated and emailed.
const SuccessMessage = "Report generated and email sent successfully"

const maxBodyBytes = 64 << 10

type successResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type reportHandler struct {
	runner Runner
}

// generate runs the pipeline synchronously. The run is detached from the
// request context so a client disconnect does not abort it halfway.
func (h *reportHandler) generate(w http.ResponseWriter, r *http.Request) {
	var form model.FormSubmission
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.runner.Run(context.WithoutCancel(r.Context()), form)
	if result != nil && result.RunID != "" {
		w.Header().Set("X-Run-ID", result.RunID)
	}
	if err != nil {
		status := report.StatusCode(err)
		if status == http.StatusBadRequest {
			writeJSON(w, status, errorResponse{Error: report.ClientMessage(err)})
			return
		}
		writeJSON(w, status, errorResponse{
			Error:   "An error occurred",
			Message: report.ClientMessage(err),
		})
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Message: SuccessMessage})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: write response", zap.Error(err))
	}
}
