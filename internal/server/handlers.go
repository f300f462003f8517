package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bettingtipsai/tips-cli/internal/export"
	"github.com/bettingtipsai/tips-cli/internal/model"
	"github.com/bettingtipsai/tips-cli/internal/schema"
	"github.com/bettingtipsai/tips-cli/internal/store"
)

const maxCreateBody = 1 << 20 // payloads are a few dozen tips at most

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	payload, err := s.store.LoadLatest(r.Context())
	if err != nil {
		s.writeError(w, "load latest", err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleByDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if err := schema.ValidateDateISO(date); err != nil {
		s.writeError(w, "by date", err)
		return
	}
	payload, err := s.store.LoadByDate(r.Context(), date)
	if err != nil {
		s.writeError(w, "by date", err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	filters, page, limit, err := parseFilters(r)
	if err != nil {
		s.writeError(w, "history", err)
		return
	}
	result, err := s.engine.Query(r.Context(), filters, page, limit)
	if err != nil {
		s.writeError(w, "history", err)
		return
	}
	if result.Tips == nil {
		result.Tips = []model.DatedTip{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	filters, _, _, err := parseFilters(r)
	if err != nil {
		s.writeError(w, "stats", err)
		return
	}
	stats, err := s.engine.Stats(r.Context(), filters)
	if err != nil {
		s.writeError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.store.ListDates(r.Context())
	if err != nil {
		s.writeError(w, "dates", err)
		return
	}
	if dates == nil {
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": dates})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, _, _, err := parseFilters(r)
	if err != nil {
		s.writeError(w, "export", err)
		return
	}
	tips, err := s.engine.All(r.Context(), filters)
	if err != nil {
		s.writeError(w, "export", err)
		return
	}
	rows, err := export.Rows(tips)
	if err != nil {
		s.writeError(w, "export", err)
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no data to export"})
		return
	}

	if r.URL.Query().Get("format") == "json" {
		writeJSON(w, http.StatusOK, rows)
		return
	}

	filename := fmt.Sprintf("tips-export-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := export.WriteCSV(w, rows); err != nil {
		zap.L().Error("export csv write failed", zap.Error(err))
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCreateBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable request body"})
		return
	}
	payload, err := schema.ParsePayload(body)
	if err != nil {
		s.writeError(w, "create", err)
		return
	}

	overwrite, _ := strconv.ParseBool(r.URL.Query().Get("overwrite"))
	if err := s.store.SaveDailyTips(r.Context(), payload, overwrite); err != nil {
		s.writeError(w, "create", err)
		return
	}

	riskBreakdown := map[model.Risk]int{}
	betTypeBreakdown := map[model.BetType]int{}
	for _, tip := range payload.Tips {
		riskBreakdown[tip.Risk]++
		betTypeBreakdown[tip.BetType]++
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": fmt.Sprintf("daily tips for %s created", payload.DateISO),
		"data": map[string]any{
			"dateISO":          payload.DateISO,
			"tipCount":         len(payload.Tips),
			"riskBreakdown":    riskBreakdown,
			"betTypeBreakdown": betTypeBreakdown,
		},
	})
}

func (s *Server) handleUpdateResult(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TipID  string       `json:"tipId"`
		Result model.Result `json:"result"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.TipID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tipId is required"})
		return
	}
	if err := s.store.UpdateTipResult(r.Context(), req.TipID, req.Result); err != nil {
		s.writeError(w, "update result", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tipId": req.TipID, "result": req.Result})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	tipID := chi.URLParam(r, "tipID")
	if err := s.store.DeleteTip(r.Context(), tipID); err != nil {
		s.writeError(w, "delete", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "tipId": tipID})
}

// parseFilters translates query-string parameters into engine arguments.
func parseFilters(r *http.Request) (model.TipFilters, int, int, error) {
	q := r.URL.Query()

	filters := model.TipFilters{
		Sport:    q.Get("sport"),
		Risk:     model.Risk(q.Get("risk")),
		Result:   model.Result(q.Get("result")),
		BetType:  model.BetType(q.Get("betType")),
		DateFrom: q.Get("dateFrom"),
		DateTo:   q.Get("dateTo"),
	}

	if raw := q.Get("minLegs"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filters, 0, 0, schema.ValidationErrors{{Path: "minLegs", Message: "must be a positive integer"}}
		}
		filters.MinLegs = n
	}

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filters, 0, 0, schema.ValidationErrors{{Path: "page", Message: "must be a positive integer"}}
		}
		page = n
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return filters, 0, 0, schema.ValidationErrors{{Path: "limit", Message: "must be a positive integer"}}
		}
		limit = n
	}

	if errs := schema.ValidateFilters(filters); len(errs) > 0 {
		return filters, 0, 0, errs
	}
	return filters, page, limit, nil
}

// writeError maps the error taxonomy to status codes: validation → 400,
// not found → 404, already exists → 409, anything else → 500 (logged).
func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	if ves, ok := schema.AsValidationErrors(err); ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "validation failed",
			"details": ves,
		})
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if errors.Is(err, store.ErrAlreadyExists) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "tips for this date already exist"})
		return
	}
	zap.L().Error("request failed", zap.String("op", op), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response failed", zap.Error(err))
	}
}
