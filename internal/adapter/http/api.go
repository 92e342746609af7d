package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/accident-dashboard/internal/stats"
)

// maxYearSpan bounds the number of years one yearly request may cover.
const maxYearSpan = 200

const (
	outcomeSuccess    = "success"
	outcomeBadRequest = "bad_request"
	outcomeError      = "error"
)

type summaryResponse struct {
	GeneratedAt time.Time         `json:"generated_at"`
	Total       int               `json:"total_accidents"`
	Excluded    int               `json:"excluded_records"`
	YearFrom    int               `json:"year_from"`
	YearTo      int               `json:"year_to"`
	Injuries    []stats.YearStats `json:"injuries_by_year"`
}

type yearlyResponse struct {
	Field stats.Field       `json:"field"`
	From  int               `json:"from"`
	To    int               `json:"to"`
	Years []stats.YearStats `json:"years"`
}

type groupedResponse struct {
	By    []stats.Key      `json:"by"`
	Agg   stats.Mode       `json:"agg"`
	Field stats.Field      `json:"field,omitempty"`
	Rows  []stats.GroupRow `json:"rows"`
}

type exclusionResponse struct {
	Row    int    `json:"row"`
	Raw    string `json:"incident_datetime"`
	Reason string `json:"reason"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.source.Snapshot()
	if snap == nil {
		s.fail(w, "summary", http.StatusServiceUnavailable, errors.New("dashboard is still loading"))
		return
	}
	d := snap.Dashboard

	var injuries []stats.YearStats
	err := s.timed("yearly", func() error {
		var err error
		injuries, err = s.source.Engine().YearlyStats(stats.FieldInjuries, d.YearFrom, d.YearTo)
		return err
	})
	if err != nil {
		s.fail(w, "summary", http.StatusInternalServerError, err)
		return
	}

	s.ok(w, "summary", summaryResponse{
		GeneratedAt: d.GeneratedAt,
		Total:       d.Total,
		Excluded:    d.Excluded,
		YearFrom:    d.YearFrom,
		YearTo:      d.YearTo,
		Injuries:    injuries,
	})
}

func (s *Server) handleYearly(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	field := stats.Field(q.Get("field"))
	if field == "" {
		field = stats.FieldInjuries
	}

	eng := s.source.Engine()
	from, to, ok := eng.DefaultYearRange()
	var err error
	if from, err = intParam(q.Get("from"), from); err != nil {
		s.fail(w, "yearly", http.StatusBadRequest, fmt.Errorf("from: %w", err))
		return
	}
	if to, err = intParam(q.Get("to"), to); err != nil {
		s.fail(w, "yearly", http.StatusBadRequest, fmt.Errorf("to: %w", err))
		return
	}
	if !ok && q.Get("from") == "" && q.Get("to") == "" {
		s.ok(w, "yearly", yearlyResponse{Field: field, Years: []stats.YearStats{}})
		return
	}

	if err := stats.ValidateYearRange(from, to); err != nil {
		s.fail(w, "yearly", http.StatusBadRequest, err)
		return
	}
	if to-from >= maxYearSpan {
		s.fail(w, "yearly", http.StatusBadRequest, fmt.Errorf("year range wider than %d years", maxYearSpan))
		return
	}

	var years []stats.YearStats
	err = s.timed("yearly", func() error {
		var err error
		years, err = eng.YearlyStats(field, from, to)
		return err
	})
	if err != nil {
		s.fail(w, "yearly", statusFor(err), err)
		return
	}
	s.ok(w, "yearly", yearlyResponse{Field: field, From: from, To: to, Years: years})
}

func (s *Server) handleGrouped(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var keys []stats.Key
	for _, k := range strings.Split(q.Get("by"), ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, stats.Key(k))
		}
	}

	agg := stats.Aggregation{Mode: stats.Mode(q.Get("agg")), Field: stats.Field(q.Get("field"))}
	if agg.Mode == "" {
		agg.Mode = stats.ModeCount
	}

	var rows []stats.GroupRow
	err := s.timed("grouped", func() error {
		var err error
		rows, err = s.source.Engine().Group(keys, agg)
		return err
	})
	if err != nil {
		s.fail(w, "grouped", statusFor(err), err)
		return
	}

	resp := groupedResponse{By: keys, Agg: agg.Mode, Rows: rows}
	if agg.Mode == stats.ModeSum {
		resp.Field = agg.Field
	}
	s.ok(w, "grouped", resp)
}

func (s *Server) handleExcluded(w http.ResponseWriter, _ *http.Request) {
	excluded := s.source.Engine().Excluded()
	out := make([]exclusionResponse, len(excluded))
	for i, ex := range excluded {
		out[i] = exclusionResponse{Row: ex.Row, Raw: ex.Raw, Reason: ex.Error()}
	}
	s.ok(w, "excluded", out)
}

func (s *Server) ok(w http.ResponseWriter, endpoint string, v any) {
	s.metrics.APIRequests.WithLabelValues(endpoint, outcomeSuccess).Inc()
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) fail(w http.ResponseWriter, endpoint string, status int, err error) {
	outcome := outcomeError
	if status == http.StatusBadRequest {
		outcome = outcomeBadRequest
	} else {
		s.logger.Error("api request failed", "endpoint", endpoint, "error", err)
	}
	s.metrics.APIRequests.WithLabelValues(endpoint, outcome).Inc()
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) timed(kind string, fn func() error) error {
	start := time.Now()
	err := fn()
	s.metrics.AggregationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return err
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, stats.ErrSchemaMismatch),
		errors.Is(err, stats.ErrInvalidRange),
		errors.Is(err, stats.ErrNoKeys):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func intParam(s string, fallback int) (int, error) {
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return n, nil
}
