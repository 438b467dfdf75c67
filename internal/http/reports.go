package http

import (
	"net/http"
	"time"

	"tally/internal/period"
	"tally/internal/report"
)

type periodResponse struct {
	PeriodID string    `json:"periodId"`
	Label    string    `json:"label"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Prev     string    `json:"prev"`
	Next     string    `json:"next"`
}

// handlePeriod resolves the budget period containing a date (today by
// default) along with its neighbors.
func (s *Server) handlePeriod(w http.ResponseWriter, r *http.Request) {
	date := time.Now().UTC()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := parseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date")
			return
		}
		date = parsed
	}

	id := s.periods.ForDate(date)
	start, end, err := s.periods.Range(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	label, err := s.periods.Label(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	prev, err := s.periods.Prev(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	next, err := s.periods.Next(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, periodResponse{
		PeriodID: string(id),
		Label:    label,
		Start:    start,
		End:      end,
		Prev:     string(prev),
		Next:     string(next),
	})
}

// handleReport builds a report for an explicit date range. A period id
// may be given instead of start and end.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var start, end time.Time
	if pid := q.Get("periodId"); pid != "" {
		var err error
		start, end, err = s.periods.Range(period.ID(pid))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid periodId")
			return
		}
	} else {
		var err error
		start, err = parseDate(q.Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start date")
			return
		}
		end, err = parseDate(q.Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end date")
			return
		}
		end = end.Add(24*time.Hour - time.Millisecond)
	}

	g := report.Granularity(q.Get("granularity"))
	key := start.Format("2006-01-02") + "|" + end.Format("2006-01-02") + "|" + string(g)

	if cached, found := s.reportCache.Get(key); found {
		reportCacheHits.Inc()
		writeJSON(w, http.StatusOK, cached)
		return
	}
	reportCacheMisses.Inc()

	buildStart := time.Now()
	rep, err := s.reports.BuildRange(r.Context(), start, end, g)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reportBuildDuration.Observe(time.Since(buildStart).Seconds())

	s.reportCache.Set(key, rep)
	writeJSON(w, http.StatusOK, rep)
}

// handleCurrentReport builds the report for the period containing now.
func (s *Server) handleCurrentReport(w http.ResponseWriter, r *http.Request) {
	const key = "current"

	if cached, found := s.currentCache.Get(key); found {
		reportCacheHits.Inc()
		writeJSON(w, http.StatusOK, cached)
		return
	}
	reportCacheMisses.Inc()

	buildStart := time.Now()
	rep, err := s.reports.BuildCurrentPeriod(r.Context(), time.Now().UTC())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	reportBuildDuration.Observe(time.Since(buildStart).Seconds())

	s.currentCache.Set(key, rep)
	writeJSON(w, http.StatusOK, rep)
}

type compareRequest struct {
	Spans []compareSpan `json:"spans"`
}

type compareSpan struct {
	Label string `json:"label"`
	Start string `json:"start"` // YYYY-MM-DD
	End   string `json:"end"`   // YYYY-MM-DD
}

// handleCompareReport builds one trend point per requested span, e.g.
// this month against the previous two.
func (s *Server) handleCompareReport(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Spans) == 0 {
		writeError(w, http.StatusBadRequest, "at least one span required")
		return
	}

	spans := make([]report.Span, 0, len(req.Spans))
	for _, sp := range req.Spans {
		start, err := parseDate(sp.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid span start date")
			return
		}
		end, err := parseDate(sp.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid span end date")
			return
		}
		spans = append(spans, report.Span{
			Label: sanitizeInput(sp.Label),
			Start: start,
			End:   end.Add(24*time.Hour - time.Millisecond),
		})
	}

	rep, err := s.reports.Compare(r.Context(), spans)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
