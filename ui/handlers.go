package ui

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"flakewatch/app"
	"flakewatch/domain/core"
	"flakewatch/ports"
)

// query parses the shared granularity/since/entity query parameters.
func (s *Server) query(r *http.Request) (core.Granularity, ports.RunFilter, error) {
	granularity := s.defaultGranularity
	if raw := r.URL.Query().Get("granularity"); raw != "" {
		parsed, err := core.ParseGranularity(raw)
		if err != nil {
			return "", ports.RunFilter{}, err
		}
		granularity = parsed
	}

	filter := ports.RunFilter{EntityID: r.URL.Query().Get("entity")}
	if raw := r.URL.Query().Get("since"); raw != "" {
		window, err := core.ParseGranularity(raw)
		if err != nil {
			return "", ports.RunFilter{}, err
		}
		filter.Since = window.Lookback(time.Now().UTC())
	}
	return granularity, filter, nil
}

func (s *Server) handleStability(w http.ResponseWriter, r *http.Request) {
	granularity, filter, err := s.query(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := s.service.Analyze(r.Context(), filter, granularity)
	if err != nil {
		s.logger.Error("analysis failed: %v", err)
		http.Error(w, "analysis failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, report)
}

func (s *Server) handleEntityDetail(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	granularity, filter, err := s.query(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.service.AnalyzeEntity(r.Context(), entity, filter.Since, granularity)
	if err != nil {
		if core.IsMissingData(err) {
			http.Error(w, fmt.Sprintf("no eligible data for entity %s", entity), http.StatusNotFound)
			return
		}
		s.logger.Error("entity analysis failed for %s: %v", entity, err)
		http.Error(w, "analysis failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, result)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	granularity, filter, err := s.query(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := s.service.Analyze(r.Context(), filter, granularity)
	if err != nil {
		s.logger.Error("analysis failed: %v", err)
		http.Error(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", report); err != nil {
		s.logger.Error("template render failed: %v", err)
	}
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	granularity, filter, err := s.query(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	report, err := s.service.Analyze(r.Context(), filter, granularity)
	if err != nil {
		s.logger.Error("analysis failed: %v", err)
		http.Error(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	md := renderMarkdown(report)
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(markdown.ToHTML([]byte(md), p, renderer))
}

// renderMarkdown builds the summary report, most significant entities first.
func renderMarkdown(report *app.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Failure-rate stability report\n\n")
	fmt.Fprintf(&b, "Generated %s, %s buckets, %d entities.\n\n",
		report.GeneratedAt.Format(time.RFC3339), report.Granularity, len(report.Results))

	b.WriteString("| Entity | Stat | df | p-value | Verdict | Failure rate | Spike |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	for _, res := range report.Results {
		pValue := "undefined"
		if res.PValue != nil {
			pValue = fmt.Sprintf("%.4g", *res.PValue)
		}
		fmt.Fprintf(&b, "| %s | %.3f | %d | %s | %s | %.1f%% | %+.1f%% |\n",
			res.EntityID, res.ChiSquareStat, res.DegreesOfFreedom, pValue,
			res.Verdict, res.FailureRate*100, res.Spike*100)
	}
	return b.String()
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}
