package analysis

import (
	"context"
	"strings"

	"github.com/khanglvm/cofounder-hub/internal/websearch"
)

// CompetitorResponse is the result of a competitor analysis.
type CompetitorResponse struct {
	Competitor1              string   `json:"competitor_1"`
	Competitor2              string   `json:"competitor_2"`
	Competitor3              string   `json:"competitor_3"`
	CompetitorAnalysisResult string   `json:"competitor_analysis_result"`
	Warnings                 []string `json:"warnings,omitempty"`
}

// Competitors compares up to three competitors using web search results
// and, for competitors given as URLs, their website content.
func (s *Service) Competitors(ctx context.Context, req CompetitorRequest) (*CompetitorResponse, error) {
	r := s.begin(CollectionCompetitors)
	if err := req.Validate(); err != nil {
		return nil, s.finish(r, err)
	}

	prior := s.retrieve(ctx, r, Fingerprint{Competitors: req.Names()})

	evidence := make([]CompetitorEvidence, 0, 3)
	for _, name := range []string{req.Competitor1, req.Competitor2, req.Competitor3} {
		name = strings.TrimSpace(name)
		if name == "" {
			evidence = append(evidence, CompetitorEvidence{})
			continue
		}
		evidence = append(evidence, s.gatherEvidence(ctx, r, name))
	}

	result, err := s.generate(ctx, "generate competitor analysis", CompetitorPrompt(evidence, prior))
	if err != nil {
		return nil, s.finish(r, err)
	}

	resp := &CompetitorResponse{
		Competitor1:              req.Competitor1,
		Competitor2:              req.Competitor2,
		Competitor3:              req.Competitor3,
		CompetitorAnalysisResult: result,
	}
	s.persist(ctx, r, req, resp)
	resp.Warnings = r.warnings
	return resp, s.finish(r, nil)
}

// gatherEvidence searches for a competitor and fetches its website when
// the competitor is given as a URL. Failures leave the evidence empty.
func (s *Service) gatherEvidence(ctx context.Context, r *run, name string) CompetitorEvidence {
	ev := CompetitorEvidence{Name: name}

	if s.searcher != nil {
		results, err := s.searcher.Text(ctx, name, s.searchResults)
		if err != nil {
			s.logger.Warn("competitor search failed", "competitor", name, "error", err)
			s.observer.SearchFailed("text")
			r.warn(WarnSearch)
		} else {
			ev.Results = results
			s.recordSignal(ctx, "duckduckgo-text", name, results)
		}
	}

	if s.fetcher != nil && websearch.IsURL(name) {
		page, err := s.fetcher.Fetch(ctx, strings.TrimSpace(name))
		if err != nil {
			s.logger.Warn("competitor website fetch failed", "url", name, "error", err)
		} else {
			ev.Website = truncateRunes(page.Markdown, s.websiteRunes)
		}
	}

	return ev
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
