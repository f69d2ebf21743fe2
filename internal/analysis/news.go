package analysis

import (
	"context"

	"github.com/khanglvm/cofounder-hub/internal/websearch"
)

// NewsResponse is the result of a news overview.
type NewsResponse struct {
	Sector             string          `json:"sector"`
	NewsOverviewResult string          `json:"news_overview_result"`
	NumArticles        int             `json:"num_articles"`
	SentimentCounts    SentimentCounts `json:"sentiment_counts"`
	Warnings           []string        `json:"warnings,omitempty"`
}

// News searches recent articles about a sector, classifies the sentiment
// of each and generates an overview. A failed search yields zero articles
// and the overview is still generated.
func (s *Service) News(ctx context.Context, req NewsRequest) (*NewsResponse, error) {
	r := s.begin(CollectionNews)
	if err := req.Validate(); err != nil {
		return nil, s.finish(r, err)
	}

	prior := s.retrieve(ctx, r, Fingerprint{Sector: req.Sector})

	var articles []websearch.Result
	if s.searcher != nil {
		found, err := s.searcher.News(ctx, req.Sector, s.maxArticles)
		if err != nil {
			s.logger.Warn("news search failed, continuing without articles", "sector", req.Sector, "error", err)
			s.observer.SearchFailed("news")
			r.warn(WarnSearch)
		} else {
			articles = found
			s.recordSignal(ctx, "duckduckgo-news", req.Sector, found)
		}
	}

	counts := s.classify(ctx, articles)
	if err := ctx.Err(); err != nil {
		return nil, s.finish(r, err)
	}

	result, err := s.generate(ctx, "generate news overview", NewsOverviewPrompt(req.Sector, counts, articles, prior))
	if err != nil {
		return nil, s.finish(r, err)
	}

	resp := &NewsResponse{
		Sector:             req.Sector,
		NewsOverviewResult: result,
		NumArticles:        len(articles),
		SentimentCounts:    counts,
	}
	s.persist(ctx, r, req, resp)
	resp.Warnings = r.warnings
	return resp, s.finish(r, nil)
}

// classify labels every article body. A failed classification counts as
// Neutral.
func (s *Service) classify(ctx context.Context, articles []websearch.Result) SentimentCounts {
	labels := make([]string, len(articles))
	s.sentimentPool.run(ctx, len(articles), func(ctx context.Context, i int) {
		reply, err := s.gen.Generate(ctx, SentimentPrompt(articles[i].Body))
		if err != nil {
			s.logger.Warn("sentiment classification failed, counting as neutral",
				"article", articles[i].Title, "error", err)
			labels[i] = Neutral
			return
		}
		labels[i] = NormalizeLabel(reply)
	})

	var counts SentimentCounts
	for _, l := range labels {
		counts.Add(l)
	}
	return counts
}
