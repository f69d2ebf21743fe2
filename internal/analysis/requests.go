/*
Package analysis builds prompts for the five business analyses and runs
them through the retrieval-augmented generation pipeline.

Each analysis validates a typed request, retrieves prior analyses of the
same type as context, generates the result (two chained calls for SWOT,
per-article sentiment plus an overview for news) and records the exchange
in the history store. Retrieval, persistence and web search are
best-effort: their failures become warnings on the response.
*/
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Collection names, one per analysis type.
const (
	CollectionSWOT          = "swot_analysis"
	CollectionMarketSize    = "market_size_estimation"
	CollectionBusinessModel = "business_model_recommendation"
	CollectionCompetitors   = "competitor_analysis"
	CollectionNews          = "news_overview"
)

// Collections lists every collection in display order.
var Collections = []string{
	CollectionSWOT,
	CollectionMarketSize,
	CollectionBusinessModel,
	CollectionCompetitors,
	CollectionNews,
}

// IsCollection reports whether name is a known collection.
func IsCollection(name string) bool {
	for _, c := range Collections {
		if c == name {
			return true
		}
	}
	return false
}

// ValidationError lists the required request fields that were missing.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// requireFields takes name/value pairs and reports the blank ones.
func requireFields(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if strings.TrimSpace(pairs[i+1]) == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// SWOTRequest asks for a SWOT analysis of a business idea.
type SWOTRequest struct {
	BusinessDescription string `json:"business_description"`
	Industry            string `json:"industry"`
}

// Validate checks the required fields.
func (r SWOTRequest) Validate() error {
	return requireFields("business_description", r.BusinessDescription, "industry", r.Industry)
}

// MarketSizeRequest asks for TAM/SAM/SOM estimates.
type MarketSizeRequest struct {
	Industry            string  `json:"industry"`
	Region              string  `json:"region"`
	TargetMarket        string  `json:"target_market"`
	CustomerSegment     string  `json:"customer_segment"`
	AverageSellingPrice float64 `json:"average_selling_price"`
}

// UnmarshalJSON accepts average_selling_price as a JSON number or a
// numeric string. An empty string or null leaves it at zero.
func (r *MarketSizeRequest) UnmarshalJSON(data []byte) error {
	type plain MarketSizeRequest
	aux := struct {
		*plain
		AverageSellingPrice json.RawMessage `json:"average_selling_price"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	price, err := parsePrice(aux.AverageSellingPrice)
	if err != nil {
		return err
	}
	r.AverageSellingPrice = price
	return nil
}

func parsePrice(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	if raw[0] != '"' {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, fmt.Errorf("average_selling_price: %w", err)
		}
		return f, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		return 0, fmt.Errorf("average_selling_price: %w", err)
	}
	str = strings.TrimSpace(str)
	if str == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(str, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("average_selling_price: %q is not a number", str)
	}
	return f, nil
}

// Validate checks the required fields.
func (r MarketSizeRequest) Validate() error {
	return requireFields("industry", r.Industry, "region", r.Region, "target_market", r.TargetMarket)
}

// BusinessModelRequest asks for monetization model recommendations.
type BusinessModelRequest struct {
	Industry            string `json:"industry"`
	TargetMarket        string `json:"target_market"`
	BusinessDescription string `json:"business_description"`
}

// Validate checks the required fields.
func (r BusinessModelRequest) Validate() error {
	return requireFields("industry", r.Industry, "target_market", r.TargetMarket,
		"business_description", r.BusinessDescription)
}

// CompetitorRequest names up to three competitors. A competitor may be a
// name or an https URL of its website.
type CompetitorRequest struct {
	Competitor1 string `json:"competitor_1"`
	Competitor2 string `json:"competitor_2"`
	Competitor3 string `json:"competitor_3"`
}

// Validate checks the required fields.
func (r CompetitorRequest) Validate() error {
	return requireFields("competitor_1", r.Competitor1)
}

// Names returns the non-blank competitors in order.
func (r CompetitorRequest) Names() []string {
	var names []string
	for _, c := range []string{r.Competitor1, r.Competitor2, r.Competitor3} {
		if c = strings.TrimSpace(c); c != "" {
			names = append(names, c)
		}
	}
	return names
}

// NewsRequest asks for an overview of recent news in a sector.
type NewsRequest struct {
	Sector string `json:"sector"`
}

// Validate checks the required fields.
func (r NewsRequest) Validate() error {
	return requireFields("sector", r.Sector)
}

// Fingerprint is the retrieval query derived from request fields.
type Fingerprint struct {
	Industry            string
	BusinessDescription string
	TargetMarket        string
	Sector              string
	Competitors         []string
}

func (f Fingerprint) String() string {
	s := fmt.Sprintf("Industry: %s, Business Description: %s, Target Market: %s, Sector: %s",
		f.Industry, f.BusinessDescription, f.TargetMarket, f.Sector)
	if len(f.Competitors) > 0 {
		s += ", Competitors: " + strings.Join(f.Competitors, ", ")
	}
	return s
}
