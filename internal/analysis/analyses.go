package analysis

import "context"

// SWOTResponse is the result of a SWOT analysis.
type SWOTResponse struct {
	Industry             string   `json:"industry"`
	BusinessDescription  string   `json:"business_description"`
	GeneratedAssumptions string   `json:"generated_assumptions"`
	SWOTResult           string   `json:"swot_result"`
	Warnings             []string `json:"warnings,omitempty"`
}

// SWOT generates industry assumptions, then a SWOT analysis built on them.
func (s *Service) SWOT(ctx context.Context, req SWOTRequest) (*SWOTResponse, error) {
	r := s.begin(CollectionSWOT)
	if err := req.Validate(); err != nil {
		return nil, s.finish(r, err)
	}

	prior := s.retrieve(ctx, r, Fingerprint{Industry: req.Industry, BusinessDescription: req.BusinessDescription})

	assumptions, err := s.generate(ctx, "generate assumptions", AssumptionsPrompt(req.Industry))
	if err != nil {
		return nil, s.finish(r, err)
	}
	result, err := s.generate(ctx, "generate swot analysis", SWOTPrompt(req, assumptions, prior))
	if err != nil {
		return nil, s.finish(r, err)
	}

	resp := &SWOTResponse{
		Industry:             req.Industry,
		BusinessDescription:  req.BusinessDescription,
		GeneratedAssumptions: assumptions,
		SWOTResult:           result,
	}
	s.persist(ctx, r, req, resp)
	resp.Warnings = r.warnings
	return resp, s.finish(r, nil)
}

// MarketSizeResponse is the result of a market size estimate.
type MarketSizeResponse struct {
	Industry            string   `json:"industry"`
	Region              string   `json:"region"`
	TargetMarket        string   `json:"target_market"`
	CustomerSegment     string   `json:"customer_segment"`
	AverageSellingPrice float64  `json:"average_selling_price"`
	MarketSizeResult    string   `json:"market_size_result"`
	Warnings            []string `json:"warnings,omitempty"`
}

// MarketSize estimates TAM, SAM and SOM.
func (s *Service) MarketSize(ctx context.Context, req MarketSizeRequest) (*MarketSizeResponse, error) {
	r := s.begin(CollectionMarketSize)
	if err := req.Validate(); err != nil {
		return nil, s.finish(r, err)
	}

	prior := s.retrieve(ctx, r, Fingerprint{Industry: req.Industry, TargetMarket: req.TargetMarket})

	result, err := s.generate(ctx, "generate market size estimate", MarketSizePrompt(req, prior))
	if err != nil {
		return nil, s.finish(r, err)
	}

	resp := &MarketSizeResponse{
		Industry:            req.Industry,
		Region:              req.Region,
		TargetMarket:        req.TargetMarket,
		CustomerSegment:     req.CustomerSegment,
		AverageSellingPrice: req.AverageSellingPrice,
		MarketSizeResult:    result,
	}
	s.persist(ctx, r, req, resp)
	resp.Warnings = r.warnings
	return resp, s.finish(r, nil)
}

// BusinessModelResponse is the result of a business model recommendation.
type BusinessModelResponse struct {
	Industry            string   `json:"industry"`
	TargetMarket        string   `json:"target_market"`
	BusinessDescription string   `json:"business_description"`
	BusinessModelResult string   `json:"business_model_result"`
	Warnings            []string `json:"warnings,omitempty"`
}

// BusinessModel recommends monetization models.
func (s *Service) BusinessModel(ctx context.Context, req BusinessModelRequest) (*BusinessModelResponse, error) {
	r := s.begin(CollectionBusinessModel)
	if err := req.Validate(); err != nil {
		return nil, s.finish(r, err)
	}

	prior := s.retrieve(ctx, r, Fingerprint{
		Industry:            req.Industry,
		BusinessDescription: req.BusinessDescription,
		TargetMarket:        req.TargetMarket,
	})

	result, err := s.generate(ctx, "generate business model", BusinessModelPrompt(req, prior))
	if err != nil {
		return nil, s.finish(r, err)
	}

	resp := &BusinessModelResponse{
		Industry:            req.Industry,
		TargetMarket:        req.TargetMarket,
		BusinessDescription: req.BusinessDescription,
		BusinessModelResult: result,
	}
	s.persist(ctx, r, req, resp)
	resp.Warnings = r.warnings
	return resp, s.finish(r, nil)
}
