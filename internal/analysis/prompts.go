package analysis

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/khanglvm/cofounder-hub/internal/websearch"
)

// withContext appends retrieved prior analyses to a prompt.
func withContext(prompt, context string) string {
	return prompt + "\n\nPrior analyses for reference:\n" + context + "\n"
}

// AssumptionsPrompt asks for the market assumptions a SWOT analysis builds on.
func AssumptionsPrompt(industry string) string {
	return fmt.Sprintf(`As an expert business analyst, identify key market conditions, resource availability factors,
and potential competitive landscape elements relevant to the %s industry.
Provide these as a series of concise bullet points. Focus on assumptions a startup in this industry should consider.`, industry)
}

// SWOTPrompt builds the SWOT analysis prompt around generated assumptions.
func SWOTPrompt(req SWOTRequest, assumptions, context string) string {
	prompt := fmt.Sprintf(`Analyze the following business idea and provide a detailed SWOT analysis, taking into account the following industry assumptions:

Business Description: %s

Industry: %s

**Assumptions:**
%s

Include:
*   Strengths (internal advantages, considering the stated assumptions)
*   Weaknesses (internal disadvantages, considering the stated assumptions)
*   Opportunities (external factors that can be exploited, given the market assumptions)
*   Threats (external factors that can cause problems, given the market assumptions)

Provide a risk and opportunity assessment, considering potential regulatory, financial, and market risks, and how these risks are affected by the stated assumptions.

Format the output clearly with headings for each SWOT element.`, req.BusinessDescription, req.Industry, assumptions)
	return withContext(prompt, context)
}

// MarketSizePrompt builds the TAM/SAM/SOM estimation prompt. Customer
// segment and average selling price lines appear only when set.
func MarketSizePrompt(req MarketSizeRequest, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Estimate the Total Addressable Market (TAM), Serviceable Available Market (SAM), and Serviceable Obtainable Market (SOM)
for the %s industry in %s.

Target Market: %s`, req.Industry, req.Region, req.TargetMarket)

	if req.CustomerSegment != "" {
		fmt.Fprintf(&b, "\nCustomer Segment: %s", req.CustomerSegment)
	}
	if req.AverageSellingPrice != 0 {
		fmt.Fprintf(&b, "\nAverage Selling Price: %s USD", strconv.FormatFloat(req.AverageSellingPrice, 'f', -1, 64))
	}

	b.WriteString(`

Provide estimates in USD.
Explain the methodology and assumptions used to derive the estimates.

Also, provide a growth rate forecast for this market over the next 5 years.

Format the response with clear sections for:
1. Market Size Estimates (TAM, SAM, SOM)
2. Methodology and Assumptions
3. Growth Forecast`)

	return withContext(b.String(), context)
}

// BusinessModelPrompt builds the monetization recommendation prompt.
func BusinessModelPrompt(req BusinessModelRequest, context string) string {
	prompt := fmt.Sprintf(`Recommend suitable monetization models for a business in the %s industry, targeting %s.

Business Description: %s

Evaluate the revenue potential, scalability, and acquisition costs of each recommended model.
Suggest customer acquisition strategies (organic vs. paid) and optimal growth strategies based on market gaps.

Provide a detailed explanation of each recommended model and its suitability for this business.`,
		req.Industry, req.TargetMarket, req.BusinessDescription)
	return withContext(prompt, context)
}

// CompetitorEvidence is what was found about one competitor.
type CompetitorEvidence struct {
	Name    string
	Results []websearch.Result
	// Website is the readable text of the competitor's site, if fetched.
	Website string
}

func (e CompetitorEvidence) empty() bool {
	return len(e.Results) == 0 && e.Website == ""
}

// CompetitorPrompt builds the comparative analysis prompt. The first
// competitor is always included; later ones only with evidence.
func CompetitorPrompt(evidence []CompetitorEvidence, context string) string {
	var b strings.Builder
	b.WriteString("Analyze the following competitors and provide a comparative analysis, focusing on their strengths, weaknesses, and potential opportunities for differentiation:\n")

	for i, e := range evidence {
		if i > 0 && (e.Name == "" || e.empty()) {
			continue
		}
		fmt.Fprintf(&b, "\nCompetitor %d: %s\n", i+1, e.Name)
		b.WriteString("Search Results:")
		if len(e.Results) == 0 {
			b.WriteString(" none found\n")
		} else {
			b.WriteString("\n")
			for _, r := range e.Results {
				fmt.Fprintf(&b, "- %s (%s): %s\n", r.Title, r.URL, r.Body)
			}
		}
		if e.Website != "" {
			fmt.Fprintf(&b, "Website:\n%s\n", e.Website)
		}
	}

	b.WriteString(`
Provide a summary of each competitor's key strengths and weaknesses. Identify opportunities for differentiation based on market gaps and competitor weaknesses. Suggest niche marketing strategies for a new entrant.

The response should be well-structured and highly suitable for presentation.`)

	return withContext(b.String(), context)
}

// SentimentPrompt asks for a one-word sentiment label.
func SentimentPrompt(text string) string {
	return fmt.Sprintf(`Analyze the sentiment of the following text:

%s

Is the sentiment positive, negative, or neutral?  Respond with only one word: Positive, Negative, or Neutral.`, text)
}

// NewsOverviewPrompt builds the sector overview prompt from sentiment
// counts and article snippets.
func NewsOverviewPrompt(sector string, counts SentimentCounts, articles []websearch.Result, context string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `Provide a general overview of the %s sector based on the following recent news articles. Focus on identifying the most common themes, opportunities and trends.

Number of Articles: %d
Overall Sentiment: %s
Market size : `, sector, len(articles), counts)

	if len(articles) > 0 {
		b.WriteString("\nInclude the following search results:\n")
		for _, a := range articles {
			fmt.Fprintf(&b, "-%s: %s\n", orNA(a.Title), orNA(a.Body))
		}
	}

	return withContext(b.String(), context)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
