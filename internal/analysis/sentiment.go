package analysis

import (
	"fmt"
	"strings"
	"unicode"
)

// Sentiment labels.
const (
	Positive = "Positive"
	Negative = "Negative"
	Neutral  = "Neutral"
)

// SentimentCounts aggregates article sentiment labels.
type SentimentCounts struct {
	Positive int `json:"Positive"`
	Negative int `json:"Negative"`
	Neutral  int `json:"Neutral"`
}

// Add counts one normalized label.
func (c *SentimentCounts) Add(label string) {
	switch label {
	case Positive:
		c.Positive++
	case Negative:
		c.Negative++
	default:
		c.Neutral++
	}
}

// Total is the number of counted labels.
func (c SentimentCounts) Total() int {
	return c.Positive + c.Negative + c.Neutral
}

func (c SentimentCounts) String() string {
	return fmt.Sprintf("Positive: %d, Negative: %d, Neutral: %d", c.Positive, c.Negative, c.Neutral)
}

// NormalizeLabel maps a model reply to one of the three labels. The first
// word naming a label wins, case-insensitively, so "Sentiment: Negative"
// is Negative; a reply naming no label is Neutral.
func NormalizeLabel(reply string) string {
	words := strings.FieldsFunc(reply, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, word := range words {
		switch strings.ToLower(word) {
		case "positive":
			return Positive
		case "negative":
			return Negative
		case "neutral":
			return Neutral
		}
	}
	return Neutral
}
