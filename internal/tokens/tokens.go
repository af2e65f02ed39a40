// Package tokens estimates prompt sizes for trace records and results.
package tokens

import (
	"github.com/tjfontaine/clockwork-muse/internal/domain"
)

// perMessageOverhead approximates role markers and separators.
const perMessageOverhead = 4

// Counter counts tokens with tiktoken and falls back to a character
// estimate when encoding fails.
type Counter struct {
	tiktoken *TiktokenCounter
	fallback *Estimator
}

// NewCounter creates a counter.
func NewCounter() *Counter {
	return &Counter{
		tiktoken: NewTiktokenCounter(),
		fallback: NewEstimator(),
	}
}

// Count returns the token count of text for model.
func (c *Counter) Count(model, text string) int {
	if n, err := c.tiktoken.Count(model, text); err == nil {
		return n
	}
	return c.fallback.Count(text)
}

// CountMessages returns the prompt size of a conversation.
func (c *Counter) CountMessages(model string, messages []domain.Message) int {
	total := 0
	for _, m := range messages {
		total += c.Count(model, m.Text()) + perMessageOverhead
	}
	return total
}

// Estimator provides token count estimation based on character count.
type Estimator struct {
	// CharsPerToken is the average characters per token (default: 4)
	CharsPerToken float64
}

// NewEstimator creates a new token estimator.
func NewEstimator() *Estimator {
	return &Estimator{
		CharsPerToken: 4.0,
	}
}

// Count estimates the token count of text.
func (e *Estimator) Count(text string) int {
	return int(float64(len(text)) / e.CharsPerToken)
}
