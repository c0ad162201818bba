package matching

import (
	"fmt"
	"math"
)

// Config holds the weights of the three score components and the minimum
// score a pair needs to be suggested. Weights must add up to 1.
type Config struct {
	AmountWeight      float64 `json:"amount_weight"`
	DateWeight        float64 `json:"date_weight"`
	DescriptionWeight float64 `json:"description_weight"`
	Threshold         float64 `json:"threshold"`
}

func DefaultConfig() Config {
	return Config{
		AmountWeight:      0.5,
		DateWeight:        0.3,
		DescriptionWeight: 0.2,
		Threshold:         60,
	}
}

func (c Config) Validate() error {
	if c.AmountWeight < 0 || c.DateWeight < 0 || c.DescriptionWeight < 0 {
		return fmt.Errorf("matching weights must not be negative")
	}
	sum := c.AmountWeight + c.DateWeight + c.DescriptionWeight
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("matching weights must sum to 1, got %.4f", sum)
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("matching threshold must be within 0-100, got %.2f", c.Threshold)
	}
	return nil
}
