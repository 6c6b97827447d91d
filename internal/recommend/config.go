// internal/recommend/config.go
package recommend

import "fmt"

// Config contains the tunables of the recommendation engine.
type Config struct {
	// Shares define the target fraction of the requested limit each
	// personalized stage may fill. The trending fallback takes whatever
	// capacity is left.
	CategoryShare      float64 `json:"category_share"`
	TypeShare          float64 `json:"type_share"`
	CollaborativeShare float64 `json:"collaborative_share"`

	// HistorySize is how many recent activity records seed the
	// personalized stages.
	HistorySize int `json:"history_size"`

	// NeighborCap bounds collaborative-filtering neighbor discovery.
	NeighborCap int `json:"neighbor_cap"`

	// TrendingWindowDays is the popularity window for the fallback stage.
	TrendingWindowDays int `json:"trending_window_days"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		CategoryShare:      0.4,
		TypeShare:          0.3,
		CollaborativeShare: 0.2,
		HistorySize:        50,
		NeighborCap:        10,
		TrendingWindowDays: 30,
	}
}

// Validate rejects configs the engine cannot run with.
func (c Config) Validate() error {
	for name, share := range map[string]float64{
		"category_share":      c.CategoryShare,
		"type_share":          c.TypeShare,
		"collaborative_share": c.CollaborativeShare,
	} {
		if share <= 0 || share > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", name, share)
		}
	}
	if sum := c.CategoryShare + c.TypeShare + c.CollaborativeShare; sum > 1 {
		return fmt.Errorf("stage shares must not exceed 1.0 combined, got %v", sum)
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("history_size must be at least 1, got %d", c.HistorySize)
	}
	if c.NeighborCap < 1 {
		return fmt.Errorf("neighbor_cap must be at least 1, got %d", c.NeighborCap)
	}
	if c.TrendingWindowDays < 1 {
		return fmt.Errorf("trending_window_days must be at least 1, got %d", c.TrendingWindowDays)
	}
	return nil
}
