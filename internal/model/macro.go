package model

// BreadthClass labels the equal-weight vs cap-weight ratio.
type BreadthClass string

const (
	BreadthHealthy BreadthClass = "HEALTHY"
	BreadthNarrow  BreadthClass = "NARROW"
	BreadthNeutral BreadthClass = "NEUTRAL"
)

// BreadthResult is the rally-health reading.
type BreadthResult struct {
	Ratio float64      `json:"ratio"`
	Class BreadthClass `json:"class"`
}

// Label returns the human description of the class.
func (b BreadthResult) Label() string {
	switch b.Class {
	case BreadthHealthy:
		return "broad rally"
	case BreadthNarrow:
		return "top-heavy rally"
	default:
		return "neutral"
	}
}

// VIXTier is the fear gauge bucket.
type VIXTier string

const (
	VIXCalm     VIXTier = "CALM"
	VIXNormal   VIXTier = "NORMAL"
	VIXElevated VIXTier = "ELEVATED"
)

// MacroReading bundles the independent macro indicators. Nil pointers mean
// the underlying series was unavailable for this cycle.
type MacroReading struct {
	Breadth    *BreadthResult `json:"breadth,omitempty"`
	VIX        *float64       `json:"vix,omitempty"`
	VIXTier    VIXTier        `json:"vix_tier,omitempty"`
	YieldLast  *float64       `json:"yield_last,omitempty"`
	YieldDelta *float64       `json:"yield_delta,omitempty"`
	YieldShock bool           `json:"yield_shock"`
}
