package core

// Label classifies a zigzag pivot against the pivots found before it
type Label string

const (
	LabelHH Label = "HH" // higher high
	LabelLH Label = "LH" // lower high
	LabelLL Label = "LL" // lower low
	LabelHL Label = "HL" // higher low
)

// IsHigh reports whether the label belongs to a swing high
func (l Label) IsHigh() bool { return l == LabelHH || l == LabelLH }

// IsLow reports whether the label belongs to a swing low
func (l Label) IsLow() bool { return l == LabelLL || l == LabelHL }

// Pivot is a swing point found by the zigzag detector
type Pivot struct {
	Index int     `json:"index"`
	Price float64 `json:"price"`
	Label Label   `json:"label"`
}
