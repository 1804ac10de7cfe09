package strategy

import (
	"testing"

	"github.com/raykavin/fibscan/pkg/core"
	"github.com/raykavin/fibscan/pkg/indicator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// barsWithHighs keeps low and close at 90 so a bar touches every level between 90 and its high
func barsWithHighs(highs ...float64) core.Bars {
	bars := core.Bars{
		Close: make(core.Series[float64], len(highs)),
		High:  highs,
		Low:   make(core.Series[float64], len(highs)),
	}
	for i := range highs {
		bars.Close[i] = 90
		bars.Low[i] = 90
	}
	return bars
}

func TestCheck(t *testing.T) {
	// 0.01=119.8 0.236=115.28 0.382=112.36 0.5=110 0.618=107.64 0.786=104.28 1.0=100
	levels := indicator.LongLevels(120, 100)

	tests := []struct {
		name   string
		highs  []float64
		ok     bool
		failed int
	}{
		{name: "ordered touches", highs: []float64{100, 106, 111, 114, 117, 120}, ok: true, failed: -1},
		{name: "missing 0.618 touch", highs: []float64{100, 106, 106, 114, 117, 120}, failed: 2},
		{name: "0.618 touched before 0.786", highs: []float64{100, 111, 106, 114, 117, 120}, failed: 3},
		{name: "bar reaching the forbidden level", highs: []float64{100, 106, 111, 114, 120, 120}, failed: 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bars := barsWithHighs(tc.highs...)
			failed, ok := Check(bars, levels, 0, len(tc.highs)-1, DefaultChain)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.failed, failed)
			assert.Equal(t, tc.ok, Validate(bars, levels, 0, len(tc.highs)-1, DefaultChain))
		})
	}
}

func TestCheck_EachTouchRequired(t *testing.T) {
	levels := indicator.LongLevels(120, 100)
	touches := []float64{100, 106, 111, 114, 117, 120}
	require.True(t, Validate(barsWithHighs(touches...), levels, 0, len(touches)-1, DefaultChain))

	tests := []struct {
		ratio  core.Ratio
		bar    int
		failed int
	}{
		{ratio: core.Ratio0382, bar: 4, failed: 2},
		{ratio: core.Ratio05, bar: 3, failed: 2},
		{ratio: core.Ratio0618, bar: 2, failed: 2},
		{ratio: core.Ratio0786, bar: 1, failed: 3},
		{ratio: core.Ratio1, bar: 0, failed: 4},
	}

	for _, tc := range tests {
		t.Run(tc.ratio.String(), func(t *testing.T) {
			highs := append([]float64(nil), touches...)
			// 95 is below every level
			highs[tc.bar] = 95

			failed, ok := Check(barsWithHighs(highs...), levels, 0, len(highs)-1, DefaultChain)
			assert.False(t, ok)
			assert.Equal(t, tc.failed, failed)
		})
	}
}

func TestCheck_Window(t *testing.T) {
	levels := indicator.LongLevels(120, 100)
	bars := barsWithHighs(100, 106, 111, 114, 117, 120, 95, 95)

	// touches outside [left, right] do not count
	assert.False(t, Validate(bars, levels, 1, 5, DefaultChain))
	assert.False(t, Validate(bars, levels, 0, 3, DefaultChain))

	// out of range bounds are clamped
	assert.True(t, Validate(bars, levels, -4, 50, DefaultChain))
}

func TestCheck_MissingLevel(t *testing.T) {
	bars := barsWithHighs(100, 106, 111, 114, 117, 120)

	levels := indicator.LongLevels(120, 100)
	delete(levels, core.Ratio0236)

	failed, ok := Check(bars, levels, 0, 5, DefaultChain)
	require.False(t, ok)
	assert.Equal(t, 1, failed)

	_, ok = Check(bars, core.Levels{}, 0, 5, DefaultChain)
	assert.False(t, ok)
}

func TestCheck_ShortLevels(t *testing.T) {
	// 0.01=88.73 0.236=93.928 0.382=97.286 0.5=100 0.618=102.714 0.786=106.578 1.0=111.5
	levels := indicator.ShortLevels(88.5, 111.5)

	bars := core.Bars{
		High:  core.Series[float64]{111.5, 107, 103, 101, 98, 89},
		Low:   core.Series[float64]{108, 106, 101, 99, 96, 88.5},
		Close: core.Series[float64]{109, 106.5, 102, 100, 97, 89},
	}
	assert.True(t, Validate(bars, levels, 0, 5, DefaultChain))
}
