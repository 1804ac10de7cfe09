package fibscan

import (
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// cycleProgress draws one bar per scan cycle
type cycleProgress struct {
	mu    sync.Mutex
	out   io.Writer
	bar   *progressbar.ProgressBar
	last  int64
	total int64
}

func newCycleProgress(out io.Writer) *cycleProgress {
	return &cycleProgress{out: out}
}

// update is called by the workers with the cycle counters, possibly out of order. The first
// update after a completed cycle, or with a different total, starts a new bar.
func (p *cycleProgress) update(scanned, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || p.last >= p.total || total != p.total {
		p.bar = progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("scanning"),
			progressbar.OptionShowCount(),
		)
		p.last = 0
		p.total = total
	}
	if scanned <= p.last {
		return
	}

	p.last = scanned
	_ = p.bar.Set64(scanned)
}
