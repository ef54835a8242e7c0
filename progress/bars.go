package progress

import (
	"io"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// Bars renders each Init as a new terminal progress bar.
type Bars struct {
	mu  sync.Mutex
	p   *mpb.Progress
	bar *mpb.Bar
}

func NewBars(w io.Writer) *Bars {
	return &Bars{p: mpb.New(mpb.WithWidth(60), mpb.WithOutput(w))}
}

func (b *Bars) Init(total int, label string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		b.bar.Abort(false)
	}
	b.bar = b.p.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding("-").Rbound("|"),
		mpb.PrependDecorators(
			decor.Name(label, decor.WC{W: len(label) + 1, C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WC{W: 5}), "done"),
		),
	)
}

func (b *Bars) OnProgress(current int, _ string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar != nil {
		b.bar.SetCurrent(int64(current))
	}
}

// Wait flushes the bars. Call it once the operation finished.
func (b *Bars) Wait() {
	b.mu.Lock()
	if b.bar != nil && !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.mu.Unlock()
	b.p.Wait()
}
