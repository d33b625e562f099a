package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"golang.org/x/term"

	"github.com/wasmedge/wasmedgeup/internal/binary"
)

const progressRedraw = 100 * time.Millisecond

// downloadBar draws a one-line progress bar for a download. It only draws
// to an interactive terminal; elsewhere every method is a no-op.
type downloadBar struct {
	out   io.Writer
	label string
	bar   progress.Model

	mu    sync.Mutex
	drawn time.Time
	live  bool
}

func newDownloadBar(out io.Writer, label string, disabled bool) *downloadBar {
	b := &downloadBar{out: out, label: label}
	if disabled || !isTerminal(out) {
		return b
	}
	b.bar = progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
	b.live = true
	return b
}

// Func returns the callback handed to the downloader, or nil when the bar
// is not drawn.
func (b *downloadBar) Func() binary.ProgressFunc {
	if !b.live {
		return nil
	}
	return b.update
}

func (b *downloadBar) update(written, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.Sub(b.drawn) < progressRedraw && written != total {
		return
	}
	b.drawn = now

	if total <= 0 {
		fmt.Fprintf(b.out, "\r%s %s", b.label, formatBytes(written))
		return
	}
	fmt.Fprintf(b.out, "\r%s %s %s", b.label, b.bar.ViewAs(float64(written)/float64(total)), formatBytes(written))
}

// Done ends the bar's line.
func (b *downloadBar) Done() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.live && !b.drawn.IsZero() {
		fmt.Fprintln(b.out)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGT"[exp])
}
