package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// progressView renders session callbacks on the terminal. On a TTY the
// progress line is redrawn in place; otherwise a line is printed for every
// track and every tenth percent.
type progressView struct {
	mu       sync.Mutex
	out      io.Writer
	tty      bool
	track    int
	percent  float64
	lastStep int
	drawn    bool
}

func newProgressView(out io.Writer, tty bool) *progressView {
	return &progressView{out: out, tty: tty, lastStep: -1}
}

func (p *progressView) OnProgress(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.percent = percent
	if p.tty {
		p.redraw()
		return
	}
	if step := int(percent) / 10; step > p.lastStep {
		p.lastStep = step
		fmt.Fprintf(p.out, "progress %3.0f%%\n", percent)
	}
}

func (p *progressView) OnTrack(track int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.track = track
	if p.tty {
		p.redraw()
		return
	}
	fmt.Fprintf(p.out, "reading track %d\n", track)
}

func (p *progressView) OnWarning(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clear()
	fmt.Fprintf(p.out, "warning: %s\n", message)
	if p.tty {
		p.redraw()
	}
}

// Finish ends the in-place progress line.
func (p *progressView) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

func (p *progressView) redraw() {
	const width = 30
	filled := int(p.percent / 100 * width)
	bar := strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
	track := "-"
	if p.track > 0 {
		track = fmt.Sprintf("%02d", p.track)
	}
	fmt.Fprintf(p.out, "\r[%s] %5.1f%%  track %s", bar, p.percent, track)
	p.drawn = true
}

func (p *progressView) clear() {
	if p.tty && p.drawn {
		fmt.Fprint(p.out, "\r\x1b[2K")
		p.drawn = false
	}
}
