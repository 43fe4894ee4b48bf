// Package baton drives a terminal status line while a conversion runs,
// adapted from reposurgeon's twirly/progress baton: a rate-limited
// percentage display when attached to a terminal, and unadorned
// periodic log lines otherwise.
package baton

// SPDX-License-Identifier: BSD-2-Clause

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh/terminal"
)

const progressInterval = 1 * time.Second

// Baton reports "N of M" style progress for a long-running conversion.
type Baton struct {
	mu          sync.Mutex
	out         io.Writer
	interactive bool
	fd          int
	tag         string
	start       time.Time
	lastUpdate  time.Time
	expected    uint64
	count       uint64
}

// New returns a Baton writing to out. fd is the file descriptor backing
// out, used only to detect terminal width; pass -1 if out is not a file.
func New(out io.Writer, fd int) *Baton {
	b := &Baton{out: out, fd: fd}
	if fd >= 0 {
		b.interactive = terminal.IsTerminal(fd)
	}
	return b
}

// StartProgress begins a new "tag: N/expected" sequence.
func (b *Baton) StartProgress(tag string, expected uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tag = tag
	b.start = time.Now()
	b.lastUpdate = b.start
	b.expected = expected
	b.count = 0
}

// Bump advances the counter by one revision and renders if the rate
// limit allows, or unconditionally when the sequence completes.
func (b *Baton) Bump() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	now := time.Now()
	if now.Sub(b.lastUpdate) < progressInterval && b.count != b.expected {
		return
	}
	b.lastUpdate = now
	b.render()
}

// EndProgress finalises the sequence with a trailing newline.
func (b *Baton) EndProgress() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count = b.expected
	b.render()
	if b.interactive {
		fmt.Fprint(b.out, "\n")
	}
	b.tag = ""
}

func (b *Baton) render() {
	width := b.width()
	elapsed := time.Since(b.start).Round(time.Millisecond * 100)
	var pct float64
	if b.expected > 0 {
		pct = 100 * float64(b.count) / float64(b.expected)
	}
	line := fmt.Sprintf("%s: %d/%d (%.1f%%) %s", b.tag, b.count, b.expected, pct, elapsed)
	if len(line) > width {
		line = line[:width]
	}
	if b.interactive {
		fmt.Fprintf(b.out, "\r%s%s", line, strings.Repeat(" ", max(0, width-len(line))))
	} else {
		fmt.Fprintf(b.out, "%s\n", line)
	}
}

func (b *Baton) width() int {
	if b.fd >= 0 {
		if w, _, err := terminal.GetSize(b.fd); err == nil && w > 0 {
			return w
		}
	}
	return 80
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
