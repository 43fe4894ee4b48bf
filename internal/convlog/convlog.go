// Package convlog is a small leveled text logger modelled on the
// logit/croak/logEnable trio used to drive reposurgeon's diagnostic
// output: a bitmask of channels gates what gets written, and every
// Logf line carries an RFC3339 timestamp when writing to a real file
// (Warnf lines carry none).
package convlog

// SPDX-License-Identifier: BSD-2-Clause

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Channel is a bit in the log mask. Multiple channels can be enabled
// at once by OR-ing them together.
type Channel uint

const (
	// Commands logs every subprocess invocation (fast-import spawns, git init).
	Commands Channel = 1 << iota
	// Shuffle logs path-mapping decisions, branch-origin resolution.
	Shuffle
	// Progress logs revision-by-revision progress.
	Progress
	// Warn logs recoverable irregularities: dropped paths, unmapped directories.
	Warn
)

// Logger writes gated, timestamped diagnostic lines to a writer.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	mask    Channel
	counter uint64
}

// New returns a Logger writing to out, enabled for the channels in mask.
func New(out io.Writer, mask Channel) *Logger {
	if out == nil {
		out = os.Stderr
	}
	return &Logger{out: out, mask: mask}
}

// Enabled reports whether any of the given channels are active.
func (l *Logger) Enabled(ch Channel) bool {
	return l.mask&ch != 0
}

// Logf writes a line on the given channel, dropping it if that channel
// is not enabled.
func (l *Logger) Logf(ch Channel, format string, args ...interface{}) {
	if !l.Enabled(ch) {
		return
	}
	content := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	leader := "svn-lfs-export"
	if _, ok := l.out.(*os.File); ok {
		leader = time.Now().UTC().Format(time.RFC3339)
	}
	fmt.Fprintf(l.out, "%s: %s\n", leader, content)
	l.counter++
}

// Warnf always writes to the Warn channel, regardless of mask, mirroring
// croak's behaviour of always surfacing operator-facing warnings.
func (l *Logger) Warnf(format string, args ...interface{}) {
	content := fmt.Sprintf(format, args...)
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "svn-lfs-export: warning: %s\n", content)
	l.counter++
}

// Count returns the number of lines written so far.
func (l *Logger) Count() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counter
}
