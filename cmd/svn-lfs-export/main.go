// Command svn-lfs-export drives the conversion core end to end: load a
// TOML config, open an SVN dumpfile revision source, and feed each
// revision to the emitter, which in turn drives one fast-import
// subprocess per destination repository. Flag handling follows the
// small option-struct-plus-flag.FlagSet style used throughout the
// teacher repo's own command entry points (mapper/repomapper.go,
// tool/repotool.go).
package main

// SPDX-License-Identifier: BSD-2-Clause

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jonathanharg/svn-lfs-export/internal/baton"
	"github.com/jonathanharg/svn-lfs-export/internal/config"
	"github.com/jonathanharg/svn-lfs-export/internal/convlog"
	"github.com/jonathanharg/svn-lfs-export/internal/emitter"
	"github.com/jonathanharg/svn-lfs-export/internal/svndump"
	"github.com/jonathanharg/svn-lfs-export/internal/writer"
)

type options struct {
	configPath    string
	revisionSpec  string
	exampleConfig bool
	outputDir     string
	fastImport    string
	svnEncoding   string
	exampleRules  bool
}

func parseArgs(args []string) (*options, error) {
	fs := flag.NewFlagSet("svn-lfs-export", flag.ContinueOnError)
	opts := &options{}
	fs.StringVar(&opts.configPath, "config", "config.toml", "path to the TOML configuration file")
	fs.StringVar(&opts.revisionSpec, "r", "", "revision range FIRST[:LAST|:HEAD] to convert")
	fs.StringVar(&opts.revisionSpec, "revision", "", "revision range FIRST[:LAST|:HEAD] to convert")
	fs.BoolVar(&opts.exampleConfig, "example-config", false, "print a sample configuration file and exit")
	fs.StringVar(&opts.outputDir, "output", ".", "directory under which destination repositories are created")
	fs.StringVar(&opts.fastImport, "fast-import-cmd", "", "override the git fast-import command line")
	fs.StringVar(&opts.svnEncoding, "svn-encoding", "", "IANA character encoding of svn:log/svn:author properties, if not already UTF-8")
	fs.BoolVar(&opts.exampleRules, "example-config-yaml", false, "print the sample configuration's rule list as YAML and exit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// revisionBound describes a FIRST[:LAST|:HEAD] range; last == -1 means HEAD.
type revisionBound struct {
	first, last int
}

func parseRevisionSpec(spec string) (revisionBound, error) {
	if spec == "" {
		return revisionBound{first: 0, last: -1}, nil
	}
	parts := strings.SplitN(spec, ":", 2)
	first, err := strconv.Atoi(parts[0])
	if err != nil {
		return revisionBound{}, fmt.Errorf("invalid revision spec %q: %w", spec, err)
	}
	if len(parts) == 1 {
		return revisionBound{first: first, last: first}, nil
	}
	if parts[1] == "HEAD" {
		return revisionBound{first: first, last: -1}, nil
	}
	last, err := strconv.Atoi(parts[1])
	if err != nil {
		return revisionBound{}, fmt.Errorf("invalid revision spec %q: %w", spec, err)
	}
	return revisionBound{first: first, last: last}, nil
}

func (b revisionBound) includes(rev int) bool {
	if rev < b.first {
		return false
	}
	if b.last >= 0 && rev > b.last {
		return false
	}
	return true
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	if opts.exampleConfig {
		fmt.Print(config.ExampleTOML())
		os.Exit(0)
	}
	if opts.exampleRules {
		out, err := config.ExampleRulesYAML()
		if err != nil {
			fmt.Fprintf(os.Stderr, "svn-lfs-export: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(out)
		os.Exit(0)
	}

	if err := run(opts, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "svn-lfs-export: %v\n", err)
		os.Exit(1)
	}
}

func run(opts *options, logOut io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	bound, err := parseRevisionSpec(opts.revisionSpec)
	if err != nil {
		return err
	}

	log := convlog.New(logOut, convlog.Commands|convlog.Warn|convlog.Progress)

	source, err := svndump.Open(cfg.SVNRepoPath)
	if err != nil {
		return fmt.Errorf("opening svn dump %s: %w", cfg.SVNRepoPath, err)
	}
	defer source.Close()

	if opts.svnEncoding != "" {
		if err := source.SetEncoding(opts.svnEncoding); err != nil {
			return err
		}
	}

	w := writer.New(opts.outputDir, opts.fastImport, log)
	defer func() {
		if err := w.Close(); err != nil {
			log.Warnf("closing fast-import subprocesses: %v", err)
		}
	}()

	em := emitter.New(cfg, w)

	b := baton.New(logOut, fdOf(logOut))
	b.StartProgress("converting revisions", expectedRevisionCount(bound))

	for {
		rev, err := source.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("reading next revision: %w", err)
		}
		if !bound.includes(rev.Number) {
			continue
		}
		log.Logf(convlog.Progress, "converting r%d (%d files)", rev.Number, len(rev.Files))
		if err := em.Emit(rev); err != nil {
			return fmt.Errorf("converting r%d: %w", rev.Number, err)
		}
		b.Bump()
	}
	b.EndProgress()

	return nil
}

// fdOf returns the file descriptor backing w, or -1 if w is not a
// regular *os.File (e.g. in tests that pass a bytes.Buffer).
func fdOf(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		return int(f.Fd())
	}
	return -1
}

// expectedRevisionCount returns the number of revisions the baton
// should count up to, or 0 (indefinite) when the upper bound is HEAD
// and thus unknown until the dump is fully read.
func expectedRevisionCount(b revisionBound) uint64 {
	if b.last < 0 || b.last < b.first {
		return 0
	}
	return uint64(b.last-b.first) + 1
}
