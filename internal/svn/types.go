// Package svn defines the interface between the conversion core and
// an SVN revision source, per spec.md §2 item 2: the core never reads
// SVN repository state directly, it only consumes these interfaces.
// Concrete sources live in internal/svndump (dumpfile-backed) and
// internal/svntest (in-memory, for tests).
package svn

// SPDX-License-Identifier: BSD-2-Clause

import "io"

// ChangeKind classifies what happened to a path in a revision.
type ChangeKind int

const (
	Modify ChangeKind = iota
	Add
	Delete
)

// CopyFrom records that a file was copied from another path/revision.
type CopyFrom struct {
	Path     string
	Revision int
}

// File is one path touched by a revision. Content is fetched lazily via
// Open, matching the scoped-acquisition discipline spec.md §5 requires
// for per-file content reads.
type File struct {
	Path         string
	IsDirectory  bool
	Change       ChangeKind
	IsExecutable bool
	IsSymlink    bool
	IsBinary     bool
	Size         int64
	CopiedFrom   *CopyFrom
	Open         func() (io.ReadCloser, error)
}

// Revision is one numbered SVN commit: author, log, ISO-8601 date, the
// revision number, and the files it touched, in source order.
type Revision struct {
	Number int
	Author string
	Log    string
	Date   string // ISO-8601, e.g. "2005-02-20T01:52:55.851101Z"
	Files  []File
}

// Source yields Revisions in ascending revision-number order. Next
// returns io.EOF once exhausted.
type Source interface {
	Next() (Revision, error)
	Close() error
}
