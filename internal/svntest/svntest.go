// Package svntest is an in-memory svn.Source used by internal/emitter's
// test suite: a fixed slice of svn.Revision values served in order,
// with file content supplied from an in-memory byte slice rather than
// a real SVN filesystem or dumpfile.
package svntest

// SPDX-License-Identifier: BSD-2-Clause

import (
	"bytes"
	"io"

	"github.com/jonathanharg/svn-lfs-export/internal/svn"
)

// Source serves a fixed slice of revisions, in order, implementing
// svn.Source for tests.
type Source struct {
	revisions []svn.Revision
	pos       int
}

// New returns a Source that yields revs in order, then io.EOF.
func New(revs []svn.Revision) *Source {
	return &Source{revisions: revs}
}

func (s *Source) Next() (svn.Revision, error) {
	if s.pos >= len(s.revisions) {
		return svn.Revision{}, io.EOF
	}
	rev := s.revisions[s.pos]
	s.pos++
	return rev, nil
}

func (s *Source) Close() error { return nil }

// Bytes returns a File.Open func serving a fixed in-memory payload,
// for building svn.File values in tests and fixtures.
func Bytes(data []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}
