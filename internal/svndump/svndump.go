// Package svndump implements an svn.Source backed by a standard
// `svnadmin dump` file, memory-mapped and parsed directly into the
// Revision/File shapes the conversion core consumes. The record
// grammar (sized K/V property pairs terminated by PROPS-END,
// Node-path/-kind/-action headers, Content-length framing) is grounded
// on the dump-format reader in kfsone-svn-go/lib, rewritten here around
// a single forward-only mmap cursor instead of that package's DumpFile/
// DumpReader/Headers/Node/Properties object graph, since this tool only
// ever needs one linear pass to produce svn.Revision values rather than
// a fully addressable, re-encodable in-memory dump tree.
package svndump

// SPDX-License-Identifier: BSD-2-Clause

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	mmap "github.com/edsrzf/mmap-go"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/jonathanharg/svn-lfs-export/internal/svn"
)

const versionHeader = "SVN-fs-dump-format-version"

// Source reads revisions out of a memory-mapped SVN dump file, in the
// order they appear on disk (which is always ascending revision order
// for a well-formed dump).
type Source struct {
	path string
	file *os.File
	data mmap.MMap
	off  int
	dec  *encoding.Decoder // non-nil when log/author need transcoding to UTF-8
}

// SetEncoding declares the IANA character encoding svn:log and
// svn:author property values are stored in, for repositories created
// before the SVN working copy was UTF-8 clean. name is looked up the
// same way an email or HTML charset header is (e.g. "windows-1251",
// "ISO-8859-1"); Source defaults to treating properties as already
// UTF-8 when this is never called.
func (s *Source) SetEncoding(name string) error {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return fmt.Errorf("unknown character encoding %q: %w", name, err)
	}
	if enc == nil {
		return fmt.Errorf("unsupported character encoding %q", name)
	}
	s.dec = enc.NewDecoder()
	return nil
}

func (s *Source) decode(b []byte) string {
	if s.dec == nil {
		return string(b)
	}
	out, err := s.dec.Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// Open memory-maps the dump file at path and validates its header.
func Open(path string) (*Source, error) {
	f, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	s := &Source{path: path, file: f, data: data}
	if !bytes.HasPrefix(data, []byte(versionHeader+":")) {
		s.Close()
		return nil, fmt.Errorf("%s: missing %s header, not an svnadmin dump file?", path, versionHeader)
	}
	line, n := s.peekLine()
	if bytes.IndexByte([]byte(line), '\r') >= 0 {
		s.Close()
		return nil, fmt.Errorf("%s: CRLF line endings detected; dump with `svnadmin dump -F` rather than redirecting stdout", path)
	}
	s.off += n
	s.skipBlankLine()
	return s, nil
}

// Close unmaps the dump file and releases the underlying descriptor.
func (s *Source) Close() error {
	if s.data != nil {
		s.data.Unmap()
		s.data = nil
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// Next parses and returns the next revision record, or io.EOF once the
// dump is exhausted.
func (s *Source) Next() (svn.Revision, error) {
	for {
		s.skipUUIDHeader()
		if s.atEOF() {
			return svn.Revision{}, io.EOF
		}
		line, n := s.peekLine()
		if !strings.HasPrefix(line, "Revision-number:") {
			return svn.Revision{}, fmt.Errorf("%s: expected Revision-number at offset %d, got %q", s.path, s.off, truncate(line, 40))
		}
		s.off += n

		numStr := strings.TrimSpace(strings.TrimPrefix(line, "Revision-number:"))
		num, err := strconv.Atoi(numStr)
		if err != nil {
			return svn.Revision{}, fmt.Errorf("%s: invalid Revision-number %q: %w", s.path, numStr, err)
		}

		props, err := s.readPropBlock()
		if err != nil {
			return svn.Revision{}, fmt.Errorf("r%d: revision properties: %w", num, err)
		}
		s.skipBlankLine()

		rev := svn.Revision{
			Number: num,
			Author: s.decode(props["svn:author"]),
			Log:    s.decode(props["svn:log"]),
			Date:   string(props["svn:date"]),
		}

		files, err := s.readNodes(num)
		if err != nil {
			return svn.Revision{}, err
		}
		rev.Files = files
		return rev, nil
	}
}

// skipUUIDHeader consumes an optional "UUID: ..." preamble line that
// can appear before the first revision of a format-2+ dump.
func (s *Source) skipUUIDHeader() {
	line, n := s.peekLine()
	if strings.HasPrefix(line, "UUID:") {
		s.off += n
		s.skipBlankLine()
	}
}

func (s *Source) readNodes(rev int) ([]svn.File, error) {
	var files []svn.File
	for {
		line, _ := s.peekLine()
		if !strings.HasPrefix(line, "Node-path:") {
			return files, nil
		}
		f, err := s.readNode()
		if err != nil {
			return nil, fmt.Errorf("r%d: %w", rev, err)
		}
		if f != nil {
			files = append(files, *f)
		}
	}
}

// readNode consumes one Node-* record and returns the svn.File it
// describes, or nil if the node kind is neither file nor dir. readNodes
// drops such nodes without logging a warning.
func (s *Source) readNode() (*svn.File, error) {
	headers := map[string]string{}
	for {
		line, n := s.peekLine()
		if line == "" {
			s.off += n // consume the blank line ending the header block
			break
		}
		key, value, ok := splitHeader(line)
		if !ok {
			return nil, fmt.Errorf("malformed node header %q", truncate(line, 60))
		}
		headers[key] = value
		s.off += n
	}

	path := headers["Node-path"]
	kind := headers["Node-kind"]
	action := headers["Node-action"]

	var propLen, textLen, contentLen int
	var err error
	if v, ok := headers["Prop-content-length"]; ok {
		if propLen, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%s: invalid Prop-content-length: %w", path, err)
		}
	}
	if v, ok := headers["Text-content-length"]; ok {
		if textLen, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%s: invalid Text-content-length: %w", path, err)
		}
	}
	if v, ok := headers["Content-length"]; ok {
		if contentLen, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("%s: invalid Content-length: %w", path, err)
		}
	}

	var props map[string][]byte
	var text []byte
	if contentLen > 0 {
		block, err := s.read(contentLen)
		if err != nil {
			return nil, fmt.Errorf("%s: reading content block: %w", path, err)
		}
		if propLen > 0 {
			props, err = parseProps(block[:propLen])
			if err != nil {
				return nil, fmt.Errorf("%s: properties: %w", path, err)
			}
		}
		text = block[contentLen-textLen:]
		s.skipBlankLine()
	}
	s.skipBlankLine()

	if action == "delete" {
		return &svn.File{Path: path, Change: svn.Delete}, nil
	}
	if kind != "file" && kind != "dir" {
		return nil, nil
	}

	f := &svn.File{
		Path:        path,
		IsDirectory: kind == "dir",
		Change:      svn.Add,
		Size:        int64(textLen),
	}
	if action == "change" {
		f.Change = svn.Modify
	}
	if v, ok := headers["Node-copyfrom-rev"]; ok {
		fromRev, _ := strconv.Atoi(v)
		f.CopiedFrom = &svn.CopyFrom{Path: headers["Node-copyfrom-path"], Revision: fromRev}
	}
	if props != nil {
		if _, ok := props["svn:executable"]; ok {
			f.IsExecutable = true
		}
		if _, ok := props["svn:special"]; ok {
			f.IsSymlink = true
		}
	}
	if !f.IsDirectory {
		payload := append([]byte(nil), text...)
		f.Open = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(payload)), nil
		}
	}
	return f, nil
}

// readPropBlock reads a Prop-content-length/Content-length-framed
// property block, used for revision properties (svn:log, svn:author,
// svn:date) which carry no separate text segment.
func (s *Source) readPropBlock() (map[string][]byte, error) {
	propLen, err := s.intHeader("Prop-content-length")
	if err != nil {
		return nil, err
	}
	if _, err := s.intHeader("Content-length"); err != nil {
		return nil, err
	}
	s.skipBlankLine()
	block, err := s.read(propLen)
	if err != nil {
		return nil, err
	}
	s.skipBlankLine()
	return parseProps(block)
}

func (s *Source) intHeader(name string) (int, error) {
	line, n := s.peekLine()
	key, value, ok := splitHeader(line)
	if !ok || key != name {
		return 0, fmt.Errorf("expected %s header, got %q", name, truncate(line, 40))
	}
	s.off += n
	return strconv.Atoi(value)
}

// parseProps parses a PROPS-END-terminated sequence of sized K/V pairs:
//
//	K <len>\n<len bytes>\n
//	V <len>\n<len bytes>\n
//	...
//	PROPS-END\n
func parseProps(block []byte) (map[string][]byte, error) {
	props := map[string][]byte{}
	for {
		if bytes.HasPrefix(block, []byte("PROPS-END")) {
			return props, nil
		}
		key, rest, err := readSized(block, 'K')
		if err != nil {
			return nil, err
		}
		value, rest2, err := readSized(rest, 'V')
		if err != nil {
			return nil, err
		}
		props[string(key)] = value
		block = rest2
	}
}

func readSized(block []byte, prefix byte) (value, rest []byte, err error) {
	if len(block) == 0 || block[0] != prefix || block[1] != ' ' {
		return nil, nil, fmt.Errorf("expected %c-sized field, got %q", prefix, truncate(string(block), 20))
	}
	nl := bytes.IndexByte(block, '\n')
	if nl < 0 {
		return nil, nil, io.ErrUnexpectedEOF
	}
	size, err := strconv.Atoi(string(block[2:nl]))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid %c size: %w", prefix, err)
	}
	start := nl + 1
	end := start + size
	if end+1 > len(block) || block[end] != '\n' {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return block[start:end], block[end+1:], nil
}

func splitHeader(line string) (key, value string, ok bool) {
	i := strings.Index(line, ": ")
	if i < 0 {
		return "", "", false
	}
	return line[:i], line[i+2:], true
}

func (s *Source) read(n int) ([]byte, error) {
	if s.off+n > len(s.data) {
		return nil, io.ErrUnexpectedEOF
	}
	b := s.data[s.off : s.off+n]
	s.off += n
	return b, nil
}

func (s *Source) skipBlankLine() {
	if s.off < len(s.data) && s.data[s.off] == '\n' {
		s.off++
	}
}

func (s *Source) atEOF() bool {
	return s.off >= len(s.data)
}

// peekLine returns the text of the line starting at the cursor
// (excluding its newline) and the byte count to consume it including
// the newline, without advancing the cursor.
func (s *Source) peekLine() (string, int) {
	if s.off >= len(s.data) {
		return "", 0
	}
	rest := s.data[s.off:]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 {
		return string(rest), len(rest)
	}
	return string(rest[:nl]), nl + 1
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
