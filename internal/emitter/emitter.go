// Package emitter implements the revision-to-commit translator: it
// groups a revision's file changes by destination (repo, branch),
// emits a fast-import commit block per group, and materialises LFS
// objects along the way. The wire-format details (commit header
// layout, "data <N>" framing, trailing-newline conventions on inline
// file data) are grounded in reposurgeon's Commit.Save/FileOp.Save
// (surgeon/reposurgeon.go).
package emitter

// SPDX-License-Identifier: BSD-2-Clause

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathanharg/svn-lfs-export/internal/config"
	"github.com/jonathanharg/svn-lfs-export/internal/identity"
	"github.com/jonathanharg/svn-lfs-export/internal/lfsstore"
	"github.com/jonathanharg/svn-lfs-export/internal/pathmap"
	"github.com/jonathanharg/svn-lfs-export/internal/svn"
)

// RepoWriter is the capability set the emitter needs from the
// multi-repository writer: spec.md §9's collapsed capability object.
type RepoWriter interface {
	Write(repo string, data []byte) error
	LFSRoot(repo string) string
	DoesBranchAlreadyExistOnDisk(repo, branch string) (bool, error)
	ExistedBeforeRun(repo string) (bool, error)
	MarkBranchSeen(repo, branch string) (alreadySeen bool, err error)
}

// Emitter translates Revisions into fast-import commit blocks.
type Emitter struct {
	cfg    *config.Config
	writer RepoWriter
}

// New returns an Emitter using cfg's mapping policy and identity/message
// settings, routing output through writer.
func New(cfg *config.Config, writer RepoWriter) *Emitter {
	return &Emitter{cfg: cfg, writer: writer}
}

type mappedFile struct {
	file    svn.File
	mapping pathmap.Mapping
}

// Emit translates one revision into zero or more fast-import commit
// blocks, one per distinct (repo, branch) its files map into.
func (e *Emitter) Emit(rev svn.Revision) error {
	committer := identity.Author(e.cfg.IdentityMap, rev.Author, e.cfg.Domain)
	message := identity.CommitMessage(e.cfg.CommitMessage, rev.Log, rev.Author, rev.Number)
	when := identity.Time(rev.Date, e.cfg.TimeZone)

	mapped, err := e.classify(rev)
	if err != nil {
		return err
	}
	if len(mapped) == 0 {
		return nil
	}

	sort.SliceStable(mapped, func(i, j int) bool {
		a, b := mapped[i].mapping, mapped[j].mapping
		if a.Repo != b.Repo {
			return a.Repo < b.Repo
		}
		return a.Branch < b.Branch
	})

	isMultiCommit := false
	for i := 1; i < len(mapped); i++ {
		if mapped[i].mapping.Repo != mapped[0].mapping.Repo || mapped[i].mapping.Branch != mapped[0].mapping.Branch {
			isMultiCommit = true
			break
		}
	}

	attrBody := lfsstore.AttributesBody(e.cfg.LFSRulePatterns)

	start := 0
	for start < len(mapped) {
		end := start + 1
		for end < len(mapped) && sameGroup(mapped[start], mapped[end]) {
			end++
		}
		group := mapped[start:end]
		if err := e.emitGroup(rev.Number, committer, message, when, isMultiCommit, attrBody, group); err != nil {
			return err
		}
		start = end
	}
	return nil
}

func sameGroup(a, b mappedFile) bool {
	return a.mapping.Repo == b.mapping.Repo && a.mapping.Branch == b.mapping.Branch
}

// classify resolves every file in rev to a mappedFile via the path
// mapper, applying strict-mode and skip handling per spec.md §4.4 step 2.
func (e *Emitter) classify(rev svn.Revision) ([]mappedFile, error) {
	var out []mappedFile
	for _, f := range rev.Files {
		result, m := e.cfg.Mapper.Map(rev.Number, f.Path)
		switch result {
		case pathmap.NoMatch:
			if e.cfg.StrictMode && !f.IsDirectory {
				return nil, fmt.Errorf("r%d: path %q matches no rule (strict_mode)", rev.Number, f.Path)
			}
		case pathmap.Skip:
			// dropped
		case pathmap.Matched:
			out = append(out, mappedFile{file: f, mapping: m})
		}
	}
	return out, nil
}

func (e *Emitter) emitGroup(revNum int, committer, message, when string, isMultiCommit bool, attrBody string, group []mappedFile) error {
	repo := group[0].mapping.Repo
	branch := group[0].mapping.Branch

	seed, err := e.branchOrigin(repo, branch)
	if err != nil {
		return err
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "commit refs/heads/%s\n", branch)
	if !isMultiCommit {
		fmt.Fprintf(&buf, "mark :%d\n", revNum)
	}
	fmt.Fprintf(&buf, "original-oid r%d\n", revNum)
	fmt.Fprintf(&buf, "committer %s %s\n", committer, when)
	fmt.Fprintf(&buf, "data %d\n%s", len(message), message)
	buf.WriteString(seed)

	if attrBody != "" {
		buf.WriteString("M 100644 inline .gitattributes\n")
		fmt.Fprintf(&buf, "data %d\n%s\n", len(attrBody), attrBody)
	}

	for _, mf := range group {
		if err := e.emitFile(&buf, repo, mf); err != nil {
			return err
		}
	}

	return e.writer.Write(repo, []byte(buf.String()))
}

// branchOrigin resolves the base seed for a (repo, branch) group per the
// ordered rule in spec.md §4.4 step 5a.
func (e *Emitter) branchOrigin(repo, branch string) (string, error) {
	alreadySeen, err := e.writer.MarkBranchSeen(repo, branch)
	if err != nil {
		return "", err
	}
	if alreadySeen {
		return "", nil
	}
	existedBefore, err := e.writer.ExistedBeforeRun(repo)
	if err != nil {
		return "", err
	}
	if !existedBefore {
		return "", nil
	}
	onDisk, err := e.writer.DoesBranchAlreadyExistOnDisk(repo, branch)
	if err != nil {
		return "", err
	}
	if onDisk {
		return fmt.Sprintf("from refs/heads/%s^0\n", branch), nil
	}
	if origin, ok := e.cfg.BranchOriginMap[branch]; ok {
		return fmt.Sprintf("from %s\ndeleteall\n", origin), nil
	}
	return "", fmt.Errorf("new branch %q in repository %q has no on-disk ancestor and no branch_origin entry configured", branch, repo)
}

func (e *Emitter) emitFile(buf *strings.Builder, repo string, mf mappedFile) error {
	f, m := mf.file, mf.mapping

	if f.Change == svn.Delete {
		fmt.Fprintf(buf, "D %s\n", m.Path)
		return nil
	}
	if f.IsDirectory {
		return nil
	}

	mode := "100644"
	if f.IsExecutable {
		mode = "100755"
	} else if f.IsSymlink {
		mode = "120000"
	}

	raw, err := readAll(f)
	if err != nil {
		return fmt.Errorf("reading content for %q: %w", f.Path, err)
	}

	payload := raw
	if f.IsSymlink {
		payload = parseSymlinkTarget(raw)
	}
	if m.LFS {
		pointer, err := lfsstore.Store(e.writer.LFSRoot(repo), raw)
		if err != nil {
			return fmt.Errorf("storing lfs object for %q: %w", f.Path, err)
		}
		payload = []byte(pointer)
	}

	fmt.Fprintf(buf, "M %s inline %s\n", mode, m.Path)
	fmt.Fprintf(buf, "data %d\n%s\n", len(payload), payload)
	return nil
}

// parseSymlinkTarget reads an SVN symlink's stored content, which is the
// literal text "link <target>", and returns <target>. A single trailing
// newline some SVN exporters add is stripped.
func parseSymlinkTarget(raw []byte) []byte {
	const prefix = "link "
	s := string(raw)
	s = strings.TrimPrefix(s, prefix)
	s = strings.TrimSuffix(s, "\n")
	return []byte(s)
}

func readAll(f svn.File) ([]byte, error) {
	if f.Open == nil {
		return nil, nil
	}
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	br := bufio.NewReader(r)
	data, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	return data, nil
}
