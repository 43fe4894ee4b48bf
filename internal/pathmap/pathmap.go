// Package pathmap implements the path-mapping engine: an ordered list
// of regex rules, each rewriting a matched SVN path prefix into a
// destination repository, branch, and path. The matching and rewrite
// machinery generalises the branch-detection regexes in reposurgeon's
// svnread.go (isDeclaredBranch, splitSVNBranchPath) into a full
// capture-and-rewrite pipeline.
package pathmap

// SPDX-License-Identifier: BSD-2-Clause

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// Rule is one entry in the ordered path-mapping policy.
type Rule struct {
	SVNPath            *regexp.Regexp
	Skip               bool
	DestRepoTemplate   string
	DestBranchTemplate string
	DestPathTemplate   string
	MinRevision        int // 0 means unset
	MaxRevision        int // 0 means unset
}

// applies reports whether the rule is in scope for rev, per its
// optional min/max revision bounds.
func (r Rule) applies(rev int) bool {
	if r.MinRevision != 0 && rev < r.MinRevision {
		return false
	}
	if r.MaxRevision != 0 && rev > r.MaxRevision {
		return false
	}
	return true
}

// Result classifies the outcome of mapping a single path.
type Result int

const (
	// NoMatch means no rule in the list matched the path.
	NoMatch Result = iota
	// Skip means a matching rule explicitly discards the path.
	Skip
	// Matched means a rule produced a usable Mapping.
	Matched
)

// Mapping is the destination computed for one SVN path.
type Mapping struct {
	Repo   string
	Branch string
	Path   string
	LFS    bool
}

// Mapper holds the compiled rule list and LFS pathspec used to route
// paths. It is immutable once built and safe for concurrent read-only use.
type Mapper struct {
	rules  []Rule
	lfs    gitignore.Matcher
	hasLFS bool
}

// New compiles rules and lfsPatterns into a Mapper. It does not revalidate
// rewrite templates; callers that build rules directly (rather than
// through config loading) should call CheckRewrite themselves.
func New(rules []Rule, lfsPatterns []string) (*Mapper, error) {
	m := &Mapper{rules: rules}
	if len(lfsPatterns) > 0 {
		patterns := make([]gitignore.Pattern, 0, len(lfsPatterns))
		for _, p := range lfsPatterns {
			patterns = append(patterns, gitignore.ParsePattern(p, nil))
		}
		m.lfs = gitignore.NewMatcher(patterns)
		m.hasLFS = true
	}
	return m, nil
}

// Map applies the rule list to svnPath at revision rev, in declaration order.
func (m *Mapper) Map(rev int, svnPath string) (Result, Mapping) {
	for _, rule := range m.rules {
		if !rule.applies(rev) {
			continue
		}
		loc := rule.SVNPath.FindStringSubmatchIndex(svnPath)
		if loc == nil || loc[0] != 0 {
			continue
		}
		prefix := svnPath[:loc[1]]
		suffix := svnPath[loc[1]:]
		if rule.Skip {
			return Skip, Mapping{}
		}
		groups := submatchStrings(svnPath, loc)
		groups[0] = prefix // \0 is the matched prefix, not the whole input
		repo := rewrite(rule.DestRepoTemplate, groups)
		branch := rewrite(rule.DestBranchTemplate, groups)
		destPath := rewrite(rule.DestPathTemplate, groups) + suffix
		destPath = strings.TrimPrefix(destPath, "/")
		mapping := Mapping{Repo: repo, Branch: branch, Path: destPath}
		mapping.LFS = m.matchesLFS(destPath)
		return Matched, mapping
	}
	return NoMatch, Mapping{}
}

func (m *Mapper) matchesLFS(path string) bool {
	if !m.hasLFS {
		return false
	}
	return m.lfs.Match(strings.Split(path, "/"), false)
}

// submatchStrings converts a FindStringSubmatchIndex result into the
// matched text for each group, leaving "" for groups that didn't
// participate, with index 0 holding the whole match (overwritten by
// callers that want \0 bound to a prefix rather than the whole input).
func submatchStrings(s string, loc []int) []string {
	n := len(loc) / 2
	out := make([]string, n)
	for i := 0; i < n; i++ {
		start, end := loc[2*i], loc[2*i+1]
		if start < 0 || end < 0 {
			continue
		}
		out[i] = s[start:end]
	}
	return out
}

var backrefRE = regexp.MustCompile(`\\([0-9]+)|\\\\`)

// rewrite substitutes \0..\N back-references in tpl using groups, where
// groups[0] is bound by the caller (the matched prefix, per spec) and
// groups[1:] are the regex's capturing groups in order.
func rewrite(tpl string, groups []string) string {
	return backrefRE.ReplaceAllStringFunc(tpl, func(tok string) string {
		if tok == `\\` {
			return `\`
		}
		n, _ := strconv.Atoi(tok[1:])
		if n < len(groups) {
			return groups[n]
		}
		return ""
	})
}

// CheckRewrite validates that every \N back-reference in tpl refers to a
// group that the regex actually has (0..numGroups inclusive, where
// numGroups is re.NumSubexp()). This is the rewrite-validation check
// spec.md requires be performed at config-load time.
func CheckRewrite(tpl string, re *regexp.Regexp) error {
	numGroups := re.NumSubexp()
	matches := backrefRE.FindAllStringSubmatch(tpl, -1)
	for _, match := range matches {
		if match[1] == "" {
			continue // literal \\
		}
		n, err := strconv.Atoi(match[1])
		if err != nil {
			return fmt.Errorf("invalid back-reference %q", match[0])
		}
		if n > numGroups {
			return fmt.Errorf("back-reference \\%d exceeds %d capture group(s) in pattern %q", n, numGroups, re.String())
		}
	}
	return nil
}
