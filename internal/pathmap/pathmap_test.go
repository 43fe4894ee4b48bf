package pathmap

import (
	"regexp"
	"testing"
)

func assertEqual(t *testing.T, got, want string) {
	t.Helper()
	if got != want {
		t.Fatalf("assertEqual: expected %q, got %q", want, got)
	}
}

func assertTrue(t *testing.T, cond bool) {
	t.Helper()
	if !cond {
		t.Fatal("assertTrue: expected true")
	}
}

func mustRule(t *testing.T, pattern, repoTpl, branchTpl, pathTpl string, skip bool) Rule {
	t.Helper()
	re := regexp.MustCompile(pattern)
	return Rule{
		SVNPath:            re,
		Skip:               skip,
		DestRepoTemplate:   repoTpl,
		DestBranchTemplate: branchTpl,
		DestPathTemplate:   pathTpl,
	}
}

func TestSimpleSingleBranch(t *testing.T) {
	rule := mustRule(t, `^trunk/`, "main", "master", "", false)
	mapper, err := New([]Rule{rule}, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, mapping := mapper.Map(1, "trunk/foo.txt")
	assertTrue(t, result == Matched)
	assertEqual(t, mapping.Repo, "main")
	assertEqual(t, mapping.Branch, "master")
	assertEqual(t, mapping.Path, "foo.txt")
	assertTrue(t, !mapping.LFS)
}

func TestPrefixRewriteWithCapture(t *testing.T) {
	rule := mustRule(t, `^branches/([\w-]+)/`, "proj", `\1`, "", false)
	mapper, err := New([]Rule{rule}, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, mapping := mapper.Map(1, "branches/feature-x/src/a.c")
	assertTrue(t, result == Matched)
	assertEqual(t, mapping.Repo, "proj")
	assertEqual(t, mapping.Branch, "feature-x")
	assertEqual(t, mapping.Path, "src/a.c")
}

func TestExplicitSkip(t *testing.T) {
	skipRule := mustRule(t, `^tags/`, "", "", "", true)
	trunkRule := mustRule(t, `^trunk/`, "main", "master", "", false)
	mapper, err := New([]Rule{skipRule, trunkRule}, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, _ := mapper.Map(1, "tags/v1/file")
	assertTrue(t, result == Skip)

	result, mapping := mapper.Map(1, "trunk/file")
	assertTrue(t, result == Matched)
	assertEqual(t, mapping.Path, "file")
}

func TestNoMatch(t *testing.T) {
	rule := mustRule(t, `^trunk/`, "main", "master", "", false)
	mapper, err := New([]Rule{rule}, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, _ := mapper.Map(1, "branches/x/file")
	assertTrue(t, result == NoMatch)
}

func TestLFSRouting(t *testing.T) {
	rule := mustRule(t, `^trunk/`, "main", "master", "", false)
	mapper, err := New([]Rule{rule}, []string{"*.bin"})
	if err != nil {
		t.Fatal(err)
	}
	result, mapping := mapper.Map(1, "trunk/blob.bin")
	assertTrue(t, result == Matched)
	assertTrue(t, mapping.LFS)

	result, mapping = mapper.Map(1, "trunk/readme.txt")
	assertTrue(t, result == Matched)
	assertTrue(t, !mapping.LFS)
}

func TestRevisionBounds(t *testing.T) {
	rule := mustRule(t, `^trunk/`, "main", "master", "", false)
	rule.MinRevision = 10
	rule.MaxRevision = 20
	mapper, err := New([]Rule{rule}, nil)
	if err != nil {
		t.Fatal(err)
	}
	result, _ := mapper.Map(5, "trunk/file")
	assertTrue(t, result == NoMatch)
	result, _ = mapper.Map(15, "trunk/file")
	assertTrue(t, result == Matched)
	result, _ = mapper.Map(25, "trunk/file")
	assertTrue(t, result == NoMatch)
}

func TestCheckRewriteRejectsOutOfRangeBackreference(t *testing.T) {
	re := regexp.MustCompile(`^branches/(\w+)/`)
	if err := CheckRewrite(`\2`, re); err == nil {
		t.Fatal("expected CheckRewrite to reject \\2 against a one-group pattern")
	}
	if err := CheckRewrite(`\1`, re); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := CheckRewrite(`\0-\1`, re); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLeadingSlashStripped(t *testing.T) {
	rule := mustRule(t, `^trunk`, "main", "master", "/sub", false)
	mapper, err := New([]Rule{rule}, nil)
	if err != nil {
		t.Fatal(err)
	}
	_, mapping := mapper.Map(1, "trunk/foo.txt")
	assertEqual(t, mapping.Path, "sub/foo.txt")
}
