package config

import (
	"strings"
	"testing"
)

const minimalTOML = `
svn_repository = "/srv/svn/repo"

[[rule]]
svn_path = "trunk/"
dest_repo = "main"
dest_branch = "master"
dest_path = ""
`

func TestLoadBytesMinimal(t *testing.T) {
	cfg, err := LoadBytes([]byte(minimalTOML))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TimeZone != DefaultTimeZone {
		t.Fatalf("expected default timezone, got %q", cfg.TimeZone)
	}
	if cfg.CommitMessage != DefaultCommitMessage {
		t.Fatalf("expected default commit message template, got %q", cfg.CommitMessage)
	}
}

func TestLoadRejectsMissingSVNRepository(t *testing.T) {
	_, err := LoadBytes([]byte(`[[rule]]
svn_path = "trunk/"
dest_repo = "main"
dest_branch = "master"
`))
	if err == nil {
		t.Fatal("expected error for missing svn_repository")
	}
}

func TestLoadRejectsEmptyRules(t *testing.T) {
	_, err := LoadBytes([]byte(`svn_repository = "/srv/svn/repo"`))
	if err == nil {
		t.Fatal("expected error for empty rule list")
	}
}

func TestLoadRejectsBadIdentityMapEntry(t *testing.T) {
	_, err := LoadBytes([]byte(minimalTOML + `
[identity_map]
jsmith = "not an attribution line"
`))
	if err == nil {
		t.Fatal("expected error for malformed identity map entry")
	}
}

func TestLoadAcceptsWellFormedIdentityMapEntry(t *testing.T) {
	cfg, err := LoadBytes([]byte(minimalTOML + `
[identity_map]
jsmith = "Jane Smith <jane@example.com>"
`))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.IdentityMap["jsmith"] != "Jane Smith <jane@example.com>" {
		t.Fatalf("identity map entry not preserved: %+v", cfg.IdentityMap)
	}
}

func TestLoadRejectsUnknownPlaceholder(t *testing.T) {
	_, err := LoadBytes([]byte(`commit_message = "{log} {oops}"
` + minimalTOML))
	if err == nil {
		t.Fatal("expected error for unknown placeholder")
	}
}

func TestLoadRejectsOutOfRangeBackreference(t *testing.T) {
	_, err := LoadBytes([]byte(`
svn_repository = "/srv/svn/repo"

[[rule]]
svn_path = "branches/(\\w+)/"
dest_repo = "proj"
dest_branch = "\\2"
dest_path = ""
`))
	if err == nil {
		t.Fatal("expected error for out-of-range backreference")
	}
}

func TestLoadRejectsSkipRuleWithTemplates(t *testing.T) {
	_, err := LoadBytes([]byte(`
svn_repository = "/srv/svn/repo"

[[rule]]
svn_path = "tags/"
skip = true
dest_repo = "oops"
`))
	if err == nil {
		t.Fatal("expected error for skip rule with templates set")
	}
}

func TestExampleTOMLParses(t *testing.T) {
	example := ExampleTOML()
	if len(example) == 0 {
		t.Fatal("expected non-empty example config")
	}
	if _, err := LoadBytes([]byte(example)); err != nil {
		t.Fatalf("example config does not load: %v", err)
	}
}

func TestExampleRulesYAMLContainsSampleRule(t *testing.T) {
	out, err := ExampleRulesYAML()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"svn_path: trunk/", "dest_repo: main", "dest_branch: master"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in yaml output, got %q", want, out)
		}
	}
}
