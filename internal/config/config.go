// Package config loads and validates the TOML configuration file into
// the immutable Config value the conversion core consumes. Config
// loading and validation sit outside the core per spec.md §1, but the
// loader still lives in this module because nothing else can build a
// runnable binary without it.
package config

// SPDX-License-Identifier: BSD-2-Clause

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/jonathanharg/svn-lfs-export/internal/pathmap"
)

// ruleTOML mirrors one [[rule]] table.
type ruleTOML struct {
	SVNPath     string `toml:"svn_path"`
	Skip        bool   `toml:"skip"`
	DestRepo    string `toml:"dest_repo"`
	DestBranch  string `toml:"dest_branch"`
	DestPath    string `toml:"dest_path"`
	MinRevision int    `toml:"min_revision"`
	MaxRevision int    `toml:"max_revision"`
}

// fileTOML is the raw decode target for the whole config file.
type fileTOML struct {
	SVNRepository string            `toml:"svn_repository"`
	Domain        string            `toml:"domain"`
	TimeZone      string            `toml:"time_zone"`
	CommitMessage string            `toml:"commit_message"`
	StrictMode    bool              `toml:"strict_mode"`
	IdentityMap   map[string]string `toml:"identity_map"`
	BranchOrigin  map[string]string `toml:"branch_origin"`
	LFS           []string          `toml:"LFS"`
	Rule          []ruleTOML        `toml:"rule"`
}

// DefaultCommitMessage matches the documented default template.
const DefaultCommitMessage = "{log}\n\nThis commit was converted from revision r{rev} by svn-lfs-export."

// DefaultTimeZone is used when time_zone is unset.
const DefaultTimeZone = "Etc/UTC"

var identityRE = regexp.MustCompile(`^([^\n<>]+ )*<[^<>\n]+>$`)

// Config is the validated, immutable value the conversion core runs
// against for the whole run.
type Config struct {
	SVNRepoPath     string
	Mapper          *pathmap.Mapper
	IdentityMap     map[string]string
	Domain          string
	TimeZone        string
	CommitMessage   string
	StrictMode      bool
	BranchOriginMap map[string]string
	LFSRulePatterns []string
}

// Load reads and validates a TOML config file at path.
func Load(path string) (*Config, error) {
	var raw fileTOML
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return build(raw)
}

// LoadBytes parses config content already in memory; used by tests and
// by any caller that has already fetched the file another way.
func LoadBytes(data []byte) (*Config, error) {
	var raw fileTOML
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return build(raw)
}

func build(raw fileTOML) (*Config, error) {
	if raw.SVNRepository == "" {
		return nil, fmt.Errorf("svn_repository is required")
	}
	if len(raw.Rule) == 0 {
		return nil, fmt.Errorf("at least one [[rule]] is required")
	}

	timezone := raw.TimeZone
	if timezone == "" {
		timezone = DefaultTimeZone
	}

	template := raw.CommitMessage
	if template == "" {
		template = DefaultCommitMessage
	}
	if err := validateMessageTemplate(template); err != nil {
		return nil, err
	}

	for user, mapped := range raw.IdentityMap {
		if !identityRE.MatchString(mapped) {
			return nil, fmt.Errorf("identity_map[%q] = %q does not match the required \"Name <email>\" form", user, mapped)
		}
	}

	rules := make([]pathmap.Rule, 0, len(raw.Rule))
	for i, rt := range raw.Rule {
		re, err := regexp.Compile(rt.SVNPath)
		if err != nil {
			return nil, fmt.Errorf("rule %d: invalid svn_path regex %q: %w", i, rt.SVNPath, err)
		}
		if rt.Skip {
			if rt.DestRepo != "" || rt.DestBranch != "" || rt.DestPath != "" {
				return nil, fmt.Errorf("rule %d: a skip rule must not set dest_repo/dest_branch/dest_path", i)
			}
		} else {
			for _, tpl := range []string{rt.DestRepo, rt.DestBranch, rt.DestPath} {
				if err := pathmap.CheckRewrite(tpl, re); err != nil {
					return nil, fmt.Errorf("rule %d: %w", i, err)
				}
			}
		}
		rules = append(rules, pathmap.Rule{
			SVNPath:            re,
			Skip:               rt.Skip,
			DestRepoTemplate:   rt.DestRepo,
			DestBranchTemplate: rt.DestBranch,
			DestPathTemplate:   rt.DestPath,
			MinRevision:        rt.MinRevision,
			MaxRevision:        rt.MaxRevision,
		})
	}

	mapper, err := pathmap.New(rules, raw.LFS)
	if err != nil {
		return nil, fmt.Errorf("building path mapper: %w", err)
	}

	return &Config{
		SVNRepoPath:     raw.SVNRepository,
		Mapper:          mapper,
		IdentityMap:     raw.IdentityMap,
		Domain:          raw.Domain,
		TimeZone:        timezone,
		CommitMessage:   template,
		StrictMode:      raw.StrictMode,
		BranchOriginMap: raw.BranchOrigin,
		LFSRulePatterns: raw.LFS,
	}, nil
}

var placeholderRE = regexp.MustCompile(`\{[a-zA-Z_]+\}`)

// validateMessageTemplate rejects any {placeholder} other than the three
// spec.md recognises, by scanning the template for {name} tokens and
// checking each one against {log}, {usr} and {rev}.
func validateMessageTemplate(template string) error {
	for _, tok := range placeholderRE.FindAllString(template, -1) {
		switch tok {
		case "{log}", "{usr}", "{rev}":
			continue
		default:
			return fmt.Errorf("commit_message template uses unrecognised placeholder %q (only {log}, {usr}, {rev} are supported)", tok)
		}
	}
	return nil
}

// ExampleTOML returns a fully commented sample config, for --example-config.
func ExampleTOML() string {
	var b strings.Builder
	b.WriteString("# Example svn-lfs-export configuration.\n\n")
	b.WriteString("# Path to an `svnadmin dump` file.\n")
	b.WriteString("svn_repository = \"/path/to/repo.svndump\"\n")
	b.WriteString("# domain = \"example.com\"\n")
	b.WriteString(fmt.Sprintf("# time_zone = %q\n", DefaultTimeZone))
	b.WriteString(fmt.Sprintf("# commit_message = %q\n", DefaultCommitMessage))
	b.WriteString("# strict_mode = false\n\n")
	b.WriteString("LFS = [\n")
	b.WriteString("  # \"*.bin\",\n")
	b.WriteString("]\n\n")
	b.WriteString("[identity_map]\n")
	b.WriteString("# jsmith = \"Jane Smith <jane@example.com>\"\n\n")
	b.WriteString("[branch_origin]\n")
	b.WriteString("# feature-x = \"refs/heads/master\"\n\n")
	b.WriteString("[[rule]]\n")
	b.WriteString("svn_path = \"trunk/\"\n")
	b.WriteString("dest_repo = \"main\"\n")
	b.WriteString("dest_branch = \"master\"\n")
	b.WriteString("dest_path = \"\"\n")
	return b.String()
}

// exampleRuleYAML is the YAML shape of ExampleTOML's one sample [[rule]]
// table, kept in sync by hand since it is only ever rendered for the
// human-readable --example-config-yaml preview; TOML remains the one
// config format the loader itself accepts.
type exampleRuleYAML struct {
	SVNPath    string `yaml:"svn_path"`
	DestRepo   string `yaml:"dest_repo"`
	DestBranch string `yaml:"dest_branch"`
	DestPath   string `yaml:"dest_path"`
}

// ExampleRulesYAML renders the sample rule list from ExampleTOML as
// YAML, for operators who want to see the rule shape outside of a TOML
// table before committing to it.
func ExampleRulesYAML() (string, error) {
	rules := []exampleRuleYAML{
		{SVNPath: "trunk/", DestRepo: "main", DestBranch: "master", DestPath: ""},
	}
	out, err := yaml.Marshal(map[string]any{"rule": rules})
	if err != nil {
		return "", fmt.Errorf("rendering example rules as yaml: %w", err)
	}
	return string(out), nil
}
