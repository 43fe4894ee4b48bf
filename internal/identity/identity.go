// Package identity derives committer identity, commit messages, and
// Git-formatted timestamps from revision fields, generalising
// reposurgeon's Attribution and Date types (surgeon/reposurgeon.go) to
// the configuration-driven identity map and message template this
// conversion tool needs.
package identity

// SPDX-License-Identifier: BSD-2-Clause

import (
	"fmt"
	"strings"
	"time"

	// Embed the IANA timezone database so Time() resolves zones like
	// America/Caracas correctly even on minimal container images that
	// ship without /usr/share/zoneinfo.
	_ "time/tzdata"
)

// Author renders an SVN username into a single "Name <email>" line.
// identityMap entries are returned verbatim; an empty username becomes
// "Unknown User <unknown@domain>"; anything else falls back to
// "<user> <<user>@domain>".
func Author(identityMap map[string]string, username, domain string) string {
	if mapped, ok := identityMap[username]; ok {
		return mapped
	}
	if domain == "" {
		domain = "localhost"
	}
	if username == "" {
		return fmt.Sprintf("Unknown User <unknown@%s>", domain)
	}
	return fmt.Sprintf("%s <%s@%s>", username, username, domain)
}

// CommitMessage interpolates template, recognising exactly {log}, {usr},
// and {rev}. The template may contain newlines; substitution is purely
// textual, no other placeholder syntax is recognised here (unknown
// placeholders are rejected earlier, at config-load time).
func CommitMessage(template, log, username string, rev int) string {
	r := strings.NewReplacer(
		"{log}", log,
		"{usr}", username,
		"{rev}", fmt.Sprintf("%d", rev),
	)
	return r.Replace(template)
}

// placeholderRE-equivalent validation lives in internal/config, which
// owns the config-load-time error surface; ValidKeys documents the set
// CommitMessage understands.
var ValidKeys = []string{"{log}", "{usr}", "{rev}"}

// Time parses an SVN date of the form YYYY-MM-DDThh:mm:ss[.fractional]Z
// and renders it as "<unix_epoch_seconds> <±HHMM>" in the given IANA
// timezone. A missing date defaults to the Unix epoch. Time is a total
// function: malformed input never panics, it degrades to the epoch.
func Time(svnDate, timezone string) string {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	t := parseSVNDate(svnDate)
	local := t.In(loc)
	return fmt.Sprintf("%d %s", local.Unix(), local.Format("-0700"))
}

func parseSVNDate(svnDate string) time.Time {
	if svnDate == "" {
		return time.Unix(0, 0).UTC()
	}
	for _, layout := range []string{
		"2006-01-02T15:04:05.999999Z",
		"2006-01-02T15:04:05Z",
		time.RFC3339Nano,
		time.RFC3339,
	} {
		if t, err := time.Parse(layout, svnDate); err == nil {
			return t.UTC()
		}
	}
	return time.Unix(0, 0).UTC()
}
