// Package lfsstore writes LFS blobs into a destination repository's
// .git/lfs/objects content-addressed store and renders LFS pointer
// text, mirroring the teacher's convention of keeping on-disk-layout
// concerns (see surgeon/reposurgeon.go's gitHash machinery) in one
// small, independently testable unit.
package lfsstore

// SPDX-License-Identifier: BSD-2-Clause

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/termie/go-shutil"
)

// PointerVersion is the fixed LFS pointer spec line.
const PointerVersion = "https://git-lfs.github.com/spec/v1"

// Store writes data under gitDir/lfs/objects/<h0:2>/<h2:4>/<hash> and
// returns the LFS pointer text referencing it. gitDir is the
// destination repository's .git directory (writer.LFSRoot(repo)).
// Writing identical bytes twice is idempotent: the destination path is
// a pure function of the content hash.
func Store(gitDir string, data []byte) (string, error) {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	objDir := filepath.Join(gitDir, "lfs", "objects", hash[0:2], hash[2:4])
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return "", fmt.Errorf("creating lfs object directory %s: %w", objDir, err)
	}
	dest := filepath.Join(objDir, hash)

	tmp, err := os.CreateTemp(objDir, ".lfs-*.tmp")
	if err != nil {
		return "", fmt.Errorf("staging lfs object for %s: %w", hash, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing staged lfs object for %s: %w", hash, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing staged lfs object for %s: %w", hash, err)
	}
	if _, err := shutil.Copy(tmpName, dest, false); err != nil {
		return "", fmt.Errorf("placing lfs object %s: %w", hash, err)
	}

	return Pointer(hash, len(data)), nil
}

// Pointer renders the exact LFS pointer text for a hash and size.
func Pointer(hash string, size int) string {
	return fmt.Sprintf("version %s\noid sha256:%s\nsize %d\n", PointerVersion, hash, size)
}

// AttributesBody renders the .gitattributes body for a set of LFS
// pathspec patterns, one "pattern filter=lfs diff=lfs merge=lfs -text"
// line per pattern, in declared order. Empty when patterns is empty.
func AttributesBody(patterns []string) string {
	var body string
	for _, p := range patterns {
		body += p + " filter=lfs diff=lfs merge=lfs -text\n"
	}
	return body
}
