package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/xxh3"

	"github.com/dejo1307/frontdoc/internal/workpool"
)

// fingerprintVersion is mixed into every fingerprint so that a change in the
// fact model invalidates previously stored results.
const fingerprintVersion = "frontdoc/v1"

type fileDigest struct {
	path string
	sum  string
}

// Fingerprint computes a content digest over files (repository-relative paths
// under root). Files are hashed on the worker pool; the per-file digests are
// sorted by path before being combined, so the result does not depend on the
// order of files.
//
// scope names the analysis configuration the result depends on (project kind,
// selected extractors). It is mixed in as given, in order, because extractor
// order decides the merge order of facts.
func Fingerprint(ctx context.Context, root string, files []string, workers int, scope ...string) (string, error) {
	digests, err := workpool.Map(ctx, files, workers, func(_ context.Context, rel string) (fileDigest, error) {
		sum, err := hashFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return fileDigest{}, fmt.Errorf("hashing %s: %w", rel, err)
		}
		return fileDigest{path: filepath.ToSlash(rel), sum: sum}, nil
	})
	if err != nil {
		return "", err
	}
	return combine(digests, scope), nil
}

func combine(digests []fileDigest, scope []string) string {
	sort.Slice(digests, func(i, j int) bool { return digests[i].path < digests[j].path })

	h := sha256.New()
	io.WriteString(h, fingerprintVersion)
	h.Write([]byte{0})
	for _, s := range scope {
		io.WriteString(h, s)
		h.Write([]byte{0})
	}
	h.Write([]byte{'\n'})
	for _, d := range digests {
		io.WriteString(h, d.path)
		h.Write([]byte{0})
		io.WriteString(h, d.sum)
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
