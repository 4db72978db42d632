package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dejo1307/frontdoc/internal/config"
)

// RevisionSource reports the latest revision identifier of a repository.
type RevisionSource interface {
	Revision(ctx context.Context, root string) (string, error)
}

// VersionSource reports the declared version of a repository.
type VersionSource interface {
	Version(repo config.Repository, root string) (string, error)
}

// GitRevision asks git for the HEAD commit.
type GitRevision struct{}

func (GitRevision) Revision(ctx context.Context, root string) (string, error) {
	out, err := exec.CommandContext(ctx, "git", "-C", root, "rev-parse", "HEAD").Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse in %s: %w", root, err)
	}
	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return "", fmt.Errorf("git rev-parse in %s: empty output", root)
	}
	return rev, nil
}

// ManifestVersion reads the version setting, falling back to package.json.
type ManifestVersion struct{}

func (ManifestVersion) Version(repo config.Repository, root string) (string, error) {
	if v := strings.TrimSpace(repo.Setting("version")); v != "" {
		return v, nil
	}
	data, err := os.ReadFile(filepath.Join(root, "package.json"))
	if err != nil {
		return "", err
	}
	var manifest struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "", fmt.Errorf("parsing package.json: %w", err)
	}
	if manifest.Version == "" {
		return "", fmt.Errorf("package.json has no version")
	}
	return manifest.Version, nil
}
