package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dejo1307/frontdoc/internal/config"
	"github.com/dejo1307/frontdoc/internal/facts"
)

func writeFiles(t *testing.T, root string, files map[string]string) []string {
	t.Helper()
	var rels []string
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
		rels = append(rels, rel)
	}
	return rels
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	root := t.TempDir()
	files := writeFiles(t, root, map[string]string{
		"src/a.ts":        "export const a = 1",
		"src/b.tsx":       "export const B = () => <div/>",
		"pages/index.tsx": "export default function Home() {}",
	})
	reversed := make([]string, len(files))
	for i, f := range files {
		reversed[len(files)-1-i] = f
	}

	ctx := context.Background()
	fp1, err := Fingerprint(ctx, root, files, 2)
	require.NoError(t, err)
	fp2, err := Fingerprint(ctx, root, reversed, 8)
	require.NoError(t, err)
	assert.Equal(t, fp1, fp2)
	assert.Len(t, fp1, 64)
}

func TestFingerprint_ContentSensitive(t *testing.T) {
	root := t.TempDir()
	files := writeFiles(t, root, map[string]string{
		"src/a.ts": "export const a = 1",
		"src/b.ts": "export const b = 2",
	})
	ctx := context.Background()
	before, err := Fingerprint(ctx, root, files, 0)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "b.ts"), []byte("export const b = 3"), 0o644))
	after, err := Fingerprint(ctx, root, files, 0)
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
}

func TestFingerprint_PathSensitive(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.ts": "same",
		"b.ts": "same",
	})
	ctx := context.Background()
	fa, err := Fingerprint(ctx, root, []string{"a.ts"}, 1)
	require.NoError(t, err)
	fb, err := Fingerprint(ctx, root, []string{"b.ts"}, 1)
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)
}

func TestFingerprint_ScopeSensitive(t *testing.T) {
	root := t.TempDir()
	files := writeFiles(t, root, map[string]string{"src/a.ts": "export const a = 1"})
	ctx := context.Background()

	base, err := Fingerprint(ctx, root, files, 1, "kind=react", "extractor=pages")
	require.NoError(t, err)
	same, err := Fingerprint(ctx, root, files, 1, "kind=react", "extractor=pages")
	require.NoError(t, err)
	assert.Equal(t, base, same)

	for _, scope := range [][]string{
		{"kind=nextjs", "extractor=pages"},
		{"kind=react", "extractor=pages", "extractor=apicalls"},
		{"kind=react", "extractor=apicalls", "extractor=pages"},
		nil,
	} {
		other, err := Fingerprint(ctx, root, files, 1, scope...)
		require.NoError(t, err)
		assert.NotEqual(t, base, other, "scope %v", scope)
	}
}

func TestFingerprint_MissingFile(t *testing.T) {
	_, err := Fingerprint(context.Background(), t.TempDir(), []string{"gone.ts"}, 1)
	assert.Error(t, err)
}

func sampleResult(repo string) *facts.AnalysisResult {
	return &facts.AnalysisResult{
		Repository: repo,
		Version:    "1.2.0",
		Revision:   "abc123",
		APICalls: []facts.APICall{
			{ID: "apicalls:api-call:src/api.ts:3:1", Method: "GET", URL: "/api/users", Category: "Internal API"},
		},
	}
}

func TestCache_GetValidatesFingerprint(t *testing.T) {
	c := New(nil)
	key := Key("web", "abc123")
	require.NoError(t, c.Set(key, "fp1", sampleResult("web")))

	got, ok := c.Get(key, "fp1")
	require.True(t, ok)
	assert.Equal(t, "web", got.Repository)
	assert.Equal(t, "/api/users", got.APICalls[0].URL)

	_, ok = c.Get(key, "fp2")
	assert.False(t, ok, "fingerprint mismatch must miss")

	_, ok = c.Get(Key("web", "other"), "fp1")
	assert.False(t, ok)

	_, ok = c.Get(key, "")
	assert.False(t, ok)
}

func TestCache_SetOverwrites(t *testing.T) {
	c := New(nil)
	key := Key("web", "rev")
	require.NoError(t, c.Set(key, "fp1", sampleResult("first")))
	require.NoError(t, c.Set(key, "fp2", sampleResult("second")))

	_, ok := c.Get(key, "fp1")
	assert.False(t, ok)
	got, ok := c.Get(key, "fp2")
	require.True(t, ok)
	assert.Equal(t, "second", got.Repository)
	assert.Equal(t, 1, c.Len())
}

func TestCache_EmptyFingerprintNotStored(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Set("k", "", sampleResult("web")))
	assert.Equal(t, 0, c.Len())
}

func TestCache_FileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.json")
	ctx := context.Background()

	c := New(NewFileBackend(path))
	c.Load(ctx)
	require.NoError(t, c.Set(Key("web", "abc"), "fp", sampleResult("web")))
	require.NoError(t, c.Save(ctx))

	reloaded := New(NewFileBackend(path))
	reloaded.Load(ctx)
	got, ok := reloaded.Get(Key("web", "abc"), "fp")
	require.True(t, ok)
	assert.Equal(t, sampleResult("web").APICalls, got.APICalls)
}

func TestCache_CorruptStoreIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	c := New(NewFileBackend(path))
	c.Load(context.Background())
	assert.Equal(t, 0, c.Len())
}

func TestCache_WrongVersionIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "entries": {"a@b": {"fingerprint": "x", "result": {}}}}`), 0o644))

	c := New(NewFileBackend(path))
	c.Load(context.Background())
	assert.Equal(t, 0, c.Len())
}

type failingBackend struct{}

func (failingBackend) String() string { return "failing" }

func (failingBackend) Load(context.Context) ([]byte, error) { return nil, errors.New("unavailable") }

func (failingBackend) Save(context.Context, []byte) error { return errors.New("unavailable") }

func TestCache_UnavailableBackend(t *testing.T) {
	c := New(failingBackend{})
	c.Load(context.Background())
	assert.Equal(t, 0, c.Len())

	require.NoError(t, c.Set("k", "fp", sampleResult("web")))
	assert.Error(t, c.Save(context.Background()))
}

func TestCache_SaveSkipsWhenClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	c := New(NewFileBackend(path))
	require.NoError(t, c.Save(context.Background()))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(config.CacheConfig{Backend: config.CacheFile, Path: "x.json"})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	b, err = NewBackend(config.CacheConfig{Backend: config.CacheNone})
	require.NoError(t, err)
	assert.Equal(t, "none", b.String())

	_, err = NewBackend(config.CacheConfig{Backend: config.CacheS3})
	assert.Error(t, err, "s3 without endpoint")

	b, err = NewBackend(config.CacheConfig{Backend: config.CacheS3, S3: config.S3Config{
		Endpoint: "localhost:9000", Bucket: "docs", Prefix: "/frontdoc/", AccessKey: "a", SecretKey: "s",
	}})
	require.NoError(t, err)
	assert.Equal(t, "s3://docs/frontdoc/cache.json", b.String())

	_, err = NewBackend(config.CacheConfig{Backend: "redis"})
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "cache.json", objectKey(""))
	assert.Equal(t, "team/cache.json", objectKey("team/"))
	assert.Equal(t, "a/b/cache.json", objectKey(" /a/b "))
}
