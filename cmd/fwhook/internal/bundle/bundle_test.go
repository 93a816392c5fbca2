package bundle

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// writeTree creates files (relative path -> content) under root.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func gunzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip reader %s: %v", path, err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("decompress %s: %v", path, err)
	}
	return string(data)
}

func TestBundle_IndexScenario(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	out := filepath.Join(dir, "data")
	writeTree(t, src, map[string]string{"index.html": "<h1>Hi</h1>"})

	res, err := Bundle(context.Background(), Options{Source: src, Output: out, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	if res.SourceMissing {
		t.Fatal("SourceMissing should be false")
	}
	if len(res.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(res.Files))
	}

	if got := gunzip(t, filepath.Join(out, "index.html.gz")); got != "<h1>Hi</h1>" {
		t.Errorf("decompressed = %q, want %q", got, "<h1>Hi</h1>")
	}
}

func TestBundle_RoundTripAndFiltering(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	out := filepath.Join(dir, "data")
	files := map[string]string{
		"index.html":       "<!doctype html><title>x</title>",
		"css/style.css":    "body{margin:0}",
		"js/app.js":        strings.Repeat("console.log(1);\n", 500),
		"js/vendor/lib.js": "export const x = 1;",
		"favicon.ico":      "\x00\x01",
		"notes.txt":        "not an asset",
		"js/old.js.gz":     "already compressed",
		"css/theme.css.br": "already compressed",
		"UPPER.HTML":       "case differs",
		"empty.css":        "",
	}
	writeTree(t, src, files)

	res, err := Bundle(context.Background(), Options{Source: src, Output: out, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	want := []string{"css/style.css", "empty.css", "index.html", "js/app.js", "js/vendor/lib.js"}
	var got []string
	for _, f := range res.Files {
		got = append(got, f.Rel)
	}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("compressed %v, want %v (lexical walk order)", got, want)
	}

	for _, rel := range want {
		dest := filepath.Join(out, filepath.FromSlash(rel)+".gz")
		if gotContent := gunzip(t, dest); gotContent != files[rel] {
			t.Errorf("%s: round trip mismatch", rel)
		}
	}

	for _, rel := range []string{"favicon.ico", "notes.txt", "js/old.js.gz", "css/theme.css.br", "UPPER.HTML"} {
		for _, suffix := range []string{".gz", ""} {
			if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(rel)+suffix)); err == nil {
				t.Errorf("%s%s should not exist in output", rel, suffix)
			}
		}
	}
}

func TestBundle_MissingSource(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "data")

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	res, err := Bundle(context.Background(), Options{
		Source: filepath.Join(dir, "templates"),
		Output: out,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("Bundle() error = %v, want nil", err)
	}
	if !res.SourceMissing {
		t.Error("SourceMissing should be true")
	}
	if len(res.Files) != 0 {
		t.Errorf("no files should be processed, got %d", len(res.Files))
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("output directory must not be created when the source is missing")
	}
	if !strings.Contains(logs.String(), "does not exist") {
		t.Errorf("missing source should be logged, got: %s", logs.String())
	}
}

func TestBundle_SourceIsFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := Bundle(context.Background(), Options{Source: src, Output: filepath.Join(dir, "data"), Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	if !res.SourceMissing {
		t.Error("a plain file is not a source directory")
	}
}

func TestBundle_OverwritesExisting(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	out := filepath.Join(dir, "data")
	writeTree(t, src, map[string]string{"app.js": "new"})
	writeTree(t, out, map[string]string{"app.js.gz": "stale bytes, not even gzip"})

	if _, err := Bundle(context.Background(), Options{Source: src, Output: out, Logger: quietLogger()}); err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	if got := gunzip(t, filepath.Join(out, "app.js.gz")); got != "new" {
		t.Errorf("decompressed = %q, want %q", got, "new")
	}

	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestBundle_CustomExtensions(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "web")
	out := filepath.Join(dir, "data")
	writeTree(t, src, map[string]string{"logo.svg": "<svg/>", "index.html": "<p>"})

	res, err := Bundle(context.Background(), Options{
		Source:     src,
		Output:     out,
		Extensions: []string{".svg"},
		Logger:     quietLogger(),
	})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	if len(res.Files) != 1 || res.Files[0].Rel != "logo.svg" {
		t.Errorf("expected only logo.svg, got %+v", res.Files)
	}
}

func TestBundle_Exclude(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	out := filepath.Join(dir, "data")
	writeTree(t, src, map[string]string{
		"index.html":    "<p>",
		"vendor/lib.js": "lib",
		"js/app.min.js": "min",
		"js/app.js":     "app",
	})

	res, err := Bundle(context.Background(), Options{
		Source:  src,
		Output:  out,
		Exclude: []string{"vendor/**", "**/*.min.js"},
		Logger:  quietLogger(),
	})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}

	var rels []string
	for _, f := range res.Files {
		rels = append(rels, f.Rel)
	}
	if strings.Join(rels, ",") != "index.html,js/app.js" {
		t.Errorf("bundled %v, want [index.html js/app.js]", rels)
	}
	if _, err := os.Stat(filepath.Join(out, "vendor")); err == nil {
		t.Error("excluded directory should not be mirrored")
	}
}

func TestBundle_Brotli(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	out := filepath.Join(dir, "data")
	content := strings.Repeat("<li>item</li>", 100)
	writeTree(t, src, map[string]string{"list.html": content})

	res, err := Bundle(context.Background(), Options{Source: src, Output: out, Brotli: true, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	f := res.Files[0]
	if f.BrotliDest != filepath.Join(out, "list.html.br") {
		t.Errorf("BrotliDest = %q", f.BrotliDest)
	}
	if f.BrotliSize == 0 || f.BrotliSize >= f.Size {
		t.Errorf("BrotliSize = %d for %d input bytes", f.BrotliSize, f.Size)
	}

	raw, err := os.Open(f.BrotliDest)
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	data, err := io.ReadAll(brotli.NewReader(raw))
	if err != nil {
		t.Fatalf("brotli decode: %v", err)
	}
	if string(data) != content {
		t.Error("brotli round trip mismatch")
	}
}

func TestBundle_SizesReported(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	out := filepath.Join(dir, "data")
	content := strings.Repeat("a", 4096)
	writeTree(t, src, map[string]string{"big.js": content})

	res, err := Bundle(context.Background(), Options{Source: src, Output: out, Level: 1, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	f := res.Files[0]
	info, err := os.Stat(f.Dest)
	if err != nil {
		t.Fatal(err)
	}
	if f.Size != 4096 || f.GzipSize != info.Size() {
		t.Errorf("sizes = %d/%d, on disk %d", f.Size, f.GzipSize, info.Size())
	}
}

func TestBundle_Symlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	out := filepath.Join(dir, "data")
	writeTree(t, dir, map[string]string{"shared/common.js": "shared()"})
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "shared", "common.js"), filepath.Join(src, "common.js")); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(filepath.Join(dir, "missing.js"), filepath.Join(src, "dangling.js")); err != nil {
		t.Fatal(err)
	}

	res, err := Bundle(context.Background(), Options{Source: src, Output: out, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Bundle() error = %v", err)
	}
	if len(res.Files) != 1 || res.Files[0].Rel != "common.js" {
		t.Fatalf("expected only the resolvable link, got %+v", res.Files)
	}
	if got := gunzip(t, filepath.Join(out, "common.js.gz")); got != "shared()" {
		t.Errorf("decompressed = %q", got)
	}
}

func TestBundle_UnwritableOutput(t *testing.T) {
	if runtime.GOOS == "windows" || os.Getuid() == 0 {
		t.Skip("permission bits are not enforced here")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	out := filepath.Join(dir, "data")
	writeTree(t, src, map[string]string{"index.html": "x"})
	if err := os.Mkdir(out, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(out, 0o755) })

	if _, err := Bundle(context.Background(), Options{Source: src, Output: out, Logger: quietLogger()}); err == nil {
		t.Error("Bundle() expected error for unwritable output")
	}
}

func TestBundle_Cancelled(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	writeTree(t, src, map[string]string{"a.js": "a", "b.js": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Bundle(ctx, Options{Source: src, Output: filepath.Join(dir, "data"), Logger: quietLogger()})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Bundle() error = %v, want context.Canceled", err)
	}
}

func TestBundle_LogsPerFileAndBanners(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "templates")
	writeTree(t, src, map[string]string{"a.css": "a", "b.css": "b"})

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	if _, err := Bundle(context.Background(), Options{Source: src, Output: filepath.Join(dir, "data"), Logger: logger}); err != nil {
		t.Fatal(err)
	}

	out := logs.String()
	if strings.Count(out, "msg=compressed ") != 2 {
		t.Errorf("expected one record per file, got:\n%s", out)
	}
	if !strings.Contains(out, "compressing assets") || !strings.Contains(out, "compression finished") {
		t.Errorf("expected start and end banners, got:\n%s", out)
	}
}

func TestDestPath(t *testing.T) {
	got := DestPath("data", filepath.Join("js", "app.js"))
	want := filepath.Join("data", "js", "app.js.gz")
	if got != want {
		t.Errorf("DestPath() = %q, want %q", got, want)
	}
}
