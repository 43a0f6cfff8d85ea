package render

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

const storageTemplate = "project: ##PROJECT_ID\nlogin: ##STORAGE_LOGIN\npass: ##STORAGE_PASSWORD\n"

func writeTemplate(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte(content), 0o640); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	return string(data)
}

func TestRenderFileInPlace(t *testing.T) {
	path := writeTemplate(t, storageTemplate)

	result, err := New(Options{Lock: true}).RenderFile(context.Background(), path, storageSubs("my-proj", "user1", "pw1"))
	if err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}

	want := "project: my-proj\nlogin: user1\npass: pw1\n"
	if got := readFile(t, path); got != want {
		t.Errorf("file = %q, want %q", got, want)
	}
	if !result.Written {
		t.Error("Written = false, want true")
	}
	if result.Replaced() != 3 {
		t.Errorf("Replaced() = %d, want 3", result.Replaced())
	}
	if result.Bytes != len(want) {
		t.Errorf("Bytes = %d, want %d", result.Bytes, len(want))
	}
	if len(result.Residual) != 0 {
		t.Errorf("Residual = %v, want none", result.Residual)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640 preserved", info.Mode().Perm())
	}
}

func TestRenderFileShrinksContent(t *testing.T) {
	path := writeTemplate(t, "##PROJECT_ID##PROJECT_ID##PROJECT_ID\n")

	if _, err := New(Options{}).RenderFile(context.Background(), path, storageSubs("p", "l", "s")); err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if got := readFile(t, path); got != "ppp\n" {
		t.Errorf("file = %q, want %q (old content must be truncated)", got, "ppp\n")
	}
}

func TestRenderFileMissingTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")

	_, err := New(Options{Lock: true}).RenderFile(context.Background(), path, storageSubs("p", "l", "s"))
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("RenderFile() error = %v, want fs.ErrNotExist", err)
	}
	if _, statErr := os.Stat(path); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("missing template was created: %v", statErr)
	}
}

func TestRenderFileToOutputLeavesTemplate(t *testing.T) {
	path := writeTemplate(t, storageTemplate)
	var out bytes.Buffer

	result, err := New(Options{Output: &out, Lock: true}).RenderFile(context.Background(), path, storageSubs("p", "l", "s"))
	if err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if result.Written {
		t.Error("Written = true, want false when rendering to output")
	}
	if out.String() != "project: p\nlogin: l\npass: s\n" {
		t.Errorf("output = %q", out.String())
	}
	if got := readFile(t, path); got != storageTemplate {
		t.Errorf("template modified: %q", got)
	}
}

func TestRenderFileBackup(t *testing.T) {
	path := writeTemplate(t, storageTemplate)

	result, err := New(Options{Backup: true}).RenderFile(context.Background(), path, storageSubs("p", "l", "s"))
	if err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if result.BackupPath == "" {
		t.Fatal("BackupPath is empty")
	}
	if !strings.HasPrefix(result.BackupPath, path+".") || !strings.HasSuffix(result.BackupPath, ".bak") {
		t.Errorf("BackupPath = %q, want %s.<id>.bak", result.BackupPath, path)
	}
	if got := readFile(t, result.BackupPath); got != storageTemplate {
		t.Errorf("backup = %q, want original template", got)
	}
}

func TestRenderFileStrictResidual(t *testing.T) {
	template := storageTemplate + "email: ##EMAIL\n"
	path := writeTemplate(t, template)
	subs := append(storageSubs("p", "##EMAIL", "s"), Substitution{Token: "##EMAIL", Value: "##EMAIL"})

	result, err := New(Options{Strict: true}).RenderFile(context.Background(), path, subs)
	var residualErr *ResidualTokensError
	if !errors.As(err, &residualErr) {
		t.Fatalf("RenderFile() error = %v, want ResidualTokensError", err)
	}
	if len(residualErr.Tokens) != 1 || residualErr.Tokens[0] != "##EMAIL" {
		t.Errorf("Tokens = %v, want [##EMAIL]", residualErr.Tokens)
	}
	if result.Written {
		t.Error("Written = true, want false in strict failure")
	}
	if got := readFile(t, path); got != template {
		t.Errorf("template modified on strict failure: %q", got)
	}
}

func TestRenderFileNonStrictResidualStillWrites(t *testing.T) {
	path := writeTemplate(t, "a: ##EMAIL\n")
	subs := []Substitution{{Token: "##EMAIL", Value: "##EMAIL"}}

	result, err := New(Options{}).RenderFile(context.Background(), path, subs)
	if err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if !result.Written || len(result.Residual) != 1 {
		t.Errorf("result = %+v, want written with one residual token", result)
	}
}

func TestRenderFileLockedByAnotherHolder(t *testing.T) {
	path := writeTemplate(t, storageTemplate)

	holder := flock.New(path)
	if err := holder.Lock(); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	t.Cleanup(func() { _ = holder.Unlock() })

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, err := New(Options{Lock: true}).RenderFile(ctx, path, storageSubs("p", "l", "s"))
	if err == nil {
		t.Fatal("RenderFile() error = nil, want lock failure")
	}
	if got := readFile(t, path); got != storageTemplate {
		t.Errorf("template modified while locked: %q", got)
	}
}

func TestRenderFileRecordsSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	path := writeTemplate(t, storageTemplate)
	r := New(Options{Tracer: tp.Tracer("test")})

	if _, err := r.RenderFile(context.Background(), path, storageSubs("p", "l", "pw-secret")); err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}
	if _, err := r.RenderFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("RenderFile() on missing file error = nil")
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("first span status = %v, want Ok", spans[0].Status.Code)
	}
	if spans[1].Status.Code != codes.Error {
		t.Errorf("second span status = %v, want Error", spans[1].Status.Code)
	}
	for _, attr := range spans[0].Attributes {
		if strings.Contains(attr.Value.Emit(), "pw-secret") {
			t.Errorf("span attribute %s leaks a value", attr.Key)
		}
	}
}
