package internal

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/starford/bock/internal/apperr"
	"github.com/starford/bock/internal/testutil"
)

func TestRunSearch_ExportAppliesTermFloor(t *testing.T) {
	w := testutil.NewWiki(t)
	cfg := validConfig()
	cfg.App.LogLevel = 8
	cfg.Wiki.Path = w.Root
	cfg.Export.Path = filepath.Join(t.TempDir(), "articles.db")

	var out bytes.Buffer
	err := RunSearch(context.Background(), "ab", true, WithConfig(cfg), WithOutput(&out))
	if !errors.Is(err, apperr.ErrInvalidQuery) {
		t.Fatalf("err = %v, want invalid query", err)
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRunSearch_RelativeRoot(t *testing.T) {
	cfg := validConfig()
	cfg.App.LogLevel = 8
	cfg.Wiki.Path = "relative/wiki"

	err := RunSearch(context.Background(), "abc", false, WithConfig(cfg))
	if !errors.Is(err, apperr.ErrRootNotAbsolute) {
		t.Fatalf("err = %v, want relative root error", err)
	}
}
