package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dfrtlabs/loglens/internal/utils"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func newTestIngestor(maxLine int) *Ingestor {
	return NewIngestor(utils.DiscardLogger(), nil, maxLine)
}

func TestIngestFileLineEndings(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mixed.log", "first error\r\nsecond warn\rthird info\n\n  \nfifth")

	res, err := newTestIngestor(0).IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(res.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(res.Entries))
	}
	wantLines := []int{1, 2, 3, 6}
	for i, e := range res.Entries {
		if e.LineNumber != wantLines[i] {
			t.Errorf("entry %d: expected line %d, got %d", i, wantLines[i], e.LineNumber)
		}
		if e.Source != path {
			t.Errorf("entry %d: expected source %s, got %s", i, path, e.Source)
		}
	}
	if res.Lines != 6 {
		t.Fatalf("expected 6 physical lines, got %d", res.Lines)
	}
}

func TestIngestEmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.log", "")
	res, err := newTestIngestor(0).IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("expected success for empty file, got %v", err)
	}
	if len(res.Entries) != 0 || res.Entries == nil {
		t.Fatalf("expected empty non-nil entries, got %#v", res.Entries)
	}
}

func TestIngestKeepsLineWithOverflowingEventID(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.log", "ok line\neventid=99999999999999999999999 failed login user=root\nlast line\n")
	res, err := newTestIngestor(0).IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if res.Skipped != 0 || res.Malformed != 1 || len(res.Entries) != 3 {
		t.Fatalf("expected 3 entries with 1 malformed, got entries=%d skipped=%d malformed=%d",
			len(res.Entries), res.Skipped, res.Malformed)
	}
	kept := res.Entries[1]
	if kept.LineNumber != 2 || kept.EventID != 0 || kept.User != "root" {
		t.Fatalf("unexpected kept entry %+v", kept)
	}
}

func TestIngestMissingAndDirectory(t *testing.T) {
	dir := t.TempDir()
	ing := newTestIngestor(0)

	_, err := ing.IngestFile(context.Background(), filepath.Join(dir, "nope.log"))
	var accessErr *FileAccessError
	if !errors.As(err, &accessErr) {
		t.Fatalf("expected FileAccessError for missing file, got %v", err)
	}
	if kind := utils.KindOf(fmt.Errorf("ingest: %w", err)); kind != utils.KindFileAccess {
		t.Fatalf("expected %s, got %s", utils.KindFileAccess, kind)
	}

	_, err = ing.IngestFile(context.Background(), dir)
	if !errors.Is(err, ErrNotRegular) {
		t.Fatalf("expected ErrNotRegular for directory, got %v", err)
	}
}

func TestIngestLineTooLong(t *testing.T) {
	path := writeFile(t, t.TempDir(), "long.log", strings.Repeat("a", 4096)+"\n")
	_, err := newTestIngestor(1024).IngestFile(context.Background(), path)
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", err)
	}
}

func TestIngestHonoursCancellation(t *testing.T) {
	path := writeFile(t, t.TempDir(), "a.log", "one\ntwo\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newTestIngestor(0).IngestFile(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestValidatePaths(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.log", "x\n")

	if _, err := ValidatePaths(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if utils.KindOf(func() error { _, err := ValidatePaths(nil); return err }()) != utils.KindInvalidInput {
		t.Fatalf("expected invalid input kind")
	}
	if _, err := ValidatePaths([]string{"/nonexistent", dir}); !errors.Is(err, ErrNoAccessibleFiles) {
		t.Fatalf("expected ErrNoAccessibleFiles, got %v", err)
	}
	n, err := ValidatePaths([]string{"/nonexistent", good})
	if err != nil || n != 1 {
		t.Fatalf("expected one accessible path, got %d, %v", n, err)
	}
}

func TestScanAnyLinesTrailingCR(t *testing.T) {
	adv, tok, err := ScanAnyLines([]byte("abc\r"), false)
	if err != nil || adv != 0 || tok != nil {
		t.Fatalf("expected request for more data, got %d %q %v", adv, tok, err)
	}
	adv, tok, _ = ScanAnyLines([]byte("abc\r"), true)
	if adv != 4 || string(tok) != "abc" {
		t.Fatalf("expected final token abc, got %d %q", adv, tok)
	}
}
