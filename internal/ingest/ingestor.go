// Package ingest streams log files through the line parser.
package ingest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/parser"
	"github.com/dfrtlabs/loglens/internal/utils"
)

// DefaultMaxLineBytes bounds the memory used for a single physical line.
const DefaultMaxLineBytes = 1 << 20

var (
	// ErrInvalidInput is returned when no file paths are supplied.
	ErrInvalidInput = errors.New("no file paths provided for analysis")
	// ErrNoAccessibleFiles is returned when none of the paths is a readable regular file.
	ErrNoAccessibleFiles = errors.New("no valid, accessible file paths provided")
	// ErrNotRegular is wrapped by FileAccessError for directories and devices.
	ErrNotRegular = errors.New("path is not a regular file")
)

// FileAccessError reports a path that cannot be read.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot access file %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error { return e.Err }

// ErrorKind classifies the failure as a per-file access problem.
func (e *FileAccessError) ErrorKind() utils.ErrorKind { return utils.KindFileAccess }

// CheckFile verifies that path references an existing regular file.
func CheckFile(path string) error {
	if path == "" {
		return &FileAccessError{Path: path, Err: errors.New("empty path")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &FileAccessError{Path: path, Err: err}
	}
	if !info.Mode().IsRegular() {
		return &FileAccessError{Path: path, Err: ErrNotRegular}
	}
	return nil
}

// ValidatePaths rejects an empty batch or one in which no path is accessible.
// It returns the number of accessible paths.
func ValidatePaths(paths []string) (int, error) {
	if len(paths) == 0 {
		return 0, utils.NewKindError(utils.KindInvalidInput, "validate paths", "empty path list", ErrInvalidInput)
	}
	accessible := 0
	for _, p := range paths {
		if CheckFile(p) == nil {
			accessible++
		}
	}
	if accessible == 0 {
		return 0, utils.NewKindError(utils.KindNoAccessibleFiles, "validate paths",
			fmt.Sprintf("%d path(s) checked", len(paths)), ErrNoAccessibleFiles)
	}
	return accessible, nil
}

// FileResult is the ordered outcome of ingesting one file.
type FileResult struct {
	Path    string
	Entries []models.LogEntry
	Lines   int
	Skipped int

	// Malformed counts kept lines that had a field zeroed during parsing.
	Malformed int
}

// Ingestor reads files line by line and applies the parser to each non-empty line.
type Ingestor struct {
	parser       *parser.Parser
	logger       *slog.Logger
	maxLineBytes int
}

// NewIngestor constructs an Ingestor; maxLineBytes <= 0 selects DefaultMaxLineBytes.
func NewIngestor(logger *slog.Logger, p *parser.Parser, maxLineBytes int) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	if p == nil {
		p = parser.New(parser.DefaultOptions())
	}
	if maxLineBytes <= 0 {
		maxLineBytes = DefaultMaxLineBytes
	}
	return &Ingestor{parser: p, logger: logger, maxLineBytes: maxLineBytes}
}

// IngestFile streams path and returns its parsed entries in line order.
// Lines with an undecodable field are kept and logged; access and read failures are returned.
func (i *Ingestor) IngestFile(ctx context.Context, path string) (FileResult, error) {
	result := FileResult{Path: path, Entries: []models.LogEntry{}}
	if err := CheckFile(path); err != nil {
		return result, err
	}

	f, err := os.Open(path)
	if err != nil {
		return result, &FileAccessError{Path: path, Err: err}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), i.maxLineBytes)
	scanner.Split(ScanAnyLines)

	lineNumber := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		lineNumber++
		entry, ok, perr := i.parser.Parse(scanner.Text(), lineNumber)
		if perr != nil {
			if !ok {
				result.Skipped++
				i.logger.Warn("skipping malformed line",
					slog.String("path", path),
					slog.Int("line", lineNumber),
					slog.Any("error", perr))
				continue
			}
			result.Malformed++
			i.logger.Warn("keeping line with undecodable field",
				slog.String("path", path),
				slog.Int("line", lineNumber),
				slog.Any("error", perr))
		}
		if !ok {
			continue
		}
		entry.Source = path
		result.Entries = append(result.Entries, entry)
	}
	result.Lines = lineNumber
	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("error reading file %s: %w", path, err)
	}
	return result, nil
}

// ScanAnyLines is a bufio.SplitFunc that accepts \n, \r\n and bare \r terminators.
func ScanAnyLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if idx := bytes.IndexAny(data, "\r\n"); idx >= 0 {
		if data[idx] == '\n' {
			return idx + 1, data[:idx], nil
		}
		if idx+1 < len(data) {
			if data[idx+1] == '\n' {
				return idx + 2, data[:idx], nil
			}
			return idx + 1, data[:idx], nil
		}
		if !atEOF {
			// A trailing \r may be the first half of \r\n.
			return 0, nil, nil
		}
		return idx + 1, data[:idx], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}
