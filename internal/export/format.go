package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/dfrtlabs/loglens/internal/models"
	"github.com/dfrtlabs/loglens/internal/utils"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
)

// ParseFormat resolves a user-supplied format name. Empty selects JSON.
func ParseFormat(value string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(value))) {
	case "", FormatJSON:
		return FormatJSON, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatText, "txt", "report":
		return FormatText, nil
	default:
		return "", utils.NewKindError(utils.KindInvalidInput, "export", fmt.Sprintf("unsupported format %q", value), nil)
	}
}

// ContentType returns the MIME type of documents in format f.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Render encodes result in format f. CSV covers the result's entries only.
func Render(result *models.AnalysisResult, f Format, generated time.Time) ([]byte, error) {
	switch f {
	case FormatJSON:
		return JSON(result)
	case FormatCSV:
		if result == nil {
			return nil, utils.NewKindError(utils.KindInvalidInput, "export csv", "no analysis result", nil)
		}
		var buf bytes.Buffer
		if err := CSV(&buf, result.Entries); err != nil {
			return nil, utils.NewAppError("export csv", "write entries", err)
		}
		return buf.Bytes(), nil
	case FormatText:
		return []byte(Report(result, generated)), nil
	default:
		return nil, utils.NewKindError(utils.KindInvalidInput, "export", fmt.Sprintf("unsupported format %q", string(f)), nil)
	}
}
