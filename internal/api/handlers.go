package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dfrtlabs/loglens/internal/detectors"
	"github.com/dfrtlabs/loglens/internal/export"
	"github.com/dfrtlabs/loglens/internal/models"
)

// RunRequest starts an analysis. Options not present in the request keep their defaults.
type RunRequest struct {
	Paths   []string               `json:"paths"`
	Options models.AnalysisOptions `json:"options"`
}

// AnalysisRef identifies a stored analysis.
type AnalysisRef struct {
	AnalysisID string `json:"analysisId"`
}

// QueryRequest selects entries of a stored analysis.
type QueryRequest struct {
	AnalysisID string                `json:"analysisId"`
	Filter     detectors.EntryFilter `json:"filter"`
	Limit      int                   `json:"limit"`
}

// QueryResponse carries the matching entries.
type QueryResponse struct {
	AnalysisID string            `json:"analysisId"`
	Total      int               `json:"total"`
	Entries    []models.LogEntry `json:"entries"`
}

// ExportRequest asks for a stored analysis in one of the export formats.
type ExportRequest struct {
	AnalysisID string `json:"analysisId"`
	Format     string `json:"format"`
}

// ExportResponse carries an exported document as text.
type ExportResponse struct {
	AnalysisID  string `json:"analysisId"`
	Format      string `json:"format"`
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// FromStructRunRequest decodes a RunAnalysis request.
func FromStructRunRequest(in *structpb.Struct) (RunRequest, error) {
	req := RunRequest{Options: models.DefaultAnalysisOptions()}
	if err := decodeStruct(in, &req); err != nil {
		return RunRequest{}, err
	}
	if len(req.Paths) == 0 {
		return RunRequest{}, fmt.Errorf("paths are required")
	}
	return req, nil
}

// FromStructAnalysisRef decodes a GetAnalysis request.
func FromStructAnalysisRef(in *structpb.Struct) (AnalysisRef, error) {
	var ref AnalysisRef
	if err := decodeStruct(in, &ref); err != nil {
		return AnalysisRef{}, err
	}
	if strings.TrimSpace(ref.AnalysisID) == "" {
		return AnalysisRef{}, fmt.Errorf("analysisId is required")
	}
	return ref, nil
}

// FromStructQueryRequest decodes a QueryEntries request.
func FromStructQueryRequest(in *structpb.Struct) (QueryRequest, error) {
	var req QueryRequest
	if err := decodeStruct(in, &req); err != nil {
		return QueryRequest{}, err
	}
	if strings.TrimSpace(req.AnalysisID) == "" {
		return QueryRequest{}, fmt.Errorf("analysisId is required")
	}
	if req.Limit < 0 {
		return QueryRequest{}, fmt.Errorf("limit must not be negative")
	}
	return req, nil
}

// FromStructExportRequest decodes an ExportAnalysis request.
func FromStructExportRequest(in *structpb.Struct) (ExportRequest, error) {
	var req ExportRequest
	if err := decodeStruct(in, &req); err != nil {
		return ExportRequest{}, err
	}
	if strings.TrimSpace(req.AnalysisID) == "" {
		return ExportRequest{}, fmt.Errorf("analysisId is required")
	}
	return req, nil
}

// ToStructResult encodes an analysis result using the JSON export shape.
func ToStructResult(result *models.AnalysisResult) (*structpb.Struct, error) {
	data, err := export.JSON(result)
	if err != nil {
		return nil, err
	}
	return structFromJSON(data)
}

// FromStructResult decodes a result produced by ToStructResult.
func FromStructResult(in *structpb.Struct) (*models.AnalysisResult, error) {
	var result models.AnalysisResult
	if err := decodeStruct(in, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ToStruct encodes any JSON-serialisable response value.
func ToStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return structFromJSON(data)
}

// FromStruct decodes a Struct into v, rejecting unknown fields.
func FromStruct(in *structpb.Struct, v any) error {
	return decodeStruct(in, v)
}

func structFromJSON(data []byte) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("convert to struct: %w", err)
	}
	return out, nil
}

func decodeStruct(in *structpb.Struct, v any) error {
	if in == nil {
		return fmt.Errorf("request is nil")
	}
	data, err := protojson.Marshal(in)
	if err != nil {
		return fmt.Errorf("read request: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
