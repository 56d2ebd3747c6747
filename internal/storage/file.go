package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/IshaanNene/gameharvest/internal/types"
)

// --- JSON Storage ---

// JSONStorage writes records as a JSON array to a file on Close.
type JSONStorage struct {
	path    string
	records []types.TargetGameRecord
	mu      sync.Mutex
	logger  *slog.Logger
}

// NewJSONStorage creates a new JSON file storage.
func NewJSONStorage(outputPath string, logger *slog.Logger) (*JSONStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, &types.StorageError{Backend: "json", Err: fmt.Errorf("create output dir: %w", err)}
	}
	return &JSONStorage{
		path:    outputPath,
		records: make([]types.TargetGameRecord, 0),
		logger:  logger.With("component", "json_storage"),
	}, nil
}

func (s *JSONStorage) Name() string { return "json" }

func (s *JSONStorage) Store(records []types.TargetGameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	s.logger.Debug("records buffered", "count", len(records), "total", len(s.records))
	return nil
}

func (s *JSONStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return &types.StorageError{Backend: "json", Err: fmt.Errorf("encode JSON: %w", err)}
	}
	if err := writeFileAtomic(s.path, append(data, '\n')); err != nil {
		return &types.StorageError{Backend: "json", Err: err}
	}

	s.logger.Info("JSON written", "path", s.path, "records", len(s.records))
	return nil
}

// --- JSONL Storage ---

// JSONLStorage writes records as newline-delimited JSON (one object per line).
type JSONLStorage struct {
	path   string
	file   *os.File
	enc    *json.Encoder
	mu     sync.Mutex
	count  int
	logger *slog.Logger
}

// NewJSONLStorage creates a new JSONL file storage (streaming writes).
func NewJSONLStorage(outputPath string, logger *slog.Logger) (*JSONLStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("create output dir: %w", err)}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("create output file: %w", err)}
	}

	return &JSONLStorage{
		path:   outputPath,
		file:   f,
		enc:    json.NewEncoder(f),
		logger: logger.With("component", "jsonl_storage"),
	}, nil
}

func (s *JSONLStorage) Name() string { return "jsonl" }

func (s *JSONLStorage) Store(records []types.TargetGameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		if err := s.enc.Encode(r); err != nil {
			return &types.StorageError{Backend: "jsonl", Err: fmt.Errorf("encode JSONL: %w", err)}
		}
		s.count++
	}
	return nil
}

func (s *JSONLStorage) Close() error {
	s.logger.Info("JSONL written", "path", s.path, "records", s.count)
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// --- CSV Storage ---

var csvHeaders = []string{
	"id", "title", "image", "description", "features", "isNew", "iframe",
	"controls", "category", "playCount", "likes", "favorites", "duration",
}

// CSVStorage writes records as CSV rows. List fields are joined with "|".
type CSVStorage struct {
	path          string
	file          *os.File
	writer        *csv.Writer
	headerWritten bool
	mu            sync.Mutex
	count         int
	logger        *slog.Logger
}

// NewCSVStorage creates a new CSV file storage.
func NewCSVStorage(outputPath string, logger *slog.Logger) (*CSVStorage, error) {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: fmt.Errorf("create output dir: %w", err)}
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return nil, &types.StorageError{Backend: "csv", Err: fmt.Errorf("create output file: %w", err)}
	}

	return &CSVStorage{
		path:   outputPath,
		file:   f,
		writer: csv.NewWriter(f),
		logger: logger.With("component", "csv_storage"),
	}, nil
}

func (s *CSVStorage) Name() string { return "csv" }

func (s *CSVStorage) Store(records []types.TargetGameRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.headerWritten {
		if err := s.writer.Write(csvHeaders); err != nil {
			return &types.StorageError{Backend: "csv", Err: fmt.Errorf("write CSV header: %w", err)}
		}
		s.headerWritten = true
	}

	for _, r := range records {
		controls := make([]string, len(r.Controls))
		for i, c := range r.Controls {
			controls[i] = c.Key + ":" + c.Action
		}
		row := []string{
			strconv.Itoa(r.ID),
			r.Title,
			r.Image,
			r.Description,
			strings.Join(r.Features, "|"),
			strconv.FormatBool(r.IsNew),
			r.Iframe,
			strings.Join(controls, "|"),
			r.Category,
			strconv.Itoa(r.PlayCount),
			strconv.Itoa(r.Likes),
			strconv.Itoa(r.Favorites),
			r.Duration,
		}
		if err := s.writer.Write(row); err != nil {
			return &types.StorageError{Backend: "csv", Err: fmt.Errorf("write CSV row: %w", err)}
		}
		s.count++
	}

	s.writer.Flush()
	return s.writer.Error()
}

func (s *CSVStorage) Close() error {
	s.logger.Info("CSV written", "path", s.path, "records", s.count)
	if s.writer != nil {
		s.writer.Flush()
	}
	if s.file != nil {
		return s.file.Close()
	}
	return nil
}

// writeFileAtomic writes to a temp file and renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
