package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/IshaanNene/gameharvest/internal/types"
)

// Interchange file names written between stages.
const (
	HomepageFile = "step1_homepage_games.json"
	DetailFile   = "step2_detailed_games.json"
	MergedFile   = "merged_scraped_games.json"
)

var errMissingGames = errors.New(`missing "games" array`)

// SaveEnvelope writes env as indented JSON to path, replacing any previous
// file atomically.
func SaveEnvelope[T any](path string, env *types.Envelope[T]) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &types.StorageError{Backend: "interchange", Err: fmt.Errorf("create output dir: %w", err)}
	}

	env.TotalCount = len(env.Games)
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return &types.StorageError{Backend: "interchange", Err: fmt.Errorf("encode %s: %w", path, err)}
	}
	if err := writeFileAtomic(path, append(data, '\n')); err != nil {
		return &types.StorageError{Backend: "interchange", Err: err}
	}
	return nil
}

// LoadEnvelope reads an interchange file and checks its type tag.
// Any problem with the file is reported as *types.InputError naming it.
func LoadEnvelope[T any](path, typeTag string) (*types.Envelope[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.InputError{File: path, Err: err}
	}

	var raw struct {
		Type        string          `json:"type"`
		CollectedAt time.Time       `json:"collected_at"`
		Games       json.RawMessage `json:"games"`
		Failures    []types.Failure `json:"failures"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &types.InputError{File: path, Err: fmt.Errorf("decode: %w", err)}
	}
	if raw.Type != typeTag {
		return nil, &types.InputError{File: path, Err: fmt.Errorf("type tag %q, want %q", raw.Type, typeTag)}
	}
	if len(raw.Games) == 0 || string(raw.Games) == "null" {
		return nil, &types.InputError{File: path, Err: errMissingGames}
	}

	var games []T
	if err := json.Unmarshal(raw.Games, &games); err != nil {
		return nil, &types.InputError{File: path, Err: fmt.Errorf("decode games: %w", err)}
	}

	env := types.NewEnvelope(typeTag, games)
	env.Failures = raw.Failures
	if !raw.CollectedAt.IsZero() {
		env.CollectedAt = raw.CollectedAt
	}
	return env, nil
}
