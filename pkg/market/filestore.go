package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/zeromicro/go-zero/core/logx"
)

// FileStore keeps instrument state in a JSON document keyed by symbol.
// Writes go to a temp file that is renamed over the target.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by path. The parent directory is created on first write.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = filepath.Join("data", "market.json")
	}
	return &FileStore{path: path}
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

// Load implements Store. A missing file is an empty market; records that
// fail to decode are logged and skipped.
func (s *FileStore) Load(ctx context.Context) ([]Instrument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	out := make([]Instrument, 0, len(state))
	for symbol, inst := range state {
		inst.Symbol = symbol
		out = append(out, inst)
	}
	SortBySymbol(out)
	return out, nil
}

// SaveBatch implements Store.
func (s *FileStore) SaveBatch(ctx context.Context, batch []Instrument) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateBatch(batch); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.readLocked()
	if err != nil {
		return err
	}
	for _, inst := range batch {
		state[inst.Symbol] = inst
	}
	return s.writeLocked(state)
}

func (s *FileStore) readLocked() (map[string]Instrument, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]Instrument), nil
	}
	if err != nil {
		return nil, fmt.Errorf("market: read %s: %w", s.path, err)
	}
	state := make(map[string]Instrument)
	if len(data) == 0 {
		return state, nil
	}
	var records map[string]json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("market: decode %s: %w", s.path, err)
	}
	for symbol, raw := range records {
		var inst Instrument
		if err := json.Unmarshal(raw, &inst); err != nil {
			logx.Errorf("market: skip %s in %s: %v", symbol, s.path, err)
			continue
		}
		state[symbol] = inst
	}
	return state, nil
}

func (s *FileStore) writeLocked(state map[string]Instrument) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("market: encode state: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("market: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".market-*.json")
	if err != nil {
		return fmt.Errorf("market: temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("market: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("market: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("market: replace %s: %w", s.path, err)
	}
	return nil
}
