package entitystate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oshokin/pulse-sync/internal/config"
)

// Record is the last published state of one entity.
type Record struct {
	// State is the entity's state string at publish time.
	State string `json:"state"`
	// Attributes are the entity's extra attributes at publish time.
	Attributes map[string]any `json:"attributes,omitempty"`
	// UpdatedAt is when the record was written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Repository defines persistence operations for entity states.
type Repository interface {
	Load(ctx context.Context, entityID string) (*Record, error)
	Save(ctx context.Context, entityID string, record *Record) error
}

// FileRepository persists entity states to a single JSON file on disk,
// keyed by entity unique ID.
type FileRepository struct {
	// path is the filesystem location of the JSON state file.
	path string
	// mu protects concurrent access to the state file.
	mu sync.Mutex
}

// ErrNotFound is returned when no record exists for the entity yet.
var ErrNotFound = errors.New("entity state not found")

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads one entity's record from disk.
func (r *FileRepository) Load(_ context.Context, entityID string) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.read()
	if err != nil {
		return nil, err
	}

	record, ok := records[entityID]
	if !ok {
		return nil, ErrNotFound
	}

	return record, nil
}

// Save writes one entity's record, preserving the records of other entities.
func (r *FileRepository) Save(_ context.Context, entityID string, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	records, err := r.read()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	if records == nil {
		records = make(map[string]*Record, 1)
	}

	records[entityID] = record

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entity states: %w", err)
	}

	if err := os.WriteFile(r.path, data, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("write entity states: %w", err)
	}

	return nil
}

// read loads the full record map, mapping a missing file to ErrNotFound.
func (r *FileRepository) read() (map[string]*Record, error) {
	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read entity states: %w", err)
	}

	var records map[string]*Record
	if err = json.Unmarshal(contents, &records); err != nil {
		return nil, fmt.Errorf("decode entity states: %w", err)
	}

	return records, nil
}
