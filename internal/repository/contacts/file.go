package contacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/echopulse/internal/api/wire"
	"github.com/oshokin/echopulse/internal/config"
	"github.com/oshokin/echopulse/internal/domain/contact"
	"github.com/oshokin/echopulse/internal/service/roster"
)

// FileRepository persists the roster to a JSON file on disk.
// JSON is produced and consumed via protojson using the same encoding
// as the gRPC API.
type FileRepository struct {
	// path is the filesystem location of the roster file.
	path string
	// mu protects concurrent access to the roster file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes JSON at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Load reads the roster from disk in insertion order.
// It returns roster.ErrNoSnapshot when the file does not exist yet.
func (r *FileRepository) Load(_ context.Context) ([]*contact.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, roster.ErrNoSnapshot
		}

		return nil, fmt.Errorf("read roster file: %w", err)
	}

	var message structpb.Struct
	if err = protojson.Unmarshal(contents, &message); err != nil {
		return nil, fmt.Errorf("decode roster file: %w", err)
	}

	return wire.ToContacts(&message), nil
}

// Save replaces the file with contacts.
func (r *FileRepository) Save(_ context.Context, contacts []*contact.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message, err := wire.Contacts(contacts)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}

	marshalOptions := protojson.MarshalOptions{
		Multiline:       true,
		EmitUnpopulated: true,
	}

	data, err := marshalOptions.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}

	return r.replace(data)
}

// replace writes data to a temporary file next to the roster and renames it
// over the roster, so a crash never leaves a half-written file behind.
func (r *FileRepository) replace(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(r.path), "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary roster file: %w", err)
	}

	tmpPath := tmp.Name()

	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmpPath)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("write roster file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()

		return fmt.Errorf("sync roster file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close roster file: %w", err)
	}

	if err = os.Chmod(tmpPath, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod roster file: %w", err)
	}

	if err = os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("replace roster file: %w", err)
	}

	return nil
}
