package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists the credential pair as a JSON document.
// Writes use temp file + rename for crash safety.
type FileStore struct {
	filePath string
	mu       sync.Mutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a FileStore for the given path, creating parent directories
// with 0700 permissions if they don't exist.
func NewFileStore(filePath string) (*FileStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o700); err != nil {
		return nil, err
	}

	return &FileStore{filePath: filePath}, nil
}

// Load returns the stored pair. Returns an error if the file has permissions broader than 0600.
func (f *FileStore) Load(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.read()
}

func (f *FileStore) Save(ctx context.Context, c Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.write(ctx, c)
}

func (f *FileStore) SaveAccessToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	c, err := f.read()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	c.AccessToken = token
	return f.write(ctx, c)
}

func (f *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.filePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (f *FileStore) read() (Credential, error) {
	info, err := os.Stat(f.filePath)
	if errors.Is(err, fs.ErrNotExist) {
		return Credential{}, ErrNotFound
	}
	if err != nil {
		return Credential{}, err
	}
	if info.Mode().Perm() != 0o600 {
		return Credential{}, fmt.Errorf("insecure permissions on %s: %04o (expected 0600)", f.filePath, info.Mode().Perm())
	}

	data, err := os.ReadFile(f.filePath)
	if err != nil {
		return Credential{}, err
	}

	var c Credential
	if err := json.Unmarshal(data, &c); err != nil {
		return Credential{}, fmt.Errorf("corrupt credentials file %s: %w", f.filePath, err)
	}
	if c.IsZero() {
		return Credential{}, ErrNotFound
	}
	return c, nil
}

func (f *FileStore) write(ctx context.Context, c Credential) error {
	data, err := json.Marshal(c)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(f.filePath), "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(data); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tempFile.Chmod(0o600); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	return os.Rename(tempName, f.filePath)
}
