// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/spotctl/internal/credentials"
)

// ErrStoreUnavailable is returned by every [FailingStore] method.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// FailingStore is a [credentials.Store] whose every call fails.
type FailingStore struct{}

var _ credentials.Store = FailingStore{}

func (FailingStore) Load(context.Context) (credentials.Credential, error) {
	return credentials.Credential{}, ErrStoreUnavailable
}
func (FailingStore) Save(context.Context, credentials.Credential) error { return ErrStoreUnavailable }
func (FailingStore) SaveAccessToken(context.Context, string) error      { return ErrStoreUnavailable }
func (FailingStore) Clear(context.Context) error                        { return ErrStoreUnavailable }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
