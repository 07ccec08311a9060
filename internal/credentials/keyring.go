package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps each token as a separate OS keyring entry named "<service>.<key>" under the given user.
type KeyringStore struct {
	service string
	user    string
	mu      sync.Mutex
}

var _ Store = (*KeyringStore)(nil)

// NewKeyringStore creates a KeyringStore for the given service and user identifiers.
func NewKeyringStore(service, user string) (*KeyringStore, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringStore{service: service, user: user}, nil
}

func (k *KeyringStore) entry(key string) string {
	return k.service + "." + key
}

func (k *KeyringStore) get(key string) (string, error) {
	v, err := keyring.Get(k.entry(key), k.user)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return v, err
}

func (k *KeyringStore) Load(ctx context.Context) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	access, err := k.get(AccessTokenKey)
	if err != nil {
		return Credential{}, err
	}
	refresh, err := k.get(RefreshTokenKey)
	if err != nil {
		return Credential{}, err
	}

	c := Credential{AccessToken: access, RefreshToken: refresh}
	if c.IsZero() {
		return Credential{}, ErrNotFound
	}
	return c, nil
}

func (k *KeyringStore) Save(ctx context.Context, c Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := keyring.Set(k.entry(AccessTokenKey), k.user, c.AccessToken); err != nil {
		return err
	}
	return keyring.Set(k.entry(RefreshTokenKey), k.user, c.RefreshToken)
}

func (k *KeyringStore) SaveAccessToken(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	return keyring.Set(k.entry(AccessTokenKey), k.user, token)
}

func (k *KeyringStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()

	for _, key := range []string{AccessTokenKey, RefreshTokenKey} {
		if err := keyring.Delete(k.entry(key), k.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return err
		}
	}
	return nil
}
