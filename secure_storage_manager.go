package gostatement

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

const keyringServiceName = "gostatement"

type secureTokenSpec struct {
	host, warehouseID string
}

func newTokenSpec(host, warehouseID string) *secureTokenSpec {
	return &secureTokenSpec{host: host, warehouseID: warehouseID}
}

// buildKey keys tokens by host, falling back to a host wide entry when the
// warehouse is unknown.
func (t *secureTokenSpec) buildKey() string {
	key := strings.ToLower(t.host)
	if t.warehouseID != "" {
		key += "/" + t.warehouseID
	}
	return key
}

type secureStorageManager interface {
	setCredential(tokenSpec *secureTokenSpec, value string) error
	getCredential(tokenSpec *secureTokenSpec) (string, error)
	deleteCredential(tokenSpec *secureTokenSpec) error
}

var credentialsStorage secureStorageManager = newKeyringSecureStorageManager(keyring.Config{
	ServiceName:              keyringServiceName,
	KeychainTrustApplication: true,
})

type keyringSecureStorageManager struct {
	cfg keyring.Config
}

func newKeyringSecureStorageManager(cfg keyring.Config) *keyringSecureStorageManager {
	return &keyringSecureStorageManager{cfg: cfg}
}

func (ssm *keyringSecureStorageManager) open() (keyring.Keyring, error) {
	ring, err := keyring.Open(ssm.cfg)
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

func (ssm *keyringSecureStorageManager) setCredential(tokenSpec *secureTokenSpec, value string) error {
	if value == "" {
		return errors.New("no token provided")
	}
	ring, err := ssm.open()
	if err != nil {
		return err
	}
	return ring.Set(keyring.Item{
		Key:         tokenSpec.buildKey(),
		Data:        []byte(value),
		Label:       "gostatement token for " + tokenSpec.host,
		Description: "SQL statement execution access token",
	})
}

// getCredential tries the warehouse specific entry, then the host wide one.
func (ssm *keyringSecureStorageManager) getCredential(tokenSpec *secureTokenSpec) (string, error) {
	ring, err := ssm.open()
	if err != nil {
		return "", err
	}
	keys := []string{tokenSpec.buildKey()}
	if tokenSpec.warehouseID != "" {
		keys = append(keys, newTokenSpec(tokenSpec.host, "").buildKey())
	}
	for _, key := range keys {
		item, err := ring.Get(key)
		if errors.Is(err, keyring.ErrKeyNotFound) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("reading keyring item %v: %w", key, err)
		}
		logger.Debugf("read token for %v from the keyring", key)
		return string(item.Data), nil
	}
	return "", nil
}

func (ssm *keyringSecureStorageManager) deleteCredential(tokenSpec *secureTokenSpec) error {
	ring, err := ssm.open()
	if err != nil {
		return err
	}
	if err = ring.Remove(tokenSpec.buildKey()); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}
	return nil
}

// StoreTokenInKeyring saves token in the OS credential store for host. An
// empty warehouseID stores a host wide token.
func StoreTokenInKeyring(host, warehouseID, token string) error {
	return credentialsStorage.setCredential(newTokenSpec(host, warehouseID), token)
}

// DeleteTokenFromKeyring removes a token stored with StoreTokenInKeyring.
func DeleteTokenFromKeyring(host, warehouseID string) error {
	return credentialsStorage.deleteCredential(newTokenSpec(host, warehouseID))
}
