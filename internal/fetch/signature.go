package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ProtonMail/gopenpgp/v2/crypto"

	"github.com/tsukumogami/provision/internal/catalog"
	"github.com/tsukumogami/provision/internal/log"
)

const (
	// maxKeySize bounds a downloaded armored public key.
	maxKeySize = 100 * 1024

	// maxSignatureSize bounds a downloaded detached signature.
	maxSignatureSize = 10 * 1024
)

// KeyCache stores vendor public keys by fingerprint so that a key is only
// downloaded once per host.
type KeyCache struct {
	dir    string
	client *http.Client
	logger log.Logger
}

// NewKeyCache creates a key cache in dir using client for key downloads.
func NewKeyCache(dir string, client *http.Client, logger log.Logger) *KeyCache {
	return &KeyCache{dir: dir, client: client, logger: logger}
}

// Get returns the key with the given fingerprint, downloading it from
// keyURL on a cache miss. The key's fingerprint must match.
func (c *KeyCache) Get(ctx context.Context, fingerprint, keyURL string) (*crypto.Key, error) {
	fingerprint = strings.ToUpper(fingerprint)

	if key, err := c.load(fingerprint); err == nil {
		return key, nil
	}

	data, err := getLimited(ctx, c.client, keyURL, maxKeySize)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key: %w", err)
	}
	key, err := parseKey(data, fingerprint)
	if err != nil {
		return nil, err
	}

	if c.dir != "" {
		if err := c.save(fingerprint, data); err != nil {
			c.logger.Warn("failed to cache public key", "fingerprint", fingerprint, "error", err)
		}
	}
	return key, nil
}

func (c *KeyCache) path(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".asc")
}

func (c *KeyCache) load(fingerprint string) (*crypto.Key, error) {
	if c.dir == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(c.path(fingerprint))
	if err != nil {
		return nil, err
	}
	key, err := parseKey(data, fingerprint)
	if err != nil {
		_ = os.Remove(c.path(fingerprint))
		return nil, err
	}
	return key, nil
}

func (c *KeyCache) save(fingerprint string, armored []byte) error {
	if err := os.MkdirAll(c.dir, 0700); err != nil {
		return err
	}
	return os.WriteFile(c.path(fingerprint), armored, 0600)
}

func parseKey(armored []byte, fingerprint string) (*crypto.Key, error) {
	key, err := crypto.NewKeyFromArmored(string(armored))
	if err != nil {
		return nil, fmt.Errorf("failed to parse PGP key: %w", err)
	}
	if got := strings.ToUpper(key.GetFingerprint()); got != fingerprint {
		return nil, fmt.Errorf("key fingerprint mismatch: expected %s, got %s", fingerprint, got)
	}
	return key, nil
}

// verifySignature checks the detached signature of the file at path.
func (f *Fetcher) verifySignature(ctx context.Context, sig *catalog.SignatureSpec, path string) error {
	key, err := f.keys.Get(ctx, sig.Fingerprint, sig.KeyURL)
	if err != nil {
		return err
	}
	sigData, err := getLimited(ctx, f.apiClient, sig.URL, maxSignatureSize)
	if err != nil {
		return fmt.Errorf("failed to fetch signature: %w", err)
	}
	return VerifyDetached(path, sigData, key)
}

// VerifyDetached verifies an armored or binary detached signature of the
// file at path against key.
func VerifyDetached(path string, sigData []byte, key *crypto.Key) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file for signature verification: %w", err)
	}

	sig, err := crypto.NewPGPSignatureFromArmored(string(sigData))
	if err != nil {
		sig = crypto.NewPGPSignature(sigData)
	}

	keyRing, err := crypto.NewKeyRing(key)
	if err != nil {
		return fmt.Errorf("failed to create keyring: %w", err)
	}
	if err := keyRing.VerifyDetached(crypto.NewPlainMessage(data), sig, 0); err != nil {
		return fmt.Errorf("signature does not match: %w", err)
	}
	return nil
}

// getLimited fetches a small resource and rejects bodies above limit.
func getLimited(ctx context.Context, client *http.Client, rawURL string, limit int64) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d from %s", resp.StatusCode, log.SanitizeURL(rawURL))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response exceeds %d bytes", limit)
	}
	return data, nil
}
