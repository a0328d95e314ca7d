package report

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"covr/internal/gcov"
	"covr/internal/sourcepath"
)

// Current schema version - increment when cacheIndex format changes
const cacheSchemaVersion uint16 = 1

const cacheIndexName = "cache.mp"

// Fingerprint is a content hash over the full input artifact byte set plus
// the report configuration. Any change to artifacts, filter, template or
// totals mode produces a different fingerprint.
type Fingerprint [32]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// ComputeFingerprint hashes every discovered artifact's path and bytes in
// deterministic order, then the configuration.
func ComputeFingerprint(pairs []gcov.Pair, template string, filter sourcepath.Set, countExcluded bool) (Fingerprint, error) {
	h := sha256.New()
	hashFile := func(path string) error {
		if path == "" {
			return nil
		}
		_, _ = io.WriteString(h, path)
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to read %q for fingerprinting: %w", path, err)
		}
		defer f.Close()
		if _, err := io.Copy(h, f); err != nil {
			return fmt.Errorf("failed to read %q for fingerprinting: %w", path, err)
		}
		return nil
	}
	for _, pair := range pairs {
		if err := hashFile(pair.GraphPath); err != nil {
			return Fingerprint{}, err
		}
		if err := hashFile(pair.CountPath); err != nil {
			return Fingerprint{}, err
		}
	}
	_, _ = io.WriteString(h, "\x00template="+template)
	_, _ = io.WriteString(h, "\x00include="+filter.String())
	_, _ = fmt.Fprintf(h, "\x00count-excluded=%t", countExcluded)

	var fp Fingerprint
	copy(fp[:], h.Sum(nil))
	return fp, nil
}

type cacheIndex struct {
	Schema      uint16
	Fingerprint string
	Entry       string // entry page path of the report tree
}

// Cache remembers the fingerprint of the last rendered report so an exact
// repeat skips rendering entirely.
type Cache struct {
	path string
}

// OpenCache returns the cache stored in the coverage build path.
func OpenCache(covDir string) *Cache {
	return &Cache{path: filepath.Join(covDir, cacheIndexName)}
}

// Lookup returns the recorded entry page for fp. A hit requires both the
// fingerprint to match and the entry page to still exist on disk.
func (c *Cache) Lookup(fp Fingerprint) (string, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return "", false
	}
	var idx cacheIndex
	if err := msgpack.Unmarshal(data, &idx); err != nil {
		return "", false
	}
	if idx.Schema != cacheSchemaVersion || idx.Fingerprint != fp.String() {
		return "", false
	}
	if _, err := os.Stat(idx.Entry); err != nil {
		return "", false
	}
	return idx.Entry, true
}

// Record stores the fingerprint of a freshly rendered report. The index is
// replaced atomically via a temp file.
func (c *Cache) Record(fp Fingerprint, entry string) error {
	data, err := msgpack.Marshal(&cacheIndex{
		Schema:      cacheSchemaVersion,
		Fingerprint: fp.String(),
		Entry:       entry,
	})
	if err != nil {
		return fmt.Errorf("failed to encode cache index: %w", err)
	}
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %q: %w", dir, err)
	}
	f, err := os.CreateTemp(dir, "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create cache temp file: %w", err)
	}
	defer func() {
		if err := os.Remove(f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "failed to remove temp file: %v\n", err)
		}
	}()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	return os.Rename(f.Name(), c.path)
}
