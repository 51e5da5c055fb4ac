package seed

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const ledgerVersion = 2

// ledger remembers which ids a manifest created, keyed by manifest name and
// then by the series or event key inside that manifest.
type ledger struct {
	Version   int                     `json:"version"`
	UpdatedAt string                  `json:"updated_at,omitempty"`
	Manifests map[string]*manifestIDs `json:"manifests"`
}

type manifestIDs struct {
	Series map[string]string `json:"series,omitempty"`
	Events map[string]string `json:"events,omitempty"`
}

func newLedger() *ledger {
	return &ledger{Version: ledgerVersion, Manifests: map[string]*manifestIDs{}}
}

// openLedger reads the ledger at path. A blank path or missing file yields an
// empty ledger.
func openLedger(path string) (*ledger, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return newLedger(), nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return newLedger(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed ledger: %w", err)
	}
	l := newLedger()
	if err := json.Unmarshal(data, l); err != nil {
		return nil, fmt.Errorf("decode seed ledger %s: %w", path, err)
	}
	if l.Version != ledgerVersion {
		return nil, fmt.Errorf("seed ledger %s has version %d, want %d", path, l.Version, ledgerVersion)
	}
	if l.Manifests == nil {
		l.Manifests = map[string]*manifestIDs{}
	}
	return l, nil
}

func (l *ledger) scope(manifest string) *manifestIDs {
	ids := l.Manifests[manifest]
	if ids == nil {
		ids = &manifestIDs{}
		l.Manifests[manifest] = ids
	}
	if ids.Series == nil {
		ids.Series = map[string]string{}
	}
	if ids.Events == nil {
		ids.Events = map[string]string{}
	}
	return ids
}

func (l *ledger) seriesID(manifest, key string) string {
	return l.scope(manifest).Series[strings.TrimSpace(key)]
}

func (l *ledger) setSeriesID(manifest, key, id string) {
	l.scope(manifest).Series[strings.TrimSpace(key)] = id
}

func (l *ledger) eventID(manifest, key string) string {
	return l.scope(manifest).Events[strings.TrimSpace(key)]
}

func (l *ledger) setEventID(manifest, key, id string) {
	l.scope(manifest).Events[strings.TrimSpace(key)] = id
}

// save writes the ledger through a temp file in the target directory so a
// crash never leaves a truncated file behind.
func (l *ledger) save(path string, now time.Time) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	l.Version = ledgerVersion
	l.UpdatedAt = now.UTC().Format(time.RFC3339)
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("encode seed ledger: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create seed ledger dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".seed-ledger-*")
	if err != nil {
		return fmt.Errorf("create seed ledger: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write seed ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close seed ledger: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace seed ledger: %w", err)
	}
	return nil
}
