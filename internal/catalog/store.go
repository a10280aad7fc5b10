package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
)

//go:embed data/schemes.json
var embeddedCatalog []byte

//go:embed schema.json
var catalogSchema []byte

// ErrUnavailable signals that the scheme catalog could not be loaded. It is
// fatal for the process: requests must not be served without a catalog.
var ErrUnavailable = errors.New("scheme catalog is unavailable")

// Store holds the catalog snapshot. The snapshot is loaded once at startup and
// never mutated; a future reload would atomically swap the whole pointer, so
// the read path needs no locking.
type Store struct {
	snapshot atomic.Pointer[Schemes]
	logger   *zap.Logger
}

// Load builds a Store from the file at path, or from the embedded default
// catalog when path is empty. The raw document is validated against the
// catalog JSON schema before decoding.
func Load(path string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	data := embeddedCatalog
	source := "embedded"
	if path = strings.TrimSpace(path); path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %q: %w", ErrUnavailable, path, err)
		}
		source = path
	}

	schemes, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	store, err := New(schemes, logger)
	if err != nil {
		return nil, err
	}

	logger.Info("catalog loaded",
		zap.String("source", source),
		zap.Int("schemes", schemes.Len()),
	)

	return store, nil
}

// New builds a Store around an already-assembled catalog. Load is the normal
// entry point; New exists for programmatic catalogs.
func New(schemes *Schemes, logger *zap.Logger) (*Store, error) {
	if schemes == nil || schemes.Len() == 0 {
		return nil, fmt.Errorf("%w: empty catalog", ErrUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	store := &Store{logger: logger}
	store.snapshot.Store(schemes)
	return store, nil
}

// Snapshot returns the current immutable catalog. The returned value must not
// be modified by callers.
func (s *Store) Snapshot() *Schemes {
	return s.snapshot.Load()
}

// Replace atomically swaps the catalog snapshot. In-flight requests keep the
// snapshot they already read.
func (s *Store) Replace(schemes *Schemes) error {
	if schemes == nil || schemes.Len() == 0 {
		return fmt.Errorf("%w: refusing to swap in an empty catalog", ErrUnavailable)
	}
	s.snapshot.Store(schemes)
	s.logger.Info("catalog replaced", zap.Int("schemes", schemes.Len()))
	return nil
}

func parse(data []byte) (*Schemes, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(catalogSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validating catalog document: %w", err)
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return nil, fmt.Errorf("catalog document does not match schema: %s", strings.Join(details, "; "))
	}

	var items []*Scheme
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decoding catalog document: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	for _, scheme := range items {
		if _, ok := seen[scheme.ID]; ok {
			return nil, fmt.Errorf("duplicate scheme id %q", scheme.ID)
		}
		seen[scheme.ID] = struct{}{}
	}

	return &Schemes{Items: items}, nil
}
