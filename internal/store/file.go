package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/persistorai/navgraph/internal/models"
)

const (
	parcelsDir     = "parcels"
	canalLinksFile = "canal_links.json"
	docksFile      = "docks.json"
	lockFile       = ".match.lock"
)

// FileStore keeps one JSON document per parcel under <dir>/parcels and the
// water registries as JSON arrays next to it. Writes go through a temp file
// and a rename so readers never see a torn document.
type FileStore struct {
	dir string
	log *logrus.Logger

	// mu serializes writers within this process.
	mu sync.Mutex
}

// NewFileStore creates a FileStore rooted at dir, creating the parcels
// directory when missing.
func NewFileStore(dir string, log *logrus.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: empty data directory")
	}

	if err := os.MkdirAll(filepath.Join(dir, parcelsDir), 0o750); err != nil {
		return nil, fmt.Errorf("creating parcels directory: %w", err)
	}

	return &FileStore{dir: dir, log: log}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// validID rejects ids that cannot be used as a file name.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`) && !strings.HasPrefix(id, ".")
}

func (s *FileStore) parcelPath(id string) string {
	return filepath.Join(s.dir, parcelsDir, id+".json")
}

// LoadAll returns every parcel ordered by id. Files that do not decode are
// logged and skipped.
func (s *FileStore) LoadAll(ctx context.Context) ([]models.Parcel, error) {
	entries, err := os.ReadDir(filepath.Join(s.dir, parcelsDir))
	if err != nil {
		return nil, fmt.Errorf("listing parcels: %w", err)
	}

	out := make([]models.Parcel, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") || strings.HasPrefix(e.Name(), ".") {
			continue
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("loading parcels: %w", err)
		}

		id := strings.TrimSuffix(e.Name(), ".json")

		p, err := s.read(id)
		if err != nil {
			var de *models.DataError
			if errors.As(err, &de) {
				s.log.WithField("parcel_id", id).Warn("skipping parcel: " + de.Reason)
				continue
			}

			return nil, err
		}

		out = append(out, *p)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	return out, nil
}

// LoadOne returns a single parcel or models.ErrParcelNotFound.
func (s *FileStore) LoadOne(_ context.Context, id string) (*models.Parcel, error) {
	if !validID(id) {
		return nil, models.ErrParcelNotFound
	}

	p, err := s.read(id)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, models.ErrParcelNotFound
	}

	return p, err
}

func (s *FileStore) read(id string) (*models.Parcel, error) {
	path := s.parcelPath(id)

	data, err := os.ReadFile(path) //nolint:gosec // path is built from a validated id.
	if err != nil {
		return nil, fmt.Errorf("reading parcel %s: %w", id, err)
	}

	var p models.Parcel
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &models.DataError{ParcelID: id, Reason: "undecodable document: " + err.Error()}
	}

	if info, err := os.Stat(path); err == nil {
		mod := info.ModTime().UTC()
		p.UpdatedAt = &mod
	}

	p.ID = id

	return &p, nil
}

// Save writes a parcel document atomically.
func (s *FileStore) Save(ctx context.Context, id string, parcel models.Parcel) error {
	if !validID(id) || (parcel.ID != "" && parcel.ID != id) {
		return fmt.Errorf("saving parcel: invalid id %q for record %q", id, parcel.ID)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("saving parcel %s: %w", id, err)
	}

	parcel.ID = id
	parcel.UpdatedAt = nil

	data, err := json.MarshalIndent(parcel, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding parcel %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeAtomic(s.parcelPath(id), data); err != nil {
		return fmt.Errorf("saving parcel %s: %w", id, err)
	}

	return nil
}

// LoadCanalLinks reads <dir>/canal_links.json. A missing file is an empty registry.
func (s *FileStore) LoadCanalLinks(_ context.Context) ([]models.CanalLink, error) {
	var links []models.CanalLink
	if err := s.readRegistry(canalLinksFile, &links); err != nil {
		return nil, err
	}

	return links, nil
}

// LoadDocks reads <dir>/docks.json. A missing file is an empty registry.
func (s *FileStore) LoadDocks(_ context.Context) ([]models.Dock, error) {
	var docks []models.Dock
	if err := s.readRegistry(docksFile, &docks); err != nil {
		return nil, err
	}

	return docks, nil
}

func (s *FileStore) readRegistry(name string, dst any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}

	return nil
}

// Lock creates <dir>/.match.lock exclusively. It returns ErrLocked when the
// file already exists; a stale lock must be removed by hand.
func (s *FileStore) Lock(_ context.Context) (func() error, error) {
	path := filepath.Join(s.dir, lockFile)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600) //nolint:gosec // fixed name under the data dir.
	if errors.Is(err, fs.ErrExist) {
		return nil, ErrLocked
	}

	if err != nil {
		return nil, fmt.Errorf("creating lock file: %w", err)
	}

	fmt.Fprintf(f, "pid=%d started=%s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339)) //nolint:errcheck // informational only.
	f.Close()                                                                                  //nolint:errcheck,gosec // content is informational.

	var once sync.Once
	var releaseErr error

	return func() error {
		once.Do(func() {
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				releaseErr = fmt.Errorf("removing lock file: %w", err)
			}
		})

		return releaseErr
	}, nil
}

// writeAtomic writes data to a temp file in the target directory, syncs it
// and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-"+strconv.Itoa(os.Getpid())+"-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	tmpName := tmp.Name()
	cleanup := func() { os.Remove(tmpName) } //nolint:errcheck,gosec // best-effort cleanup.

	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing.
		cleanup()

		return fmt.Errorf("writing temp file: %w", err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close() //nolint:errcheck,gosec // already failing.
		cleanup()

		return fmt.Errorf("syncing temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}
