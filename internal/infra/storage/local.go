package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/AstraLink99/backend-video-processing/internal/domain/entity"
)

const processedDirName = "processed"

// ContentStore is the on-disk area shared by the ingestion service and the
// workers via path convention: uploads in the root, derived artifacts
// under processed/. There is no locking; the ingestion service keeps the
// contract by publishing a job only after SaveUpload has returned.
type ContentStore struct {
	root string
}

func NewContentStore(root string) (*ContentStore, error) {
	if err := os.MkdirAll(filepath.Join(root, processedDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create content store at %s: %w", root, err)
	}
	return &ContentStore{root: root}, nil
}

func (s *ContentStore) Root() string {
	return s.root
}

// UploadPath resolves the on-disk path of an uploaded original.
func (s *ContentStore) UploadPath(filename string) (string, error) {
	return s.join(filename)
}

// ProcessedPath resolves the on-disk path of a derived artifact.
func (s *ContentStore) ProcessedPath(filename string) (string, error) {
	return s.join(filepath.Join(processedDirName, filename))
}

func (s *ContentStore) join(rel string) (string, error) {
	path := filepath.Join(s.root, rel)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(s.root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid path %q: escapes content store", rel)
	}
	return path, nil
}

// SaveUpload streams r into the store under filename. The write goes to a
// temp file first and is fsynced before the rename, so a worker that sees
// the final path sees complete content.
func (s *ContentStore) SaveUpload(filename string, r io.Reader) (string, error) {
	dest, err := s.UploadPath(filename)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(s.root, ".upload-*")
	if err != nil {
		return "", storageErr("create temp upload", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return "", storageErr("write upload", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", storageErr("sync upload", err)
	}
	if err := tmp.Close(); err != nil {
		return "", storageErr("close upload", err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return "", storageErr("finalize upload", err)
	}
	return dest, nil
}

// SanitizeFilename reduces an externally supplied name to a safe base
// name. Path components are stripped rather than rejected so that browser
// uploads carrying full paths still work.
func SanitizeFilename(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if base == "" || base == "." || base == ".." || base == "/" {
		return "", fmt.Errorf("invalid filename %q", name)
	}
	if strings.ContainsRune(base, 0) {
		return "", fmt.Errorf("invalid filename %q", name)
	}
	return base, nil
}

// EnhancedName is the deterministic naming rule for derived artifacts.
func EnhancedName(filename string) string {
	return "enhanced_" + filename
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, entity.ErrStorageIO, err)
}
