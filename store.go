package wlf

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
)

// Store reads template sources and keeps compiled artifacts. Freshness of an
// artifact is decided by the store.
type Store interface {
	SourceExists(id string) bool
	ReadSource(id string) (string, error)
	// HasCompiled reports whether a valid compiled artifact exists.
	HasCompiled(id string) bool
	ReadCompiled(id string) (string, error)
	// WriteCompiled persists an artifact and returns where it was stored.
	WriteCompiled(id, text string) (string, error)
}

// Invalidator is implemented by stores that can drop compiled artifacts.
type Invalidator interface {
	Delete(id string) error
	Clear() error
}

// DefaultExtension is appended to identifiers without a known extension.
const DefaultExtension = ".wlf"

// ValidFileExtensions are the extensions of template sources.
var ValidFileExtensions = []string{".wlf", ".html", ".tmpl", ".gohtml"}

// DefaultExpiry is the age after which a compiled artifact is stale.
const DefaultExpiry = 7 * 24 * time.Hour

var reUnsafePath = regexp.MustCompile(`[^a-zA-Z0-9_\-/. ]`)

// Sanitize normalizes a template identifier and rejects identifiers that
// escape the views directory.
func Sanitize(id string) (string, error) {
	clean := reUnsafePath.ReplaceAllString(filepath.ToSlash(id), "")
	clean = strings.Trim(strings.TrimSpace(clean), "/")
	if clean == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	clean = path.Clean(clean)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return clean, nil
}

// SourcePath maps an identifier to its file below the views directory.
func SourcePath(id string) string {
	if slices.Contains(ValidFileExtensions, strings.ToLower(path.Ext(id))) {
		return id
	}
	return id + DefaultExtension
}

// FileStore reads sources from a filesystem and writes compiled artifacts as
// `<id with / replaced by _>.tmp` files ("_" and "%" percent-encoded) in a cache directory.
type FileStore struct {
	views    fs.FS
	cacheDir string
	expiry   time.Duration
	now      func() time.Time
}

var (
	_ Store       = (*FileStore)(nil)
	_ Invalidator = (*FileStore)(nil)
)

// NewFileStore creates a store over a views directory.
func NewFileStore(viewsDir, cacheDir string) *FileStore {
	return NewFileStoreFS(os.DirFS(viewsDir), cacheDir)
}

// NewFileStoreFS creates a store over a filesystem.
// When using embed.FS, pass the embedded folder as prefix.
func NewFileStoreFS(views fs.FS, cacheDir string, prefix ...string) *FileStore {
	if len(prefix) > 0 && prefix[0] != "" {
		if sub, err := fs.Sub(views, prefix[0]); err == nil {
			views = sub
		}
	}
	return &FileStore{
		views:    views,
		cacheDir: cacheDir,
		expiry:   DefaultExpiry,
		now:      time.Now,
	}
}

// WithExpiry sets the maximum age of compiled artifacts; zero disables expiry.
func (s *FileStore) WithExpiry(d time.Duration) *FileStore {
	s.expiry = d
	return s
}

// CacheDir returns the directory compiled artifacts are written to.
func (s *FileStore) CacheDir() string {
	return s.cacheDir
}

// artifactName escapes "%" and "_" before replacing "/", so distinct ids
// never share an artifact.
var artifactName = strings.NewReplacer("%", "%25", "_", "%5F", "/", "_")

func (s *FileStore) compiledPath(id string) string {
	return filepath.Join(s.cacheDir, artifactName.Replace(id)+".tmp")
}

func (s *FileStore) SourceExists(id string) bool {
	_, err := fs.Stat(s.views, SourcePath(id))
	return err == nil
}

func (s *FileStore) ReadSource(id string) (string, error) {
	p := SourcePath(id)
	raw, err := fs.ReadFile(s.views, p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: view file %q doesn't exist", ErrSourceNotFound, p)
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func (s *FileStore) HasCompiled(id string) bool {
	info, err := os.Stat(s.compiledPath(id))
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if s.expired(info) {
		return false
	}
	src, err := fs.Stat(s.views, SourcePath(id))
	if err != nil {
		return false
	}
	return !src.ModTime().After(info.ModTime())
}

func (s *FileStore) expired(info fs.FileInfo) bool {
	return s.expiry > 0 && s.now().Sub(info.ModTime()) > s.expiry
}

func (s *FileStore) ReadCompiled(id string) (string, error) {
	p := s.compiledPath(id)
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: cache file %q doesn't exist", ErrCompiledNotFound, p)
	}
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// WriteCompiled replaces the artifact atomically, so concurrent writers of the
// same identifier leave the last complete write.
func (s *FileStore) WriteCompiled(id, text string) (string, error) {
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		return "", err
	}
	p := s.compiledPath(id)
	f, err := os.CreateTemp(s.cacheDir, ".wlf-*")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	if err := os.Rename(f.Name(), p); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return p, nil
}

// Delete removes the artifact of one identifier.
func (s *FileStore) Delete(id string) error {
	err := os.Remove(s.compiledPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Clear removes every artifact.
func (s *FileStore) Clear() error {
	return s.removeArtifacts(func(fs.FileInfo) bool { return true })
}

// Prune removes the artifacts older than the expiry.
func (s *FileStore) Prune() error {
	return s.removeArtifacts(s.expired)
}

func (s *FileStore) removeArtifacts(match func(fs.FileInfo) bool) error {
	entries, err := os.ReadDir(s.cacheDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var errs []error
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".tmp" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if match(info) {
			if err := os.Remove(filepath.Join(s.cacheDir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// List returns the identifiers of every template source.
func (s *FileStore) List() ([]string, error) {
	var ids []string
	err := fs.WalkDir(s.views, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(path.Ext(p))
		if !slices.Contains(ValidFileExtensions, ext) {
			return nil
		}
		ids = append(ids, nameFromPath(p))
		return nil
	})
	return ids, err
}

// nameFromPath converts a views path to the identifier addressing it.
func nameFromPath(p string) string {
	p = filepath.ToSlash(p)
	if strings.EqualFold(path.Ext(p), DefaultExtension) {
		return strings.TrimSuffix(p, path.Ext(p))
	}
	return p
}
