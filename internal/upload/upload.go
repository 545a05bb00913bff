// Package upload stores proof-of-payment files for the transition workflow.
package upload

import (
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/afero"
)

// allowedExtensions lists the accepted proof file types.
var allowedExtensions = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".doc":  true,
	".docx": true,
}

// File is an incoming upload: the client-supplied name plus its content.
type File struct {
	Name    string
	Content io.Reader
}

// FileStore writes uploads beneath a base directory, one subdirectory per lead.
type FileStore struct {
	fs      afero.Fs
	baseDir string
	maxSize int64
}

// New creates a FileStore rooted at baseDir on the OS filesystem.
func New(baseDir string, maxSize int64) *FileStore {
	return NewWithFs(afero.NewOsFs(), baseDir, maxSize)
}

// NewWithFs creates a FileStore on an explicit filesystem. Tests pass an
// afero.MemMapFs.
func NewWithFs(fs afero.Fs, baseDir string, maxSize int64) *FileStore {
	if maxSize <= 0 {
		maxSize = 10 << 20
	}
	return &FileStore{fs: fs, baseDir: baseDir, maxSize: maxSize}
}

// Allowed reports whether the file extension is an accepted proof type.
func Allowed(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Save validates the extension and writes the file, returning the stored path.
// Stored names are prefixed with a UUID so repeated uploads never collide.
func (s *FileStore) Save(leadID string, f File) (string, error) {
	if f.Name == "" || f.Content == nil {
		return "", eris.New("upload: missing file")
	}
	if !Allowed(f.Name) {
		return "", eris.Errorf("upload: file type not allowed: %s", filepath.Ext(f.Name))
	}

	dir := filepath.Join(s.baseDir, leadID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return "", eris.Wrapf(err, "upload: mkdir %s", dir)
	}

	name := uuid.New().String() + "_" + filepath.Base(f.Name)
	path := filepath.Join(dir, name)

	out, err := s.fs.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "upload: create %s", path)
	}
	defer out.Close()

	n, err := io.Copy(out, io.LimitReader(f.Content, s.maxSize+1))
	if err != nil {
		_ = s.fs.Remove(path)
		return "", eris.Wrapf(err, "upload: write %s", path)
	}
	if n > s.maxSize {
		_ = s.fs.Remove(path)
		return "", eris.Errorf("upload: file exceeds %d bytes", s.maxSize)
	}

	return path, nil
}

// Remove deletes a previously stored file. Used to compensate when the
// follow-up database write fails.
func (s *FileStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	return eris.Wrapf(s.fs.Remove(path), "upload: remove %s", path)
}

// Stat returns the size and modification time of a stored file.
func (s *FileStore) Stat(path string) (int64, time.Time, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return 0, time.Time{}, eris.Wrapf(err, "upload: stat %s", path)
	}
	return info.Size(), info.ModTime(), nil
}
