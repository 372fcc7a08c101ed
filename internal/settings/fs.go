package settings

import (
	"io/fs"
	"os"

	"github.com/spf13/afero"
)

// FileSystem is the file access the loader needs.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// AferoFS adapts an afero.Fs to FileSystem.
type AferoFS struct {
	Fs afero.Fs
}

// NewAferoFS wraps fsys.
func NewAferoFS(fsys afero.Fs) AferoFS {
	return AferoFS{Fs: fsys}
}

// ReadFile reads the entire file at path.
func (a AferoFS) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(a.Fs, path)
}

// Stat returns file info for path.
func (a AferoFS) Stat(path string) (fs.FileInfo, error) {
	return a.Fs.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}
