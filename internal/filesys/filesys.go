// Package filesys provides file system abstractions for resolvr.
// It defines small interfaces for the file operations the config loader
// and the output writer need, with an implementation that delegates to
// the standard library, so both remain unit-testable with a fake FS.
package filesys

import (
	"io/fs"
	"os"
	"path/filepath"
)

// ReadFS is the tiny surface the config and input loaders need.
type ReadFS interface {
	Open(string) (*os.File, error)
}

// WriteFS is what the output writer needs for its atomic write.
type WriteFS interface {
	MkdirAll(string, os.FileMode) error
	CreateTemp(string, string) (*os.File, error)
	Rename(string, string) error
	Remove(string) error
	Chmod(string, os.FileMode) error
}

// OS returns a file system implementation that delegates to the
// standard library. It satisfies both ReadFS and WriteFS.
func OS() OsFS {
	return OsFS{}
}

// OsFS implements ReadFS and WriteFS against the local disk.
type OsFS struct{}

func (OsFS) Open(p string) (*os.File, error)              { return os.Open(p) }
func (OsFS) MkdirAll(p string, m os.FileMode) error       { return os.MkdirAll(p, m) }
func (OsFS) CreateTemp(dir, pat string) (*os.File, error) { return os.CreateTemp(dir, pat) }
func (OsFS) Rename(old, newName string) error             { return os.Rename(old, newName) }
func (OsFS) Remove(p string) error                        { return os.Remove(p) }
func (OsFS) Chmod(p string, m os.FileMode) error          { return os.Chmod(p, m) }

var (
	_ ReadFS  = OsFS{}
	_ WriteFS = OsFS{}
)

// AtomicWrite atomically persists data to dst with the provided file
// mode: temp file in the same dir, fsync + close, chmod, rename. A
// partially written results file never replaces dst.
func AtomicWrite(fsys WriteFS, dst string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(dst)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := fsys.CreateTemp(dir, ".resolvr-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(data); err == nil {
		err = tmp.Sync()
	}
	cerr := tmp.Close()
	if err == nil {
		err = cerr
	}
	if err == nil {
		err = fsys.Chmod(tmp.Name(), perm)
	}
	if err == nil {
		err = fsys.Rename(tmp.Name(), dst)
	}
	if err != nil {
		_ = fsys.Remove(tmp.Name())
		return err
	}
	return nil
}
