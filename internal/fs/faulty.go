package fs

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Op names a FileSystem operation that can be failed.
type Op string

const (
	OpCreate  Op = "create"
	OpRemove  Op = "remove"
	OpRename  Op = "rename"
	OpStat    Op = "stat"
	OpMkdir   Op = "mkdir"
	OpReadDir Op = "readdir"
)

type rule struct {
	op      Op
	pattern string
	err     error
}

// FaultyFS is a FileSystem wrapper that can inject errors.
type FaultyFS struct {
	FS    FileSystem
	mu    sync.Mutex
	rules []rule
}

// NewFaultyFS creates a new FaultyFS wrapping the provided FS (or Default if nil).
func NewFaultyFS(fs FileSystem) *FaultyFS {
	if fs == nil {
		fs = Default
	}
	return &FaultyFS{FS: fs}
}

// Fail makes op return err for every path whose base name contains pattern.
// An empty pattern matches every path.
func (f *FaultyFS) Fail(op Op, pattern string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{op: op, pattern: pattern, err: err})
}

// Reset removes all injected faults.
func (f *FaultyFS) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = nil
}

func (f *FaultyFS) check(op Op, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	base := filepath.Base(name)
	for _, r := range f.rules {
		if r.op == op && strings.Contains(base, r.pattern) {
			return r.err
		}
	}
	return nil
}

func (f *FaultyFS) Create(name string) (File, error) {
	if err := f.check(OpCreate, name); err != nil {
		return nil, err
	}
	return f.FS.Create(name)
}

func (f *FaultyFS) CreateTemp(dir, pattern string) (File, error) {
	if err := f.check(OpCreate, pattern); err != nil {
		return nil, err
	}
	return f.FS.CreateTemp(dir, pattern)
}

func (f *FaultyFS) Remove(name string) error {
	if err := f.check(OpRemove, name); err != nil {
		return err
	}
	return f.FS.Remove(name)
}

func (f *FaultyFS) Rename(oldpath, newpath string) error {
	if err := f.check(OpRename, newpath); err != nil {
		return err
	}
	return f.FS.Rename(oldpath, newpath)
}

func (f *FaultyFS) Stat(name string) (os.FileInfo, error) {
	if err := f.check(OpStat, name); err != nil {
		return nil, err
	}
	return f.FS.Stat(name)
}

func (f *FaultyFS) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check(OpMkdir, path); err != nil {
		return err
	}
	return f.FS.MkdirAll(path, perm)
}

func (f *FaultyFS) ReadDir(name string) ([]os.DirEntry, error) {
	if err := f.check(OpReadDir, name); err != nil {
		return nil, err
	}
	return f.FS.ReadDir(name)
}
