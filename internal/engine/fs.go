package engine

import "os"

// FileSystem abstracts the file-system backend. A pluggable backend may
// carry a teardown hook, invoked late in close after every file handle is
// gone.
type FileSystem interface {
	// Exists reports whether a file is present.
	Exists(path string) (bool, error)

	// Remove deletes a file.
	Remove(path string) error

	// Terminate tears the backend down. Called at most once.
	Terminate() error
}

// osFileSystem is the default backend over the OS file system.
type osFileSystem struct{}

func (osFileSystem) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (osFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (osFileSystem) Terminate() error {
	return nil
}
