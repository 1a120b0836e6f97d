// Package instance resolves the on-disk layout of a named daemon instance.
package instance

import (
	"os"
	"path/filepath"
)

// BaseDir returns $STORECHAT_HOME, or ~/.storechat when unset.
func BaseDir() string {
	if dir := os.Getenv("STORECHAT_HOME"); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".storechat")
}

// Dir returns the instance-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "instances", name)
}

// SocketPath returns the gRPC Unix socket path for an instance.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "chatd.sock")
}

// LockPath returns the lock file path for an instance.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// ArchivePath returns the transcript archive database path.
func ArchivePath(name string) string {
	return filepath.Join(Dir(name), "archive.db")
}

// LogDir returns the log directory for an instance.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "chatd.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the instance directory tree with owner-only permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
