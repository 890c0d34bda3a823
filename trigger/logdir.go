package trigger

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// DefaultLogRootName is the directory under the XDG state home that holds
// per-application logs by default.
const DefaultLogRootName = "wasm-host"

type logDirMode uint8

const (
	logDirNone logDirMode = iota
	logDirDefault
	logDirExplicit
)

// LogDir selects where component output is stored. The zero value stores
// nothing and lets guests inherit the host's streams.
type LogDir struct {
	path string
	mode logDirMode
}

// NoLogDir connects guest streams straight to the host's streams.
func NoLogDir() LogDir {
	return LogDir{mode: logDirNone}
}

// DefaultLogDir stores logs under "<log root>/<app>/logs".
func DefaultLogDir() LogDir {
	return LogDir{mode: logDirDefault}
}

// LogDirAt stores logs in path. An empty path means DefaultLogDir.
func LogDirAt(path string) LogDir {
	if path == "" {
		return DefaultLogDir()
	}
	return LogDir{mode: logDirExplicit, path: path}
}

// Enabled reports whether output is stored in files.
func (d LogDir) Enabled() bool {
	return d.mode != logDirNone
}

// Path returns the explicit directory, or "" when the default applies or
// logging to files is disabled.
func (d LogDir) Path() string {
	return d.path
}

// resolve returns the directory for app given the log root.
func (d LogDir) resolve(root, appName string) string {
	switch d.mode {
	case logDirExplicit:
		return d.path
	case logDirDefault:
		return filepath.Join(root, safeName(appName, "app"), "logs")
	default:
		return ""
	}
}

func (d LogDir) String() string {
	switch d.mode {
	case logDirExplicit:
		return d.path
	case logDirDefault:
		return "default"
	default:
		return "none"
	}
}

// DefaultLogRoot returns the host-wide root for default log directories. It
// reads the environment, so resolve it once at startup and pass it to
// WithLogRoot.
func DefaultLogRoot() string {
	return filepath.Join(xdg.StateHome, DefaultLogRootName)
}
