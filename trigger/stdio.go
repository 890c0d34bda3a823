package trigger

import (
	"os"
	"path/filepath"

	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/stream"
	"go.uber.org/zap"
)

const (
	streamStdout = "stdout"
	streamStderr = "stderr"
)

// StdioOption configures StdioHooks.
type StdioOption func(*StdioHooks)

// WithLogRoot sets the root under which DefaultLogDir resolves. It is
// required with DefaultLogDir; callers usually pass DefaultLogRoot, resolved
// once at startup.
func WithLogRoot(root string) StdioOption {
	return func(h *StdioHooks) {
		h.root = root
	}
}

// WithDiagnosticStream sets the stream followed output is mirrored to. It
// defaults to the process-wide stderr stream.
func WithDiagnosticStream(s stream.OutputStream) StdioOption {
	return func(h *StdioHooks) {
		h.diagnostic = s
	}
}

// StdioHooks route guest stdout and stderr into per-component log files and
// mirror followed components to the diagnostic stream.
type StdioHooks struct {
	diagnostic stream.OutputStream
	follow     FollowComponents
	logDir     LogDir
	root       string
	dir        string
	loaded     bool
}

var _ Hooks = (*StdioHooks)(nil)

// NewStdioHooks creates hooks for the given follow selection and log dir.
func NewStdioHooks(follow FollowComponents, logDir LogDir, opts ...StdioOption) *StdioHooks {
	h := &StdioHooks{
		follow: follow,
		logDir: logDir,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.diagnostic == nil {
		h.diagnostic = stream.Stderr()
	}
	return h
}

// LogDir returns the resolved log directory, or "" before AppLoaded or when
// output is not stored.
func (h *StdioHooks) LogDir() string {
	return h.dir
}

// AppLoaded validates the follow selection against app and creates the log
// directory.
func (h *StdioHooks) AppLoaded(app *App) error {
	if app.Name == "" {
		return errors.InvalidInput(errors.PhaseLoad, "application has no name")
	}
	if err := h.validateFollows(app); err != nil {
		return err
	}
	if h.logDir.mode == logDirDefault && h.root == "" {
		return errors.InvalidInput(errors.PhaseLoad, "default log dir needs a log root")
	}

	dir := h.logDir.resolve(h.root, app.Name)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.IO(errors.PhaseLoad, "create log dir", dir, err)
		}
		Logger().Debug("component logs",
			zap.String("app", app.Name),
			zap.String("dir", dir),
			zap.Stringer("follow", h.follow))
	}
	h.dir = dir
	h.loaded = true
	return nil
}

func (h *StdioHooks) validateFollows(app *App) error {
	ids := app.ComponentIDs()
	if unknown := h.follow.unknown(ids); len(unknown) > 0 {
		return errors.NewUnknownComponentsError(unknown, ids)
	}
	return nil
}

// ComponentStore attaches a ComponentStdioWriter to each guest stream, or
// inherits host stdio when no log directory is configured.
func (h *StdioHooks) ComponentStore(c *Component, b *StoreBuilder) error {
	if !h.loaded {
		return errors.New(errors.PhaseStore, errors.KindInvalidInput).
			Path(c.ID).
			Detail("application not loaded").
			Build()
	}
	if h.dir == "" {
		b.InheritStdout()
		b.InheritStderr()
		return nil
	}

	stdout, err := h.writer(c.ID, streamStdout)
	if err != nil {
		return err
	}
	b.StdoutPipe(stdout)

	stderr, err := h.writer(c.ID, streamStderr)
	if err != nil {
		return err
	}
	b.StderrPipe(stderr)
	return nil
}

func (h *StdioHooks) writer(componentID, kind string) (*ComponentStdioWriter, error) {
	path := filepath.Join(h.dir, safeName(componentID, "component")+"_"+kind+".txt")
	sink, err := stream.OpenFile(path)
	if err != nil {
		return nil, errors.IO(errors.PhaseStore, "open log file", path, err)
	}
	var follow stream.OutputStream
	if h.follow.ShouldFollow(componentID) {
		follow = h.diagnostic
	}
	return NewComponentStdioWriter(componentID, sink, follow), nil
}
