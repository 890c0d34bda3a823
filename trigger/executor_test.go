package trigger

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/wasm-host/capability"
	"github.com/wippyai/wasm-host/errors"
	"github.com/wippyai/wasm-host/linker"
	"github.com/wippyai/wasm-host/stream"
	"github.com/wippyai/wasm-host/wasi/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// writerModule builds a WASI command whose _start writes msg to fd with a
// single fd_write call.
func writerModule(fd byte, msg string) []byte {
	data := make([]byte, 16, 16+len(msg))
	binary.LittleEndian.PutUint32(data[0:], 16)
	binary.LittleEndian.PutUint32(data[4:], uint32(len(msg)))
	data = append(data, msg...)
	if len(data) > 100 {
		panic("message too long for single-byte section sizes")
	}

	mod := []byte{
		0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
		// type: (i32 x4) -> i32, () -> ()
		0x01, 0x0c, 0x02,
		0x60, 0x04, 0x7f, 0x7f, 0x7f, 0x7f, 0x01, 0x7f,
		0x60, 0x00, 0x00,
		// import wasi_snapshot_preview1 fd_write
		0x02, 0x23, 0x01,
		0x16, 'w', 'a', 's', 'i', '_', 's', 'n', 'a', 'p', 's', 'h', 'o', 't', '_',
		'p', 'r', 'e', 'v', 'i', 'e', 'w', '1',
		0x08, 'f', 'd', '_', 'w', 'r', 'i', 't', 'e',
		0x00, 0x00,
		// func
		0x03, 0x02, 0x01, 0x01,
		// memory 1 page
		0x05, 0x03, 0x01, 0x00, 0x01,
		// export memory, _start
		0x07, 0x13, 0x02,
		0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
		0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x01,
		// code: fd_write(fd, 0, 1, 8); drop
		0x0a, 0x0f, 0x01, 0x0d, 0x00,
		0x41, fd, 0x41, 0x00, 0x41, 0x01, 0x41, 0x08,
		0x10, 0x00, 0x1a, 0x0b,
	}
	seg := append([]byte{0x01, 0x00, 0x41, 0x00, 0x0b, byte(len(data))}, data...)
	mod = append(mod, 0x0b, byte(len(seg)))
	return append(mod, seg...)
}

func writeGuest(t *testing.T, name string, bin []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name+".wasm")
	require.NoError(t, os.WriteFile(path, bin, 0o600))
	return path
}

func newTestExecutor(t *testing.T, app *App, opts ...Option) *Executor {
	t.Helper()
	ctx := context.Background()
	e, err := NewExecutor(ctx, app, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close(ctx) })
	return e
}

func TestExecutor_RunAll_LogsAndFollows(t *testing.T) {
	root := t.TempDir()
	diag := stream.NewMemoryStream()
	app := &App{
		Name: "my/app",
		Components: []Component{
			{ID: "a", Source: writeGuest(t, "a", writerModule(1, "hello\n"))},
			{ID: "b", Source: writeGuest(t, "b", writerModule(2, "oops\n"))},
		},
	}
	hooks := NewStdioHooks(FollowNamed("a"), DefaultLogDir(),
		WithLogRoot(root), WithDiagnosticStream(diag))
	e := newTestExecutor(t, app, WithHooks(hooks))

	require.NoError(t, e.RunAll(context.Background()))

	dir := filepath.Join(root, "myapp", "logs")
	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, "[a] hello\n", read("a_stdout.txt"))
	assert.Equal(t, "", read("a_stderr.txt"))
	assert.Equal(t, "", read("b_stdout.txt"))
	assert.Equal(t, "[b] oops\n", read("b_stderr.txt"))
	assert.Equal(t, "[a] hello\n", string(diag.Bytes()))
}

// spinModule is a command whose _start never returns.
var spinModule = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type: () -> ()
	0x01, 0x04, 0x01, 0x60, 0x00, 0x00,
	// func
	0x03, 0x02, 0x01, 0x00,
	// export _start
	0x07, 0x0a, 0x01, 0x06, '_', 's', 't', 'a', 'r', 't', 0x00, 0x00,
	// code: loop br 0 end
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x03, 0x40, 0x0c, 0x00, 0x0b, 0x0b,
}

func TestExecutor_Run_StopsOnContextDone(t *testing.T) {
	app := &App{
		Name:       "app",
		Components: []Component{{ID: "spin", Source: writeGuest(t, "spin", spinModule)}},
	}
	e := newTestExecutor(t, app)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, "spin") }()

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindInstantiation}))
	case <-time.After(5 * time.Second):
		t.Fatal("guest kept running after its context was done")
	}
}

func TestExecutor_UnknownFollowFailsLoad(t *testing.T) {
	app := &App{Name: "app", Components: []Component{{ID: "a"}, {ID: "b"}}}
	hooks := NewStdioHooks(FollowNamed("a", "c"), NoLogDir())

	_, err := NewExecutor(context.Background(), app, WithHooks(hooks))
	var unknown *errors.UnknownComponentsError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"c"}, unknown.Unknown)
}

func TestExecutor_ValidatesApp(t *testing.T) {
	_, err := NewExecutor(context.Background(), &App{
		Name:       "app",
		Components: []Component{{ID: "a"}, {ID: "a"}},
	})
	assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindDuplicate}))

	_, err = NewExecutor(context.Background(), &App{
		Name:       "app",
		Components: []Component{{}},
	})
	assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidInput}))
}

func TestExecutor_Run_Errors(t *testing.T) {
	app := &App{
		Name: "app",
		Components: []Component{
			{ID: "missing", Source: filepath.Join(t.TempDir(), "nope.wasm")},
			{ID: "garbage", Source: writeGuest(t, "garbage", []byte("not wasm"))},
		},
	}
	e := newTestExecutor(t, app)
	ctx := context.Background()

	err := e.Run(ctx, "ghost")
	assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseRuntime, Kind: errors.KindNotFound}))

	err = e.Run(ctx, "missing")
	assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindIO}))

	err = e.Run(ctx, "garbage")
	assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseLoad, Kind: errors.KindInvalidInput}))

	err = e.RunAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.wasm")
	assert.Contains(t, err.Error(), `compile component "garbage"`)
}

func TestExecutor_RegistersLogging(t *testing.T) {
	e := newTestExecutor(t, &App{Name: "app"})

	assert.Contains(t, e.Registry().Names(), "*logging.Capability")
	_, ok := capability.FindHandle[*logging.Capability, logging.State](e.Registry())
	assert.True(t, ok)
	assert.Contains(t, e.Linker().Functions(logging.Namespace), logging.FuncLog)
}

type pingState struct {
	calls int
}

type pingCap struct{}

func (pingCap) NewState() pingState { return pingState{} }

func (pingCap) Bind(l *linker.Linker, get capability.Accessor[pingState]) error {
	return l.Define("test:ping", "ping", func(ctx context.Context, _ api.Module, _ []uint64) {
		get(ctx).calls++
	}, nil, nil)
}

func TestExecutor_WithCapability(t *testing.T) {
	var handle capability.Handle[pingState]
	e := newTestExecutor(t, &App{Name: "app"},
		WithCapability(func(b *capability.Builder, l *linker.Linker) error {
			var err error
			handle, err = capability.Add[pingState](b, l, pingCap{})
			return err
		}))

	assert.Equal(t, 2, e.Registry().Len())
	assert.True(t, handle.Valid())
	assert.Equal(t, []string{"test:ping", logging.Namespace}, e.Linker().Modules())
}

func TestExecutor_CapabilityErrorFailsLoad(t *testing.T) {
	_, err := NewExecutor(context.Background(), &App{Name: "app"},
		WithCapability(func(b *capability.Builder, l *linker.Linker) error {
			_, err := capability.Add[logging.State](b, l, logging.New(nil))
			return err
		}))
	assert.True(t, errors.Is(err, &errors.Error{Phase: errors.PhaseRegister, Kind: errors.KindDuplicate}))
}

func TestExecutor_LogsLoad(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	newTestExecutor(t, &App{Name: "app"}, WithLogger(zap.New(core)))

	entries := logs.FilterMessage("application loaded").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "app", entries[0].ContextMap()["app"])
}
