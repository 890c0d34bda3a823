package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseRegister,
				Kind:   KindDuplicate,
				Path:   []string{"capabilities", "logging"},
				GoType: "*logging.Capability",
				Detail: "already registered",
			},
			contains: []string{"[register]", "duplicate", "capabilities.logging", "*logging.Capability", "already registered"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseStore,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[store]", "out_of_bounds"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseLoad,
				Kind:   KindIO,
				Detail: "create log dir /tmp/x",
				Cause:  errors.New("permission denied"),
			},
			contains: []string{"[load]", "io", "create log dir", "caused by", "permission denied"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestError_UnwrapAndIs(t *testing.T) {
	cause := errors.New("root cause")
	err := Wrap(PhaseRuntime, KindInstantiation, cause, "instantiate web")

	assert.ErrorIs(t, err, cause)
	assert.True(t, errors.Is(err, &Error{Phase: PhaseRuntime, Kind: KindInstantiation}))
	assert.False(t, errors.Is(err, &Error{Phase: PhaseLoad, Kind: KindInstantiation}))
	assert.False(t, errors.Is(err, &Error{Phase: PhaseRuntime, Kind: KindIO}))
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseRegister, KindRegistration).
		Path("wasi:logging/logging", "log").
		GoType("*logging.Capability").
		Value(3).
		Cause(cause).
		Detail("bind %s", "log").
		Build()

	assert.Equal(t, PhaseRegister, err.Phase)
	assert.Equal(t, KindRegistration, err.Kind)
	assert.Equal(t, []string{"wasi:logging/logging", "log"}, err.Path)
	assert.Equal(t, "*logging.Capability", err.GoType)
	assert.Equal(t, 3, err.Value)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "bind log", err.Detail)
}

func TestConvenienceConstructors(t *testing.T) {
	assert.Equal(t, KindDuplicate, Duplicate(PhaseRegister, "T").Kind)
	assert.Equal(t, KindConsumed, Consumed(PhaseRegister, "builder").Kind)
	assert.Contains(t, NotFound(PhaseRuntime, "component", "web").Error(), `component "web" not found`)
	assert.Equal(t, KindInvalidInput, InvalidInput(PhaseConfig, "bad").Kind)
	assert.Contains(t, Registration(PhaseLinking, "ns", "fn", nil).Error(), "register ns#fn")
	assert.Equal(t, PhaseRuntime, Instantiation("web", nil).Phase)
	assert.Contains(t, IO(PhaseStore, "open", "/x", nil).Error(), "open /x")

	oob := OutOfBounds(PhaseStore, nil, 10, 5)
	assert.Equal(t, 10, oob.Value)
	assert.Contains(t, oob.Detail, "length 5")
}

func TestUnknownComponentsError(t *testing.T) {
	err := NewUnknownComponentsError([]string{"c", "a2"}, []string{"b", "a"})

	assert.Equal(t, []string{"a2", "c"}, err.Unknown)
	assert.Equal(t, []string{"a", "b"}, err.Valid)

	want := "the following component(s) specified in --follow do not exist in the application:\n" +
		"  - a2\n  - c\n" +
		"the following components exist:\n" +
		"  - a\n  - b"
	assert.Equal(t, want, err.Error())

	var wrapped error = err
	var target *UnknownComponentsError
	require.True(t, errors.As(wrapped, &target))
	assert.True(t, errors.Is(wrapped, &Error{Phase: PhaseLoad, Kind: KindUnknownComponent}))
}

func TestBulletList(t *testing.T) {
	assert.Equal(t, "", BulletList(nil))
	assert.Equal(t, "  - one", BulletList([]string{"one"}))
}

func TestIsAs(t *testing.T) {
	err := Wrap(PhaseLoad, KindIO, NewUnknownComponentsError([]string{"x"}, nil), "load")

	assert.True(t, Is(err, &Error{Phase: PhaseLoad, Kind: KindIO}))

	var target *UnknownComponentsError
	require.True(t, As(err, &target))
	assert.Equal(t, []string{"x"}, target.Unknown)
}
