package logging

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"
	"github.com/wippyai/wasm-host/capability"
	"github.com/wippyai/wasm-host/linker"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	Namespace = "wasi:logging/logging"
	FuncLog   = "log"
)

// Level is a wasi:logging level.
type Level uint32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

var levelNames = [...]string{"trace", "debug", "info", "warn", "error", "critical"}

func (l Level) Valid() bool {
	return int(l) < len(levelNames)
}

func (l Level) String() string {
	if !l.Valid() {
		return fmt.Sprintf("level(%d)", uint32(l))
	}
	return levelNames[l]
}

// ZapLevel maps l onto zap. Trace folds into debug and critical into error.
func (l Level) ZapLevel() zapcore.Level {
	switch l {
	case LevelTrace, LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

// State is the per-instance logging state.
type State struct {
	Logger  *zap.Logger
	Records uint64
}

// Log writes one record.
func (s *State) Log(level Level, logContext, message string) {
	s.Records++
	if s.Logger == nil {
		return
	}
	fields := []zap.Field{zap.Stringer("wasi_level", level)}
	if logContext != "" {
		fields = append(fields, zap.String("context", logContext))
	}
	if ce := s.Logger.Check(level.ZapLevel(), message); ce != nil {
		ce.Write(fields...)
	}
}

// Capability provides wasi:logging/logging.
type Capability struct {
	logger *zap.Logger
}

var _ capability.Capability[State] = (*Capability)(nil)

// New creates the capability. Instances without seeded state log to logger;
// nil means the package logger.
func New(logger *zap.Logger) *Capability {
	return &Capability{logger: logger}
}

func (c *Capability) NewState() State {
	l := c.logger
	if l == nil {
		l = Logger()
	}
	return State{Logger: l}
}

// Bind defines log on l. A bad memory reference or unknown level traps the
// guest.
func (c *Capability) Bind(l *linker.Linker, get capability.Accessor[State]) error {
	i32 := api.ValueTypeI32
	return l.Define(Namespace, FuncLog,
		func(ctx context.Context, m api.Module, stack []uint64) {
			level := Level(api.DecodeU32(stack[0]))
			if !level.Valid() {
				panic(fmt.Errorf("%s: invalid level %d", FuncLog, uint32(level)))
			}
			logCtx, err := linker.ReadString(m, api.DecodeU32(stack[1]), api.DecodeU32(stack[2]))
			if err != nil {
				panic(err)
			}
			msg, err := linker.ReadString(m, api.DecodeU32(stack[3]), api.DecodeU32(stack[4]))
			if err != nil {
				panic(err)
			}
			get(ctx).Log(level, logCtx, msg)
		},
		[]api.ValueType{i32, i32, i32, i32, i32}, nil)
}
