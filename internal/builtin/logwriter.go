package builtin

import (
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	plua "github.com/dshills/xplua/internal/plugin/lua"
)

// Log implements the XPLuaLog module and routes the global print to the
// same sink. Output is written verbatim.
type Log struct {
	sink io.Writer
	opts Options
}

// NewLog creates the XPLuaLog module writing to sink. A nil sink discards.
func NewLog(sink io.Writer, opts Options) *Log {
	if sink == nil {
		sink = io.Discard
	}
	return &Log{sink: sink, opts: opts.withDefaults(LogModule)}
}

// Name implements runtime.Module.
func (l *Log) Name() string {
	return LogModule
}

// Register implements runtime.Module.
func (l *Log) Register(state *plua.State) (*lua.LTable, error) {
	L := state.LuaState()
	L.SetGlobal("print", L.NewFunction(l.print))
	return newModule(L, map[string]lua.LGFunction{
		"write":        l.write,
		"flush":        l.flush,
		"addAllErrors": l.addAllErrors,
	}, nil), nil
}

// Cleanup implements runtime.Module. It flushes the sink.
func (l *Log) Cleanup() error {
	return l.sync()
}

func (l *Log) sync() error {
	switch s := l.sink.(type) {
	case interface{ Sync() error }:
		return s.Sync()
	case interface{ Flush() error }:
		return s.Flush()
	}
	return nil
}

func (l *Log) emit(text string) {
	if _, err := io.WriteString(l.sink, text); err != nil {
		l.opts.Logger.Warn("guest output lost", zap.Error(err))
	}
}

// print(...) writes its arguments separated by tabs, then a newline.
func (l *Log) print(L *lua.LState) int {
	top := L.GetTop()
	parts := make([]string, top)
	for i := 1; i <= top; i++ {
		parts[i-1] = lua.LVAsString(L.ToStringMeta(L.Get(i)))
	}
	l.emit(strings.Join(parts, "\t")+"\n")
	return 0
}

// XPLuaLog.write(msg)
func (l *Log) write(L *lua.LState) int {
	l.emit(lua.LVAsString(L.ToStringMeta(L.CheckAny(1))))
	return 0
}

// XPLuaLog.flush()
func (l *Log) flush(L *lua.LState) int {
	if err := l.sync(); err != nil {
		l.opts.Logger.Warn("flush failed", zap.Error(err))
	}
	return 0
}

// XPLuaLog.addAllErrors(n) adds n to the error total reported at shutdown.
func (l *Log) addAllErrors(L *lua.LState) int {
	l.opts.Faults.Add(L.CheckInt(1))
	return 0
}
