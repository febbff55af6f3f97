package lua

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestNewState(t *testing.T) {
	state := NewState(WithCallStackSize(64))
	defer state.Close()

	if state.LuaState() == nil {
		t.Fatal("LuaState() returned nil")
	}
	if err := state.DoString(`x = string.format("%d", 42)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := state.L.GetGlobal("x").String(); got != "42" {
		t.Errorf("x = %q, want 42", got)
	}
}

func TestStateCallResults(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`
		function none() end
		function three() return "a", "b", "c" end
		function fail() error("broken") end
	`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	res, err := state.Call(state.L.GetGlobal("none"))
	if err != nil {
		t.Fatalf("Call(none) error = %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("Call(none) = %v, want empty slice", res)
	}

	res, err = state.Call(state.L.GetGlobal("three"))
	if err != nil {
		t.Fatalf("Call(three) error = %v", err)
	}
	if len(res) != 3 || res[0].String() != "a" || res[2].String() != "c" {
		t.Errorf("Call(three) = %v", res)
	}

	top := state.L.GetTop()
	_, err = state.Call(state.L.GetGlobal("fail"))
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("Call(fail) error = %v, want broken", err)
	}
	if state.L.GetTop() != top {
		t.Errorf("stack top = %d after failure, want %d", state.L.GetTop(), top)
	}

	if _, err := state.Call(glua.LNil); !errors.Is(err, ErrNotCallable) {
		t.Errorf("Call(nil) error = %v, want ErrNotCallable", err)
	}
}

func TestStateCallGoPanic(t *testing.T) {
	state := NewState()
	defer state.Close()

	fn := state.L.NewFunction(func(L *glua.LState) int {
		panic("host exploded")
	})
	_, err := state.Call(fn)
	if err == nil || !strings.Contains(err.Error(), "host exploded") {
		t.Errorf("Call() error = %v, want host exploded", err)
	}
}

func TestStateImportIsolation(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.lua", `Name = "a"; shared = string.upper("x")`)
	b := writeFile(t, dir, "b.lua", `Name = "b"`)

	state := NewState()
	defer state.Close()

	envA, err := state.Import(a)
	if err != nil {
		t.Fatalf("Import(a) error = %v", err)
	}
	envB, err := state.Import(b)
	if err != nil {
		t.Fatalf("Import(b) error = %v", err)
	}

	if got := state.Field(envA, "Name").String(); got != "a" {
		t.Errorf("a.Name = %q", got)
	}
	if got := state.Field(envB, "Name").String(); got != "b" {
		t.Errorf("b.Name = %q", got)
	}
	if got := state.Field(envA, "shared").String(); got != "X" {
		t.Errorf("a.shared = %q, want X", got)
	}
	if state.L.GetGlobal("Name") != glua.LNil {
		t.Error("module global leaked into shared globals")
	}
	if state.Field(envB, "shared") != glua.LNil {
		t.Error("b sees a's global")
	}
}

func TestStateImportErrors(t *testing.T) {
	dir := t.TempDir()
	syntax := writeFile(t, dir, "syntax.lua", `function (`)
	raises := writeFile(t, dir, "raises.lua", `error("at import")`)

	state := NewState()
	defer state.Close()

	if _, err := state.Import(syntax); err == nil {
		t.Error("Import(syntax) error = nil")
	}
	if _, err := state.Import(raises); err == nil || !strings.Contains(err.Error(), "at import") {
		t.Errorf("Import(raises) error = %v", err)
	}
	if _, err := state.Import(filepath.Join(dir, "missing.lua")); err == nil {
		t.Error("Import(missing) error = nil")
	}
}

func TestStateCallMethod(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`
		Obj = setmetatable({n = 1}, {__index = {get = function(self, d) return self.n + d end}})
	`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	obj := state.L.GetGlobal("Obj")

	if !state.HasMethod(obj, "get") {
		t.Error("HasMethod(get) = false")
	}
	res, err := state.CallMethod(obj, "get", glua.LNumber(2))
	if err != nil {
		t.Fatalf("CallMethod() error = %v", err)
	}
	if len(res) != 1 || res[0] != glua.LNumber(3) {
		t.Errorf("CallMethod() = %v, want [3]", res)
	}

	if _, err := state.CallMethod(obj, "missing"); !errors.Is(err, ErrNoMethod) {
		t.Errorf("CallMethod(missing) error = %v, want ErrNoMethod", err)
	}
}

func TestStateCallable(t *testing.T) {
	state := NewState()
	defer state.Close()

	if err := state.DoString(`
		F = function() end
		C = setmetatable({}, {__call = function() end})
		T = {}
	`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	tests := []struct {
		name string
		want bool
	}{
		{"F", true},
		{"C", true},
		{"T", false},
		{"undefined", false},
	}
	for _, tt := range tests {
		if got := state.Callable(state.L.GetGlobal(tt.name)); got != tt.want {
			t.Errorf("Callable(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStateOwner(t *testing.T) {
	state := NewState()
	defer state.Close()

	var seen any
	err := state.WithOwner("outer", func() error {
		_ = state.WithOwner("inner", func() error {
			seen = state.Owner()
			return nil
		})
		if state.Owner() != "outer" {
			t.Errorf("Owner() = %v after nested call, want outer", state.Owner())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithOwner() error = %v", err)
	}
	if seen != "inner" {
		t.Errorf("nested owner = %v, want inner", seen)
	}
	if state.Owner() != nil {
		t.Errorf("Owner() = %v, want nil", state.Owner())
	}
}

func TestStateAppendPathAndPreload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "helper.lua", `return { value = 7 }`)

	state := NewState()
	defer state.Close()

	state.AppendPath(dir)
	state.AppendPath(dir)
	path := glua.LVAsString(state.L.GetField(state.L.GetGlobal("package"), "path"))
	if strings.Count(path, filepath.ToSlash(dir)) != 1 {
		t.Errorf("package.path = %q, want dir once", path)
	}

	state.Preload("host", func(L *glua.LState) int {
		mod := L.NewTable()
		mod.RawSetString("answer", glua.LNumber(42))
		L.Push(mod)
		return 1
	})

	if err := state.DoString(`
		h = require("helper").value
		a = require("host").answer
	`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if state.L.GetGlobal("h") != glua.LNumber(7) || state.L.GetGlobal("a") != glua.LNumber(42) {
		t.Errorf("h = %v, a = %v", state.L.GetGlobal("h"), state.L.GetGlobal("a"))
	}
}

func TestStateClose(t *testing.T) {
	state := NewState()
	state.Close()
	state.Close()

	if !state.IsClosed() {
		t.Error("IsClosed() = false")
	}
	if err := state.DoString("x = 1"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("DoString() error = %v, want ErrStateClosed", err)
	}
	if _, err := state.Import("whatever.lua"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Import() error = %v, want ErrStateClosed", err)
	}
}
