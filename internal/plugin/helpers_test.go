package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/xplua/internal/plugin/lua"
)

// testRuntime hands out a fresh state per start and exposes record() to
// guests so tests can observe hook order.
type testRuntime struct {
	state  *plua.State
	calls  []string
	starts int
	stops  int
	fail   error
}

func (r *testRuntime) Start(string) (*plua.State, error) {
	r.starts++
	if r.fail != nil {
		return nil, r.fail
	}
	r.state = plua.NewState()
	r.state.L.SetGlobal("record", r.state.L.NewFunction(func(L *lua.LState) int {
		r.calls = append(r.calls, L.CheckString(1))
		return 0
	}))
	return r.state, nil
}

func (r *testRuntime) Stop() error {
	r.stops++
	if r.state != nil {
		r.state.Close()
		r.state = nil
	}
	return nil
}

func (r *testRuntime) count(call string) int {
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

// moduleSource returns a well-formed class-style module named name. Any
// hook listed in overrides replaces the default body.
func moduleSource(name string, overrides map[string]string) string {
	hooks := map[string]string{
		HookStart:          fmt.Sprintf(`record("%[1]s start"); return "%[1]s", "sig.%[1]s", "desc %[1]s"`, name),
		HookEnable:         fmt.Sprintf(`record("%s enable"); return 1`, name),
		HookDisable:        fmt.Sprintf(`record("%s disable")`, name),
		HookStop:           fmt.Sprintf(`record("%s stop")`, name),
		HookReceiveMessage: fmt.Sprintf(`record(string.format("%s msg %%d %%d %%s", from, msg, tostring(param)))`, name),
	}
	for k, v := range overrides {
		hooks[k] = v
	}

	src := "PluginInterface = {}\nPluginInterface.__index = PluginInterface\n"
	src += "function PluginInterface:new() return setmetatable({}, self) end\n"
	for _, hook := range []string{HookStart, HookEnable, HookDisable, HookStop} {
		if body := hooks[hook]; body != "" {
			src += fmt.Sprintf("function PluginInterface:%s() %s end\n", hook, body)
		}
	}
	if body := hooks[HookReceiveMessage]; body != "" {
		src += fmt.Sprintf("function PluginInterface:%s(from, msg, param) %s end\n", HookReceiveMessage, body)
	}
	return src
}

func writeModule(t *testing.T, dir, file, src string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

var (
	internalPattern = regexp.MustCompile(`^I_PI_.*\.lua$`)
	userPattern     = regexp.MustCompile(`^PI_.*\.lua$`)
)

// newTestController returns a controller scanning two fresh directories.
func newTestController(t *testing.T) (ctrl *Controller, rt *testRuntime, internalDir, userDir string) {
	t.Helper()
	internalDir = t.TempDir()
	userDir = t.TempDir()
	rt = &testRuntime{}
	ctrl = NewController(rt, ControllerConfig{
		Sources: []Source{
			{Dir: internalDir, Pattern: internalPattern},
			{Dir: userDir, Pattern: userPattern},
		},
	})
	return ctrl, rt, internalDir, userDir
}

func moduleFiles(mods []Module) []string {
	files := make([]string, len(mods))
	for i, m := range mods {
		files[i] = filepath.Base(m.Key.SourceFile)
	}
	return files
}
