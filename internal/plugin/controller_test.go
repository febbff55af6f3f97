package plugin

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestControllerStartOrder(t *testing.T) {
	ctrl, rt, internalDir, userDir := newTestController(t)

	writeModule(t, userDir, "PI_c.lua", moduleSource("c", nil))
	writeModule(t, userDir, "helper.lua", moduleSource("helper", nil))
	writeModule(t, userDir, "PI_notes.txt", "not lua")
	writeModule(t, internalDir, "I_PI_b.lua", moduleSource("b", nil))
	writeModule(t, internalDir, "I_PI_a.lua", moduleSource("a", nil))
	writeModule(t, internalDir, "PI_d.lua", moduleSource("d", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()

	if ctrl.State() != StateEnabled {
		t.Errorf("State() = %v, want enabled", ctrl.State())
	}
	if ctrl.SessionID() == "" {
		t.Error("SessionID() is empty")
	}

	want := []string{"I_PI_a.lua", "I_PI_b.lua", "PI_c.lua"}
	if diff := cmp.Diff(want, moduleFiles(ctrl.Modules())); diff != "" {
		t.Errorf("module order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"a start", "b start", "c start"}, rt.calls); diff != "" {
		t.Errorf("start calls mismatch (-want +got):\n%s", diff)
	}
}

func TestControllerStartTwice(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	writeModule(t, userDir, "PI_a.lua", moduleSource("a", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()
	session := ctrl.SessionID()

	if err := ctrl.Start(); err != nil {
		t.Fatalf("second Start() error = %v", err)
	}
	if rt.starts != 1 || rt.count("a start") != 1 {
		t.Errorf("runtime starts = %d, module starts = %d; want 1, 1", rt.starts, rt.count("a start"))
	}
	if ctrl.SessionID() != session {
		t.Error("session id changed on second Start()")
	}
}

func TestControllerOneBadModule(t *testing.T) {
	ctrl, _, _, userDir := newTestController(t)

	writeModule(t, userDir, "PI_good.lua", moduleSource("good", nil))
	writeModule(t, userDir, "PI_bad.lua", `
		PluginInterface = {}
		function PluginInterface:new() error("cannot construct") end
	`)

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()

	mods := ctrl.Modules()
	if len(mods) != 1 {
		t.Fatalf("len(Modules()) = %d, want 1", len(mods))
	}
	if mods[0].Key.Name != "good" {
		t.Errorf("module = %+v, want good", mods[0].Key)
	}
	if got := ctrl.Faults().Count(); got != 1 {
		t.Errorf("Faults().Count() = %d, want 1", got)
	}
}

func TestControllerReceiveWhileDisabled(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	for _, name := range []string{"a", "b", "c"} {
		writeModule(t, userDir, "PI_"+name+".lua", moduleSource(name, nil))
	}

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()

	ctrl.Disable()
	if ctrl.State() != StateDisabled {
		t.Fatalf("State() = %v, want disabled", ctrl.State())
	}
	rt.calls = nil

	ctrl.ReceiveMessage(7, 101, 42)
	if len(rt.calls) != 0 {
		t.Errorf("calls while disabled = %v, want none", rt.calls)
	}

	ctrl.Enable()
	rt.calls = nil
	ctrl.ReceiveMessage(7, 101, 42)
	want := []string{"a msg 7 101 42", "b msg 7 101 42", "c msg 7 101 42"}
	if diff := cmp.Diff(want, rt.calls); diff != "" {
		t.Errorf("message calls mismatch (-want +got):\n%s", diff)
	}
}

func TestControllerEnableDisableIdempotent(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	writeModule(t, userDir, "PI_a.lua", moduleSource("a", nil))
	writeModule(t, userDir, "PI_b.lua", moduleSource("b", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()

	ctrl.Enable()
	if rt.count("a enable") != 0 {
		t.Errorf("Enable() while enabled invoked hooks: %v", rt.calls)
	}

	ctrl.Disable()
	ctrl.Disable()
	if rt.count("a disable") != 1 || rt.count("b disable") != 1 {
		t.Errorf("disable calls = %v, want one per module", rt.calls)
	}

	ctrl.Enable()
	ctrl.Enable()
	if rt.count("a enable") != 1 || rt.count("b enable") != 1 {
		t.Errorf("enable calls = %v, want one per module", rt.calls)
	}
	if ctrl.State() != StateEnabled {
		t.Errorf("State() = %v, want enabled", ctrl.State())
	}
}

func TestControllerHostEntryPoints(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	writeModule(t, userDir, "PI_a.lua", moduleSource("a", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()

	ctrl.EnableModules()
	ctrl.DisableModules()
	if rt.count("a enable") != 1 || rt.count("a disable") != 1 {
		t.Errorf("calls = %v", rt.calls)
	}
	if ctrl.State() != StateEnabled {
		t.Errorf("State() = %v, want enabled", ctrl.State())
	}

	ctrl.Disable()
	ctrl.EnableModules()
	ctrl.DisableModules()
	if rt.count("a enable") != 1 || rt.count("a disable") != 2 {
		t.Errorf("host entry points ran while disabled: %v", rt.calls)
	}
}

func TestControllerStopOrder(t *testing.T) {
	ctrl, rt, internalDir, userDir := newTestController(t)
	writeModule(t, internalDir, "I_PI_a.lua", moduleSource("a", nil))
	writeModule(t, userDir, "PI_b.lua", moduleSource("b", nil))
	writeModule(t, userDir, "PI_c.lua", moduleSource("c", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	rt.calls = nil
	ctrl.Stop()

	if diff := cmp.Diff([]string{"a stop", "b stop", "c stop"}, rt.calls); diff != "" {
		t.Errorf("stop order mismatch (-want +got):\n%s", diff)
	}
	if ctrl.State() != StateStopped || len(ctrl.Modules()) != 0 || ctrl.SessionID() != "" {
		t.Errorf("after Stop: state %v, %d modules, session %q", ctrl.State(), len(ctrl.Modules()), ctrl.SessionID())
	}
	if rt.stops != 1 {
		t.Errorf("runtime stops = %d, want 1", rt.stops)
	}

	ctrl.Stop()
	if rt.stops != 1 {
		t.Errorf("second Stop() tore down runtime again")
	}
	ctrl.ReceiveMessage(1, 2, 3)
}

func TestControllerReload(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	writeModule(t, userDir, "PI_a.lua", moduleSource("a", map[string]string{
		HookStop: `record("a stop"); error("stop failed")`,
	}))
	writeModule(t, userDir, "PI_b.lua", moduleSource("b", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()
	before := ctrl.Modules()
	rt.calls = nil

	if err := ctrl.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}

	want := []string{
		"a disable", "b disable",
		"a stop", "b stop",
		"a start", "b start",
		"a enable", "b enable",
	}
	if diff := cmp.Diff(want, rt.calls); diff != "" {
		t.Errorf("reload calls mismatch (-want +got):\n%s", diff)
	}
	if ctrl.State() != StateEnabled {
		t.Errorf("State() = %v, want enabled", ctrl.State())
	}

	after := ctrl.Modules()
	if len(after) != len(before) {
		t.Fatalf("len(Modules()) = %d, want %d", len(after), len(before))
	}
	for i := range after {
		if after[i].Key != before[i].Key {
			t.Errorf("key %d = %+v, want %+v", i, after[i].Key, before[i].Key)
		}
		if after[i].Guest == before[i].Guest {
			t.Errorf("module %d instance reused", i)
		}
	}
	if got := ctrl.Faults().Count(); got != 1 {
		t.Errorf("Faults().Count() = %d, want 1", got)
	}
	if rt.starts != 2 {
		t.Errorf("runtime starts = %d, want 2", rt.starts)
	}
}

func TestControllerReloadFromDisabled(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	writeModule(t, userDir, "PI_a.lua", moduleSource("a", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()
	ctrl.Disable()
	rt.calls = nil

	if err := ctrl.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if diff := cmp.Diff([]string{"a stop", "a start", "a enable"}, rt.calls); diff != "" {
		t.Errorf("reload calls mismatch (-want +got):\n%s", diff)
	}
	if ctrl.State() != StateEnabled {
		t.Errorf("State() = %v, want enabled", ctrl.State())
	}
}

func TestControllerBootstrapFailure(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	writeModule(t, userDir, "PI_a.lua", moduleSource("a", nil))
	rt.fail = errors.New("no runtime library")

	if err := ctrl.Start(); !errors.Is(err, rt.fail) {
		t.Fatalf("Start() error = %v, want %v", err, rt.fail)
	}
	if ctrl.State() != StateStopped || len(ctrl.Modules()) != 0 {
		t.Errorf("after failed Start: state %v, %d modules", ctrl.State(), len(ctrl.Modules()))
	}

	ctrl.EnableModules()
	ctrl.ReceiveMessage(7, 101, 42)
	if len(rt.calls) != 0 {
		t.Errorf("calls after failed start = %v", rt.calls)
	}
}

func TestControllerProtocolViolationNotCounted(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	writeModule(t, userDir, "PI_a.lua", moduleSource("a", map[string]string{
		HookEnable:         `return "yes"`,
		HookReceiveMessage: `return 1`,
	}))
	writeModule(t, userDir, "PI_b.lua", moduleSource("b", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()

	ctrl.EnableModules()
	ctrl.ReceiveMessage(1, 2, nil)
	if got := ctrl.Faults().Count(); got != 0 {
		t.Errorf("Faults().Count() = %d, want 0", got)
	}
	if rt.count("b enable") != 1 {
		t.Errorf("broadcast stopped after violation: %v", rt.calls)
	}
}

func TestControllerHookFaultContinues(t *testing.T) {
	ctrl, rt, _, userDir := newTestController(t)
	writeModule(t, userDir, "PI_a.lua", moduleSource("a", map[string]string{
		HookReceiveMessage: `error("bad message")`,
	}))
	writeModule(t, userDir, "PI_b.lua", moduleSource("b", nil))

	if err := ctrl.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer ctrl.Stop()

	ctrl.registry.Insert(ModuleKey{Name: "panics", SourceFile: "panics.go"}, panicGuest{})

	ctrl.ReceiveMessage(7, 101, "x")
	ctrl.EnableModules()
	if rt.count("b msg 7 101 x") != 1 {
		t.Errorf("calls = %v, want b to receive the message", rt.calls)
	}
	if rt.count("b enable") != 1 {
		t.Errorf("calls = %v, want b enabled after panic", rt.calls)
	}
	if got := ctrl.Faults().Count(); got != 3 {
		t.Errorf("Faults().Count() = %d, want 3", got)
	}
}

type panicGuest struct{}

func (panicGuest) Start() (Identity, error)           { return Identity{}, nil }
func (panicGuest) Enable() error                      { panic("enable exploded") }
func (panicGuest) Disable() error                     { return nil }
func (panicGuest) Stop() error                        { return nil }
func (panicGuest) ReceiveMessage(int, int, any) error { panic("receive exploded") }
