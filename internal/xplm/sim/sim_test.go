package sim

import (
	"testing"

	"github.com/dshills/xplua/internal/xplm"
)

func TestCameraFrameRewritesPosition(t *testing.T) {
	h := New(WithCameraPosition(xplm.CameraPosition{X: 1}))

	if _, ok := h.CameraFrame(); ok {
		t.Fatal("CameraFrame() without controller reported a controller")
	}

	h.ControlCamera(xplm.ControlCameraForever, func(pos *xplm.CameraPosition, losing bool, refcon xplm.Refcon) int {
		pos.X += 1
		return int(refcon)
	}, 7)

	rc, ok := h.CameraFrame()
	if !ok || rc != 7 {
		t.Fatalf("CameraFrame() = %d, %v; want 7, true", rc, ok)
	}
	if got := h.ReadCameraPosition().X; got != 2 {
		t.Errorf("X = %v, want 2", got)
	}

	controlled, dur := h.IsCameraBeingControlled()
	if !controlled || dur != xplm.ControlCameraForever {
		t.Errorf("IsCameraBeingControlled() = %v, %v", controlled, dur)
	}
}

func TestCameraReleasedOnZeroReturn(t *testing.T) {
	h := New()
	h.ControlCamera(xplm.ControlCameraForever, func(*xplm.CameraPosition, bool, xplm.Refcon) int { return 0 }, 1)
	h.CameraFrame()
	if controlled, _ := h.IsCameraBeingControlled(); controlled {
		t.Error("controller kept after returning 0")
	}
}

func TestChangeViewNotifiesController(t *testing.T) {
	h := New()
	var gotLosing bool
	var gotPos *xplm.CameraPosition
	h.ControlCamera(xplm.ControlCameraUntilViewChanges, func(pos *xplm.CameraPosition, losing bool, _ xplm.Refcon) int {
		gotLosing = losing
		gotPos = pos
		return 0
	}, 1)

	h.ChangeView()

	if !gotLosing || gotPos != nil {
		t.Errorf("losing = %v, pos = %v; want true, nil", gotLosing, gotPos)
	}
	if controlled, _ := h.IsCameraBeingControlled(); controlled {
		t.Error("controller kept after view change")
	}
}

func TestRunCommand(t *testing.T) {
	h := New()
	ref := h.CreateCommand("test/cmd", "Test")

	var phases []xplm.CommandPhase
	h.RegisterCommandHandler(ref, func(cmd xplm.CommandRef, phase xplm.CommandPhase, refcon xplm.Refcon) int {
		phases = append(phases, phase)
		return 0
	}, true, 3)

	if err := h.RunCommand("test/cmd"); err != nil {
		t.Fatalf("RunCommand() error = %v", err)
	}
	if len(phases) != 2 || phases[0] != xplm.CommandBegin || phases[1] != xplm.CommandEnd {
		t.Errorf("phases = %v", phases)
	}

	h.UnregisterCommandHandler(ref, true, 3)
	if n := h.HandlerCount("test/cmd"); n != 0 {
		t.Errorf("HandlerCount() = %d after unregister, want 0", n)
	}

	if err := h.RunCommand("missing"); err == nil {
		t.Error("RunCommand(missing) returned nil error")
	}
}

func TestEnumerateFeaturesSorted(t *testing.T) {
	h := New(WithFeature("B_FEATURE", true), WithFeature("A_FEATURE", false))

	var got []string
	h.EnumerateFeatures(func(feature string, refcon xplm.Refcon) {
		got = append(got, feature)
	}, 0)

	want := []string{"A_FEATURE", "B_FEATURE", xplm.FeatureNativePaths, xplm.FeatureNativeWidgetWindows}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("feature[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPluginLookup(t *testing.T) {
	h := New()
	id := h.FindPluginBySignature("dshills.xplua")
	if id != 0 {
		t.Fatalf("FindPluginBySignature() = %d, want 0", id)
	}
	if h.FindPluginBySignature("nope") != xplm.NoPluginID {
		t.Error("unknown signature should return NoPluginID")
	}
	h.DisablePlugin(id)
	if h.IsPluginEnabled(id) {
		t.Error("plugin still enabled after DisablePlugin")
	}
	if !h.EnablePlugin(id) || !h.IsPluginEnabled(id) {
		t.Error("EnablePlugin failed")
	}
}
