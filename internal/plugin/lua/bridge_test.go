package lua

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	glua "github.com/yuin/gopher-lua"
)

func TestBridgeToGo(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	tests := []struct {
		name  string
		input glua.LValue
		want  any
	}{
		{"nil", glua.LNil, nil},
		{"true", glua.LTrue, true},
		{"integer", glua.LNumber(42), 42.0},
		{"float", glua.LNumber(3.5), 3.5},
		{"string", glua.LString("hello"), "hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, bridge.ToGo(tt.input)); diff != "" {
				t.Errorf("ToGo() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBridgeTables(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	if err := L.DoString(`
		seq = {1, "two", true}
		holes = {}
		holes[1] = 1; holes[3] = 3
		huge = {1}; huge[2^62] = 2
		frac = {1}; frac[1.5] = 2
		zero = {1}; zero[0] = 0
		rec = {name = "x", list = {1, 2}}
		mixed = {1, 2, key = "v"}
	`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	t.Run("sequence", func(t *testing.T) {
		got := bridge.ToGo(L.GetGlobal("seq"))
		if diff := cmp.Diff([]any{1.0, "two", true}, got); diff != "" {
			t.Errorf("ToGo(seq) mismatch (-want +got):\n%s", diff)
		}
	})

	notSequences := []struct {
		name string
		code string
	}{
		{"holes", `holes`},
		{"huge key", `huge`},
		{"fraction key", `frac`},
		{"zero key", `zero`},
	}
	for _, tt := range notSequences {
		t.Run(tt.name, func(t *testing.T) {
			if vals, ok := bridge.Sequence(L.GetGlobal(tt.code).(*glua.LTable)); ok {
				t.Errorf("Sequence(%s) = %v, want not a sequence", tt.code, vals)
			}
		})
	}

	t.Run("holes become a map", func(t *testing.T) {
		want := map[string]any{"1": 1.0, "3": 3.0}
		if diff := cmp.Diff(want, bridge.ToGo(L.GetGlobal("holes"))); diff != "" {
			t.Errorf("ToGo(holes) mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("record", func(t *testing.T) {
		want := map[string]any{"name": "x", "list": []any{1.0, 2.0}}
		if diff := cmp.Diff(want, bridge.ToGo(L.GetGlobal("rec"))); diff != "" {
			t.Errorf("ToGo(rec) mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("mixed", func(t *testing.T) {
		if _, ok := bridge.Sequence(L.GetGlobal("mixed").(*glua.LTable)); ok {
			t.Error("Sequence(mixed) ok = true")
		}
	})
}

func TestBridgeCycle(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	if err := L.DoString(`loop = {}; loop.self = loop`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	got, ok := bridge.ToGo(L.GetGlobal("loop")).(map[string]any)
	if !ok {
		t.Fatalf("ToGo(loop) = %T", got)
	}
	if got["self"] != nil {
		t.Errorf("loop.self = %v, want nil", got["self"])
	}
}

func TestBridgeToLua(t *testing.T) {
	L := glua.NewState()
	defer L.Close()
	bridge := NewBridge(L)

	list := bridge.FloatList([]float64{1, 2.5, 3})
	if list.Len() != 3 || list.RawGetInt(2) != glua.LNumber(2.5) {
		t.Errorf("FloatList() = %v", bridge.ToGo(list))
	}

	tests := []struct {
		in   any
		want glua.LValueType
	}{
		{nil, glua.LTNil},
		{true, glua.LTBool},
		{7, glua.LTNumber},
		{uintptr(9), glua.LTNumber},
		{float32(1.5), glua.LTNumber},
		{"s", glua.LTString},
		{[]string{"a"}, glua.LTTable},
		{[]any{1, "a"}, glua.LTTable},
		{map[string]any{"k": 1}, glua.LTTable},
		{struct{}{}, glua.LTUserData},
	}
	for _, tt := range tests {
		if got := bridge.ToLua(tt.in).Type(); got != tt.want {
			t.Errorf("ToLua(%#v).Type() = %v, want %v", tt.in, got, tt.want)
		}
	}

	round := bridge.ToGo(bridge.ToLua(map[string]any{"pos": []float64{1, 2}}))
	if diff := cmp.Diff(map[string]any{"pos": []any{1.0, 2.0}}, round); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
