package lua

import (
	"fmt"
	"math"

	lua "github.com/yuin/gopher-lua"
)

// Bridge converts values between Go and Lua.
type Bridge struct {
	L *lua.LState
}

// NewBridge creates a new Bridge for the given Lua state.
func NewBridge(L *lua.LState) *Bridge {
	return &Bridge{L: L}
}

// ToGo converts a Lua value to a Go value. Numbers become float64 so the
// marshaling layer sees exactly what the guest produced. Functions and
// threads are passed through unchanged.
func (b *Bridge) ToGo(lv lua.LValue) any {
	return b.toGo(lv, make(map[*lua.LTable]bool))
}

func (b *Bridge) toGo(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil, *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		if seq, ok := b.sequence(v, visited); ok {
			return seq
		}
		return b.tableToMap(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return lv
	}
}

// Sequence returns the elements 1..n of t. ok is false unless the keys are
// exactly the integers 1..n, so a table with holes or a huge sparse key is
// not a sequence.
func (b *Bridge) Sequence(t *lua.LTable) (vals []any, ok bool) {
	return b.sequence(t, map[*lua.LTable]bool{t: true})
}

func (b *Bridge) sequence(t *lua.LTable, visited map[*lua.LTable]bool) ([]any, bool) {
	maxN, count := 0, 0
	ok := true
	t.ForEach(func(k, _ lua.LValue) {
		if !ok {
			return
		}
		kn, isNum := k.(lua.LNumber)
		f := float64(kn)
		if !isNum || f < 1 || f > math.MaxInt32 || f != math.Trunc(f) {
			ok = false
			return
		}
		count++
		if n := int(f); n > maxN {
			maxN = n
		}
	})
	if !ok || maxN != count {
		return nil, false
	}
	vals := make([]any, maxN)
	for i := 1; i <= maxN; i++ {
		vals[i-1] = b.toGo(t.RawGetInt(i), visited)
	}
	return vals, true
}

func (b *Bridge) tableToMap(t *lua.LTable, visited map[*lua.LTable]bool) map[string]any {
	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = fmt.Sprintf("%v", float64(kv))
		default:
			key = k.String()
		}
		m[key] = b.toGo(v, visited)
	})
	return m
}

// ToLua converts a Go value to a Lua value.
func (b *Bridge) ToLua(v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case uintptr:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []float64:
		return b.FloatList(val)
	case []string:
		t := b.L.CreateTable(len(val), 0)
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []any:
		t := b.L.CreateTable(len(val), 0)
		for i, e := range val {
			t.RawSetInt(i+1, b.ToLua(e))
		}
		return t
	case map[string]any:
		t := b.L.CreateTable(0, len(val))
		for k, e := range val {
			t.RawSetString(k, b.ToLua(e))
		}
		return t
	default:
		ud := b.L.NewUserData()
		ud.Value = v
		return ud
	}
}

// FloatList returns a new sequence table holding vals.
func (b *Bridge) FloatList(vals []float64) *lua.LTable {
	t := b.L.CreateTable(len(vals), 0)
	for i, f := range vals {
		t.RawSetInt(i+1, lua.LNumber(f))
	}
	return t
}
