// Package handle maps opaque integer handles to callback registrations.
//
// A native callback can carry exactly one pointer-sized value back into the
// bridge. Registries hand out small monotonically increasing integers for
// that value and keep the rich registration record on the Go side, so a
// real object address never crosses the boundary.
//
// Registries are not safe for concurrent use. The host delivers every
// callback on its own thread; a host with multi-threaded callback delivery
// would need a mutex per registry.
package handle

import (
	"fmt"
	"sort"
)

// Handle is an opaque identifier issued by a Registry.
// The zero Handle is never issued.
type Handle uint64

// Kind identifies the native event class a registration serves.
type Kind int

// Registration kinds.
const (
	KindUnknown Kind = iota
	KindCamera
	KindFeature
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindCamera:
		return "camera"
	case KindFeature:
		return "feature"
	default:
		return "unknown"
	}
}

// Registry issues handles and stores one record per handle.
// Records live until Clear; firing a callback never removes its record.
type Registry[T any] struct {
	kind    Kind
	next    Handle
	records map[Handle]T
}

// NewRegistry creates an empty registry for the given kind.
func NewRegistry[T any](kind Kind) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		records: make(map[Handle]T),
	}
}

// Kind returns the event kind this registry serves.
func (r *Registry[T]) Kind() Kind {
	return r.kind
}

// Register stores rec and returns its handle. It never fails.
func (r *Registry[T]) Register(rec T) Handle {
	r.next++
	r.records[r.next] = rec
	return r.next
}

// Resolve returns the record stored for h.
// An unknown or cleared handle yields a *NotFoundError.
func (r *Registry[T]) Resolve(h Handle) (T, error) {
	rec, ok := r.records[h]
	if !ok {
		var zero T
		return zero, &NotFoundError{Kind: r.kind, Handle: h}
	}
	return rec, nil
}

// Clear drops every record. Handles are not reissued afterwards.
func (r *Registry[T]) Clear() {
	r.records = make(map[Handle]T)
}

// Len returns the number of live records.
func (r *Registry[T]) Len() int {
	return len(r.records)
}

// Handles returns the live handles in issue order.
func (r *Registry[T]) Handles() []Handle {
	hs := make([]Handle, 0, len(r.records))
	for h := range r.records {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// NotFoundError reports a handle the registry does not know.
type NotFoundError struct {
	Kind   Kind
	Handle Handle
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s registration %d not found", e.Kind, uint64(e.Handle))
}

// Unwrap allows errors.Is(err, ErrRegistrationNotFound).
func (e *NotFoundError) Unwrap() error {
	return ErrRegistrationNotFound
}
