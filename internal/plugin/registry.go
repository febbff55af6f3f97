package plugin

// ModuleKey identifies a loaded module: the identity it reported at startup
// plus the file it came from. Two files reporting the same identity produce
// two distinct keys.
type ModuleKey struct {
	Name        string
	Signature   string
	Description string
	SourceFile  string
}

// Identity returns the declared part of the key.
func (k ModuleKey) Identity() Identity {
	return Identity{Name: k.Name, Signature: k.Signature, Description: k.Description}
}

// String identifies the module in diagnostics.
func (k ModuleKey) String() string {
	return k.SourceFile
}

// Module is one registry entry.
type Module struct {
	Key   ModuleKey
	Guest Guest
}

// Registry maps module keys to live instances and remembers insertion
// order, which is the order of every broadcast.
//
// Not safe for concurrent use.
type Registry struct {
	order   []ModuleKey
	modules map[ModuleKey]Guest
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[ModuleKey]Guest)}
}

// Insert adds a module at the end of the order. Inserting a key that is
// already present replaces the instance and keeps its position.
func (r *Registry) Insert(key ModuleKey, g Guest) {
	if _, exists := r.modules[key]; !exists {
		r.order = append(r.order, key)
	}
	r.modules[key] = g
}

// Get returns the instance stored under key.
func (r *Registry) Get(key ModuleKey) (Guest, bool) {
	g, ok := r.modules[key]
	return g, ok
}

// Len returns the number of modules.
func (r *Registry) Len() int {
	return len(r.order)
}

// Snapshot returns the modules in insertion order. The slice is a copy, so
// the registry may be mutated while the caller iterates it.
func (r *Registry) Snapshot() []Module {
	mods := make([]Module, len(r.order))
	for i, key := range r.order {
		mods[i] = Module{Key: key, Guest: r.modules[key]}
	}
	return mods
}

// FindByIdentity returns every module that declared id, in insertion order.
func (r *Registry) FindByIdentity(id Identity) []Module {
	var mods []Module
	for _, key := range r.order {
		if key.Identity() == id {
			mods = append(mods, Module{Key: key, Guest: r.modules[key]})
		}
	}
	return mods
}

// Clear drops every module.
func (r *Registry) Clear() {
	r.order = nil
	r.modules = make(map[ModuleKey]Guest)
}
