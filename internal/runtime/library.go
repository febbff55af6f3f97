package runtime

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
)

// EmbeddedPrefix marks a library candidate served from the binary.
const EmbeddedPrefix = "embed:"

// EmbeddedLibrary is the support library compiled into the binary.
const EmbeddedLibrary = EmbeddedPrefix + "xplua.lua"

//go:embed lib/*.lua
var embedded embed.FS

// Library is the runtime support library executed once per start, before
// any module is loaded.
type Library struct {
	Path   string
	Source []byte
}

// OpenFunc opens one library candidate.
type OpenFunc func(path string) (*Library, error)

// OpenLibrary reads path from disk, or from the embedded library set when
// path starts with EmbeddedPrefix.
func OpenLibrary(path string) (*Library, error) {
	if name, ok := strings.CutPrefix(path, EmbeddedPrefix); ok {
		src, err := embedded.ReadFile("lib/" + name)
		if err != nil {
			return nil, err
		}
		return &Library{Path: path, Source: src}, nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Library{Path: path, Source: src}, nil
}

// DefaultLibraries returns the candidate list for this platform: a
// platform-specific override in dir, a generic override in dir, then the
// embedded library.
func DefaultLibraries(dir string) []string {
	return []string{
		filepath.Join(dir, fmt.Sprintf("xplua_%s_%s.lua", goruntime.GOOS, goruntime.GOARCH)),
		filepath.Join(dir, fmt.Sprintf("xplua_%s.lua", goruntime.GOOS)),
		filepath.Join(dir, "xplua.lua"),
		EmbeddedLibrary,
	}
}

// probe tries every candidate in order; the first that opens wins.
func probe(open OpenFunc, candidates []string) (*Library, error) {
	var tried []string
	for _, path := range candidates {
		lib, err := open(path)
		if err == nil {
			return lib, nil
		}
		tried = append(tried, path)
	}
	return nil, fmt.Errorf("%w: tried %s", ErrLibraryNotFound, strings.Join(tried, ", "))
}
