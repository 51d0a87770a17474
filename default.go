package vdfs

import "sync"

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide Registry, creating an empty one on first
// use. Prefer passing an explicit *Registry; Default exists for callers that
// cannot thread one through.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultRegistry == nil {
		defaultRegistry = New()
	}
	return defaultRegistry
}

// DestroyDefault drops the process-wide Registry. The next call to Default
// starts from an empty tree.
func DestroyDefault() {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	defaultRegistry = nil
}
