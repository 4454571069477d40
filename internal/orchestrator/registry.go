package orchestrator

import (
	"context"
	"log/slog"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"
)

// moduleEntry pairs a registered module with the kind it was registered
// under, avoiding a repeated dynamic type check on every typed lookup.
type moduleEntry struct {
	kind   ModuleKind
	module Module
}

// ModuleRegistry holds every module registered with the orchestrator: a flat
// sequence preserving registration order (used for create/delete fan-out),
// and a typed index by ModuleKind (used for FindProviderForScheme and
// friends). Both views are guarded by the same mutex.
type ModuleRegistry struct {
	mu      sync.Mutex
	entries []moduleEntry
	byKind  map[ModuleKind][]Module
	log     *slog.Logger
}

// NewModuleRegistry returns an empty registry. log must not be nil.
func NewModuleRegistry(log *slog.Logger) *ModuleRegistry {
	return &ModuleRegistry{
		byKind: make(map[ModuleKind][]Module),
		log:    log,
	}
}

func (r *ModuleRegistry) lock()   { r.mu.Lock() }
func (r *ModuleRegistry) unlock() { r.mu.Unlock() }

// Register adds module to the registry. It fails (returns false) if module
// is nil or already registered under reference identity; both are
// programmer errors, not expected negative outcomes.
func (r *ModuleRegistry) Register(module Module) bool {
	r.lock()
	defer r.unlock()
	return r.registerLocked(module)
}

func (r *ModuleRegistry) registerLocked(module Module) bool {
	if module == nil {
		r.log.Warn("refusing to register a nil module")
		return false
	}

	kind := module.GetModuleType()

	for _, e := range r.entries {
		if e.module == module {
			if e.kind == kind {
				r.log.Warn("module is already registered", "kind", kind.String())
			} else {
				r.log.Warn("module re-registered under a different kind",
					"previous_kind", e.kind.String(), "kind", kind.String())
			}
			return false
		}
	}

	r.entries = append(r.entries, moduleEntry{kind: kind, module: module})
	r.byKind[kind] = append(r.byKind[kind], module)

	r.log.Debug("module registered", "kind", kind.String())
	return true
}

// Unregister removes the first entry whose reference matches module.
func (r *ModuleRegistry) Unregister(module Module) bool {
	r.lock()
	defer r.unlock()
	return r.unregisterLocked(module)
}

func (r *ModuleRegistry) unregisterLocked(module Module) bool {
	if module == nil {
		return false
	}

	for i, e := range r.entries {
		if e.module != module {
			continue
		}

		r.entries = append(r.entries[:i], r.entries[i+1:]...)
		r.byKind[e.kind] = removeModule(r.byKind[e.kind], module)

		r.log.Debug("module unregistered", "kind", e.kind.String())
		return true
	}

	r.log.Warn("module not found for unregister")
	return false
}

func removeModule(list []Module, target Module) []Module {
	for i, m := range list {
		if m == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// FindProviderForScheme maps scheme to a ProviderType via the fixed table
// and returns the first registered provider module of that type.
func (r *ModuleRegistry) FindProviderForScheme(scheme string) (ProviderModule, bool) {
	r.lock()
	defer r.unlock()
	return r.findProviderForSchemeLocked(scheme)
}

func (r *ModuleRegistry) findProviderForSchemeLocked(scheme string) (ProviderModule, bool) {
	providerType, ok := providerTypeForScheme(scheme)
	if !ok {
		r.log.Warn("no provider type mapped for scheme", "scheme", scheme)
		return nil, false
	}

	for _, m := range r.byKind[ModuleKindProvider] {
		p, ok := m.(ProviderModule)
		if !ok {
			continue
		}
		if p.GetProviderType() == providerType {
			return p, true
		}
	}

	r.log.Warn("no provider registered for scheme", "scheme", scheme, "provider_type", providerType.String())
	return nil, false
}

// FindProviderForUrl parses rawURL and delegates to FindProviderForScheme.
func (r *ModuleRegistry) FindProviderForUrl(rawURL string) (ProviderModule, bool) {
	r.lock()
	defer r.unlock()
	return r.findProviderForUrlLocked(rawURL)
}

func (r *ModuleRegistry) findProviderForUrlLocked(rawURL string) (ProviderModule, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		r.log.Warn("could not parse url", "url", rawURL, "error", err)
		return nil, false
	}

	return r.findProviderForSchemeLocked(parsed.Scheme)
}

// CheckAllOriginAvailability fans CheckOriginAvailability out to every
// registered provider module concurrently via an errgroup, collecting one
// result per ProviderType. It exists solely for the admin surface's module
// health endpoint; the pull path never calls it.
func (r *ModuleRegistry) CheckAllOriginAvailability(ctx context.Context, urls []string) map[ProviderType]bool {
	r.lock()
	providers := make([]ProviderModule, 0, len(r.byKind[ModuleKindProvider]))
	for _, m := range r.byKind[ModuleKindProvider] {
		if p, ok := m.(ProviderModule); ok {
			providers = append(providers, p)
		}
	}
	r.unlock()

	results := make(map[ProviderType]bool, len(providers))
	var resultsMu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for _, p := range providers {
		p := p
		g.Go(func() error {
			ok := p.CheckOriginAvailability(urls)
			resultsMu.Lock()
			results[p.GetProviderType()] = ok
			resultsMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// notifyCreateLocked calls OnCreateApplication on every registered module in
// registration order, stopping at the first failure. Caller must hold r.mu.
func (r *ModuleRegistry) notifyCreateLocked(desc ApplicationDescriptor) (ok bool, failedIndex int) {
	for i, e := range r.entries {
		if !e.module.OnCreateApplication(desc) {
			return false, i
		}
	}
	return true, -1
}

// notifyDeleteLocked calls OnDeleteApplication on every registered module,
// regardless of earlier failures, and reports whether all of them
// succeeded. Caller must hold r.mu.
func (r *ModuleRegistry) notifyDeleteLocked(desc ApplicationDescriptor) bool {
	allOK := true
	for _, e := range r.entries {
		if !e.module.OnDeleteApplication(desc) {
			allOK = false
			r.log.Warn("module rejected application delete",
				"kind", e.kind.String(), "application", desc.name)
		}
	}
	return allOK
}

// List returns a snapshot of the registered modules in registration order.
func (r *ModuleRegistry) List() []moduleEntry {
	r.lock()
	defer r.unlock()
	out := make([]moduleEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Count returns the number of registered modules.
func (r *ModuleRegistry) Count() int {
	r.lock()
	defer r.unlock()
	return len(r.entries)
}
