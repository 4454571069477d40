package orchestrator

import (
	"context"
	"log/slog"
)

// Orchestrator composes the module registry, the application table, and the
// origin map, and is the only type that ever acquires more than one of
// their locks at once. Whenever it does, it acquires them in the fixed
// order modules → apps → origins, and releases them in the reverse order
// via defer.
type Orchestrator struct {
	modules *ModuleRegistry
	apps    *ApplicationTable
	origins *OriginMap

	log *slog.Logger
	met Metrics
}

// Metrics is the subset of the metrics platform package the orchestrator
// core touches directly, kept as an interface so the core has no import
// dependency on the concrete Prometheus wiring.
type Metrics interface {
	IncPulls()
	IncPullFailures()
}

// NewOrchestrator returns an orchestrator with empty module registry,
// application table, and origin map. met may be nil to disable pull
// metrics (e.g. in tests).
func NewOrchestrator(log *slog.Logger, met Metrics) *Orchestrator {
	return &Orchestrator{
		modules: NewModuleRegistry(log),
		apps:    NewApplicationTable(log),
		origins: NewOriginMap(log),
		log:     log,
		met:     met,
	}
}

// RegisterModule registers module with the orchestrator's module registry.
func (o *Orchestrator) RegisterModule(module Module) bool {
	return o.modules.Register(module)
}

// UnregisterModule removes module from the orchestrator's module registry.
func (o *Orchestrator) UnregisterModule(module Module) bool {
	return o.modules.Unregister(module)
}

// ModuleCount returns the number of registered modules.
func (o *Orchestrator) ModuleCount() int {
	return o.modules.Count()
}

// ListModules returns a snapshot of the registered modules.
func (o *Orchestrator) ListModules() []moduleEntry {
	return o.modules.List()
}

// CheckAllOriginAvailability fans out to every registered provider module.
// Reserved for an out-of-scope health-probe pathway; exposed here only for
// the admin surface.
func (o *Orchestrator) CheckAllOriginAvailability(ctx context.Context, urls []string) map[ProviderType]bool {
	return o.modules.CheckAllOriginAvailability(ctx, urls)
}

// PrepareOriginMap atomically replaces the configured origin rule list.
func (o *Orchestrator) PrepareOriginMap(rules []OriginRule) bool {
	return o.origins.PrepareOriginMap(rules)
}

// ResolveLocation resolves (appName, streamName) to a matching OriginRule
// and its spliced URL list.
func (o *Orchestrator) ResolveLocation(appName, streamName string) (OriginRule, []string, bool) {
	return o.origins.ResolveLocation(appName, streamName)
}

// CreateApplication creates an application from a fully configured
// ApplicationConfig. Holds L_modules + L_apps for the duration.
func (o *Orchestrator) CreateApplication(config ApplicationConfig) (ApplicationDescriptor, Result) {
	o.modules.lock()
	defer o.modules.unlock()
	o.apps.lock()
	defer o.apps.unlock()

	if existing, ok := o.apps.findByNameLocked(config.Name); ok {
		return existing, ResultExists
	}

	id := o.apps.nextIDLocked()
	desc := newApplicationDescriptor(id, config.Name, config)
	return o.createApplicationLocked(desc)
}

// CreateApplicationByName creates a name-only application (no config). Used
// by the admin surface's manual create endpoint; the pull coordinator builds
// the same name-only descriptor itself under the locks it already holds.
// Holds L_modules + L_apps for the duration.
func (o *Orchestrator) CreateApplicationByName(name string) (ApplicationDescriptor, Result) {
	o.modules.lock()
	defer o.modules.unlock()
	o.apps.lock()
	defer o.apps.unlock()

	if existing, ok := o.apps.findByNameLocked(name); ok {
		return existing, ResultExists
	}

	id := o.apps.nextIDLocked()
	desc := newApplicationDescriptor(id, name, ApplicationConfig{})
	return o.createApplicationLocked(desc)
}

// createApplicationLocked inserts desc and notifies every registered
// module in registration order, rolling back on the first failure. Caller
// must hold o.modules and o.apps locks.
func (o *Orchestrator) createApplicationLocked(desc ApplicationDescriptor) (ApplicationDescriptor, Result) {
	o.apps.insertLocked(desc)

	ok, failedIndex := o.modules.notifyCreateLocked(desc)
	if ok {
		o.log.Info("application created", "name", desc.name, "id", uint32(desc.id))
		return desc, ResultSucceeded
	}

	o.log.Warn("module rejected application create, rolling back",
		"name", desc.name, "id", uint32(desc.id), "failed_at", failedIndex)

	o.apps.removeLocked(desc.id)
	o.modules.notifyDeleteLocked(desc)

	return InvalidApplicationDescriptor(), ResultFailed
}

// DeleteApplication removes the application with the given id and notifies
// every registered module. Holds L_modules + L_apps for the duration.
func (o *Orchestrator) DeleteApplication(id ApplicationId) Result {
	o.modules.lock()
	defer o.modules.unlock()
	o.apps.lock()
	defer o.apps.unlock()

	return o.deleteApplicationLocked(id)
}

// DeleteApplicationDescriptor is DeleteApplication by descriptor rather
// than by bare id.
func (o *Orchestrator) DeleteApplicationDescriptor(desc ApplicationDescriptor) Result {
	return o.DeleteApplication(desc.id)
}

// deleteApplicationLocked is DeleteApplication's body. Caller must hold
// o.modules and o.apps locks.
func (o *Orchestrator) deleteApplicationLocked(id ApplicationId) Result {
	desc, ok := o.apps.removeLocked(id)
	if !ok {
		o.log.Info("application does not exist", "id", uint32(id))
		return ResultNotExists
	}

	o.log.Info("application deleted", "name", desc.name, "id", uint32(id))

	if o.modules.notifyDeleteLocked(desc) {
		return ResultSucceeded
	}
	return ResultFailed
}

// GetApplication returns the descriptor with the given name, or the invalid
// singleton. Holds only L_apps.
func (o *Orchestrator) GetApplication(name string) ApplicationDescriptor {
	return o.apps.GetByName(name)
}

// GetApplicationByID returns the descriptor with the given id, or the
// invalid singleton. Holds only L_apps.
func (o *Orchestrator) GetApplicationByID(id ApplicationId) ApplicationDescriptor {
	return o.apps.GetByID(id)
}

// ListApplications returns a snapshot of every application currently known
// to the orchestrator.
func (o *Orchestrator) ListApplications() []ApplicationDescriptor {
	return o.apps.List()
}

// ApplicationCount returns the number of applications currently known to
// the orchestrator.
func (o *Orchestrator) ApplicationCount() int {
	return o.apps.Count()
}

// RequestPullStream resolves (appName, streamName) through the origin map,
// finds the matching provider module, ensures the application exists, and
// asks the provider to pull the stream. It holds all three locks
// (modules → apps → origins) for its entire duration, since module
// callbacks may block and must not re-enter the orchestrator.
func (o *Orchestrator) RequestPullStream(appName, streamName string) bool {
	o.modules.lock()
	defer o.modules.unlock()
	o.apps.lock()
	defer o.apps.unlock()
	o.origins.lock()
	defer o.origins.unlock()

	ok := o.requestPullStreamForLocationLocked(appName, streamName)
	o.recordPullMetric(ok)
	return ok
}

// requestPullStreamForLocationLocked is RequestPullStream's body. Caller
// must hold o.modules, o.apps, and o.origins locks.
func (o *Orchestrator) requestPullStreamForLocationLocked(appName, streamName string) bool {
	rule, urls, ok := o.origins.resolveLocationLocked(appName, streamName)
	if !ok {
		o.log.Warn("could not find origin for the stream", "application", appName, "stream", streamName)
		return false
	}

	provider, ok := o.modules.findProviderForSchemeLocked(rule.Scheme)
	if !ok {
		o.log.Warn("could not find provider for the stream",
			"application", appName, "stream", streamName, "scheme", rule.Scheme)
		return false
	}

	return o.pullWithProviderLocked(appName, streamName, provider, urls)
}

// RequestPullStreamFromUrl bypasses the origin map: it finds a provider from
// rawURL's scheme directly and pulls from that single URL. It exists as a
// debug-only affordance for the admin surface (POST .../pull?url=...), not
// as an alternate pull coordinator contract; the origin-map path above is
// the one real callers use. Holds all three locks, same as RequestPullStream.
func (o *Orchestrator) RequestPullStreamFromUrl(appName, streamName, rawURL string) bool {
	o.modules.lock()
	defer o.modules.unlock()
	o.apps.lock()
	defer o.apps.unlock()
	o.origins.lock()
	defer o.origins.unlock()

	provider, ok := o.modules.findProviderForUrlLocked(rawURL)
	if !ok {
		o.log.Warn("could not find provider for url", "url", rawURL)
		o.recordPullMetric(false)
		return false
	}

	ok = o.pullWithProviderLocked(appName, streamName, provider, []string{rawURL})
	o.recordPullMetric(ok)
	return ok
}

// pullWithProviderLocked ensures (appName) exists, creating it on demand,
// then asks provider to pull streamName from urls, rolling back the
// on-demand creation if the pull is refused. Caller must hold o.modules and
// o.apps locks.
func (o *Orchestrator) pullWithProviderLocked(appName, streamName string, provider ProviderModule, urls []string) bool {
	desc, exists := o.apps.findByNameLocked(appName)

	var result Result
	if exists {
		result = ResultExists
	} else {
		id := o.apps.nextIDLocked()
		newDesc := newApplicationDescriptor(id, appName, ApplicationConfig{})
		desc, result = o.createApplicationLocked(newDesc)

		// Any non-Succeeded, non-Exists result short-circuits to failure;
		// there is no separate branch for Result.Failed vs. the (dead)
		// "result != Succeeded" check the original carried.
		if result != ResultSucceeded {
			return false
		}
	}

	o.log.Info("pulling stream from provider",
		"application", appName, "stream", streamName, "provider_type", provider.GetProviderType().String())

	if provider.PullStream(desc, streamName, urls) {
		o.log.Info("stream pulled successfully", "application", appName, "stream", streamName)
		return true
	}

	o.log.Warn("provider refused to pull stream", "application", appName, "stream", streamName)

	if result == ResultSucceeded {
		// This application was created solely for this pull; undo it.
		o.deleteApplicationLocked(desc.id)
	}

	return false
}

func (o *Orchestrator) recordPullMetric(ok bool) {
	if o.met == nil {
		return
	}
	if ok {
		o.met.IncPulls()
	} else {
		o.met.IncPullFailures()
	}
}
