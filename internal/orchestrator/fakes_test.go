package orchestrator

import "sync"

// fakeModule is a minimal Module used across the test files in this
// package. It records every OnCreateApplication/OnDeleteApplication call it
// receives and lets the test control the boolean each one returns.
type fakeModule struct {
	kind ModuleKind

	createResult bool
	deleteResult bool

	mu       sync.Mutex
	created  []ApplicationDescriptor
	deleted  []ApplicationDescriptor
}

func newFakeModule(kind ModuleKind) *fakeModule {
	return &fakeModule{kind: kind, createResult: true, deleteResult: true}
}

func (m *fakeModule) GetModuleType() ModuleKind { return m.kind }

func (m *fakeModule) OnCreateApplication(desc ApplicationDescriptor) bool {
	m.mu.Lock()
	m.created = append(m.created, desc)
	m.mu.Unlock()
	return m.createResult
}

func (m *fakeModule) OnDeleteApplication(desc ApplicationDescriptor) bool {
	m.mu.Lock()
	m.deleted = append(m.deleted, desc)
	m.mu.Unlock()
	return m.deleteResult
}

func (m *fakeModule) createCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.created)
}

func (m *fakeModule) deleteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deleted)
}

// fakeProvider is a ProviderModule wrapping a fakeModule, with a
// configurable provider type and pull/health behavior.
type fakeProvider struct {
	*fakeModule
	providerType ProviderType

	pullResult   bool
	healthResult bool

	mu         sync.Mutex
	pulledURLs [][]string
}

func newFakeProvider(providerType ProviderType) *fakeProvider {
	return &fakeProvider{
		fakeModule:   newFakeModule(ModuleKindProvider),
		providerType: providerType,
		pullResult:   true,
		healthResult: true,
	}
}

func (p *fakeProvider) GetProviderType() ProviderType { return p.providerType }

func (p *fakeProvider) CheckOriginAvailability(urls []string) bool {
	return p.healthResult
}

func (p *fakeProvider) PullStream(desc ApplicationDescriptor, streamName string, urls []string) bool {
	p.mu.Lock()
	p.pulledURLs = append(p.pulledURLs, urls)
	p.mu.Unlock()
	return p.pullResult
}
