package orchestrator

import "testing"

type fakeMetrics struct {
	pulls         int
	pullFailures  int
}

func (f *fakeMetrics) IncPulls()        { f.pulls++ }
func (f *fakeMetrics) IncPullFailures() { f.pullFailures++ }

func newTestOrchestrator() (*Orchestrator, *fakeMetrics) {
	met := &fakeMetrics{}
	return NewOrchestrator(newTestLogger(), met), met
}

func TestOrchestrator_OriginSplice(t *testing.T) {
	o, _ := newTestOrchestrator()
	o.PrepareOriginMap([]OriginRule{
		{Location: "/app/stream", Scheme: "rtmp", UrlTemplates: []string{"origin:1935/live/stream"}},
	})

	rule, urls, ok := o.ResolveLocation("app", "stream_1")
	if !ok || rule.Scheme != "rtmp" {
		t.Fatalf("ResolveLocation: ok=%v rule=%+v", ok, rule)
	}
	want := "rtmp://origin:1935/live/stream_1"
	if len(urls) != 1 || urls[0] != want {
		t.Errorf("urls: got %v, want [%q]", urls, want)
	}
}

func TestOrchestrator_CreateApplication_idempotent(t *testing.T) {
	o, _ := newTestOrchestrator()

	first, result := o.CreateApplicationByName("live")
	if result != ResultSucceeded || !first.IsValid() {
		t.Fatalf("first create: result=%v desc=%+v", result, first)
	}

	second, result := o.CreateApplicationByName("live")
	if result != ResultExists {
		t.Fatalf("second create: got %v, want ResultExists", result)
	}
	if second.Id() != first.Id() {
		t.Errorf("second create returned a different descriptor: first=%+v second=%+v", first, second)
	}
	if o.ApplicationCount() != 1 {
		t.Errorf("ApplicationCount: got %d, want 1", o.ApplicationCount())
	}
}

func TestOrchestrator_CreateApplication_rollback(t *testing.T) {
	o, _ := newTestOrchestrator()

	ok := newFakeModule(ModuleKindPublisher)
	rejecting := newFakeModule(ModuleKindPublisher)
	rejecting.createResult = false

	o.RegisterModule(ok)
	o.RegisterModule(rejecting)

	desc, result := o.CreateApplicationByName("live")
	if result != ResultFailed {
		t.Fatalf("create: got %v, want ResultFailed", result)
	}
	if desc.IsValid() {
		t.Errorf("create failure must return the invalid descriptor, got %+v", desc)
	}
	if o.ApplicationCount() != 0 {
		t.Errorf("ApplicationCount after rollback: got %d, want 0", o.ApplicationCount())
	}

	// Rollback notifies every registered module's OnDeleteApplication,
	// including the one that already succeeded at create time and the one
	// that rejected the create.
	if ok.deleteCount() != 1 {
		t.Errorf("ok module deleteCount: got %d, want 1", ok.deleteCount())
	}
	if rejecting.deleteCount() != 1 {
		t.Errorf("rejecting module deleteCount: got %d, want 1", rejecting.deleteCount())
	}
	if ok.createCount() != 1 {
		t.Errorf("ok module createCount: got %d, want 1", ok.createCount())
	}
	if rejecting.createCount() != 1 {
		t.Errorf("rejecting module createCount: got %d, want 1 (stops at first failure)", rejecting.createCount())
	}
}

func TestOrchestrator_DeleteApplication_notExists(t *testing.T) {
	o, _ := newTestOrchestrator()
	if result := o.DeleteApplication(ApplicationId(999)); result != ResultNotExists {
		t.Errorf("DeleteApplication of missing id: got %v, want ResultNotExists", result)
	}
}

func TestOrchestrator_RequestPullStream_noOrigin(t *testing.T) {
	o, _ := newTestOrchestrator()
	if o.RequestPullStream("app", "stream") {
		t.Error("RequestPullStream with no origin rule: expected false")
	}
}

func TestOrchestrator_RequestPullStream_noProvider(t *testing.T) {
	o, met := newTestOrchestrator()
	o.PrepareOriginMap([]OriginRule{
		{Location: "/app/stream", Scheme: "rtmp", UrlTemplates: []string{"origin:1935/x"}},
	})

	if o.RequestPullStream("app", "stream") {
		t.Error("RequestPullStream with no registered provider: expected false")
	}
	if met.pullFailures != 1 {
		t.Errorf("pullFailures: got %d, want 1", met.pullFailures)
	}
	if met.pulls != 0 {
		t.Errorf("pulls: got %d, want 0", met.pulls)
	}
}

func TestOrchestrator_RequestPullStream_rollbackOnPullFailure(t *testing.T) {
	o, met := newTestOrchestrator()
	o.PrepareOriginMap([]OriginRule{
		{Location: "/app/stream", Scheme: "rtmp", UrlTemplates: []string{"origin:1935/x"}},
	})

	provider := newFakeProvider(ProviderTypeRtmp)
	provider.pullResult = false
	o.RegisterModule(provider)

	if o.RequestPullStream("app", "stream") {
		t.Error("RequestPullStream with refusing provider: expected false")
	}
	if met.pullFailures != 1 {
		t.Errorf("pullFailures: got %d, want 1", met.pullFailures)
	}

	// The application was created solely to satisfy this pull and must be
	// rolled back since the provider refused it.
	if o.ApplicationCount() != 0 {
		t.Errorf("ApplicationCount after pull rollback: got %d, want 0", o.ApplicationCount())
	}
}

func TestOrchestrator_RequestPullStream_existingApp(t *testing.T) {
	o, met := newTestOrchestrator()
	o.PrepareOriginMap([]OriginRule{
		{Location: "/app/stream", Scheme: "rtmp", UrlTemplates: []string{"origin:1935/x"}},
	})

	provider := newFakeProvider(ProviderTypeRtmp)
	o.RegisterModule(provider)

	if _, result := o.CreateApplicationByName("app"); result != ResultSucceeded {
		t.Fatalf("pre-create: got %v", result)
	}

	if !o.RequestPullStream("app", "stream") {
		t.Error("RequestPullStream on pre-existing app: expected true")
	}
	if met.pulls != 1 {
		t.Errorf("pulls: got %d, want 1", met.pulls)
	}
	if o.ApplicationCount() != 1 {
		t.Errorf("ApplicationCount: got %d, want 1 (pre-existing app must survive)", o.ApplicationCount())
	}
	if len(provider.pulledURLs) != 1 || provider.pulledURLs[0][0] != "rtmp://origin:1935/x" {
		t.Errorf("pulledURLs: got %v", provider.pulledURLs)
	}
}

func TestOrchestrator_RequestPullStreamFromUrl(t *testing.T) {
	o, met := newTestOrchestrator()

	provider := newFakeProvider(ProviderTypeOvt)
	o.RegisterModule(provider)

	if !o.RequestPullStreamFromUrl("app", "stream", "ovt://origin:9000/app/stream") {
		t.Error("RequestPullStreamFromUrl: expected true")
	}
	if met.pulls != 1 {
		t.Errorf("pulls: got %d, want 1", met.pulls)
	}
	if len(provider.pulledURLs) != 1 || provider.pulledURLs[0][0] != "ovt://origin:9000/app/stream" {
		t.Errorf("pulledURLs: got %v", provider.pulledURLs)
	}
	if o.ApplicationCount() != 1 {
		t.Errorf("ApplicationCount: got %d, want 1", o.ApplicationCount())
	}
}

func TestOrchestrator_RequestPullStreamFromUrl_noProvider(t *testing.T) {
	o, met := newTestOrchestrator()

	if o.RequestPullStreamFromUrl("app", "stream", "ovt://origin:9000/app/stream") {
		t.Error("RequestPullStreamFromUrl with no registered provider: expected false")
	}
	if met.pullFailures != 1 {
		t.Errorf("pullFailures: got %d, want 1", met.pullFailures)
	}
	if o.ApplicationCount() != 0 {
		t.Errorf("ApplicationCount: got %d, want 0 (no application should be created)", o.ApplicationCount())
	}
}

func TestOrchestrator_RequestPullStreamFromUrl_rollbackOnPullFailure(t *testing.T) {
	o, _ := newTestOrchestrator()

	provider := newFakeProvider(ProviderTypeRtmp)
	provider.pullResult = false
	o.RegisterModule(provider)

	if o.RequestPullStreamFromUrl("app", "stream", "rtmp://origin:1935/app/stream") {
		t.Error("RequestPullStreamFromUrl with refusing provider: expected false")
	}
	if o.ApplicationCount() != 0 {
		t.Errorf("ApplicationCount after pull rollback: got %d, want 0", o.ApplicationCount())
	}
}

func TestOrchestrator_RequestPullStream_existingApp_pullFailureDoesNotDelete(t *testing.T) {
	o, _ := newTestOrchestrator()
	o.PrepareOriginMap([]OriginRule{
		{Location: "/app/stream", Scheme: "rtmp", UrlTemplates: []string{"origin:1935/x"}},
	})

	provider := newFakeProvider(ProviderTypeRtmp)
	provider.pullResult = false
	o.RegisterModule(provider)

	if _, result := o.CreateApplicationByName("app"); result != ResultSucceeded {
		t.Fatalf("pre-create: got %v", result)
	}

	if o.RequestPullStream("app", "stream") {
		t.Error("RequestPullStream with refusing provider: expected false")
	}

	// Unlike the create-for-pull path, a pre-existing application must
	// never be deleted just because the pull itself failed.
	if o.ApplicationCount() != 1 {
		t.Errorf("ApplicationCount: got %d, want 1 (pre-existing app must not be deleted)", o.ApplicationCount())
	}
}
