package orchestrator

import "strings"

// ModuleKind discriminates the role a module plays in the control plane.
type ModuleKind int

const (
	ModuleKindUnknown ModuleKind = iota
	ModuleKindProvider
	ModuleKindPublisher
	ModuleKindMediaRouter
)

func (k ModuleKind) String() string {
	switch k {
	case ModuleKindProvider:
		return "Provider"
	case ModuleKindPublisher:
		return "Publisher"
	case ModuleKindMediaRouter:
		return "MediaRouter"
	default:
		return "Unknown"
	}
}

// ProviderType discriminates a provider module's wire protocol.
type ProviderType int

const (
	ProviderTypeUnknown ProviderType = iota
	ProviderTypeRtmp
	ProviderTypeRtsp
	ProviderTypeOvt
)

func (p ProviderType) String() string {
	switch p {
	case ProviderTypeRtmp:
		return "Rtmp"
	case ProviderTypeRtsp:
		return "Rtsp"
	case ProviderTypeOvt:
		return "Ovt"
	default:
		return "Unknown"
	}
}

// schemeToProviderType is the fixed scheme→ProviderType table used by
// FindProviderForScheme. Extend it as new wire protocols are onboarded.
var schemeToProviderType = map[string]ProviderType{
	"rtmp": ProviderTypeRtmp,
	"rtsp": ProviderTypeRtsp,
	"ovt":  ProviderTypeOvt,
}

func providerTypeForScheme(scheme string) (ProviderType, bool) {
	t, ok := schemeToProviderType[strings.ToLower(scheme)]
	return t, ok
}

// Module is the contract every provider/publisher collaborator must
// implement to be registered with the orchestrator.
type Module interface {
	GetModuleType() ModuleKind
	OnCreateApplication(desc ApplicationDescriptor) bool
	OnDeleteApplication(desc ApplicationDescriptor) bool
}

// ProviderModule is the additional contract a Module of kind
// ModuleKindProvider must implement.
type ProviderModule interface {
	Module
	GetProviderType() ProviderType
	// CheckOriginAvailability is reserved for an out-of-scope health-probe
	// pathway; the pull path never calls it. The admin surface's module
	// health endpoint is the only caller in this repository.
	CheckOriginAvailability(urls []string) bool
	PullStream(desc ApplicationDescriptor, streamName string, urls []string) bool
}
