package orchestrator

import (
	"log/slog"
	"strings"
	"sync"
)

// OriginRule maps a virtual location prefix to an ordered list of upstream
// URL templates under a single scheme. The order rules are kept in is
// semantic: ResolveLocation matches the first rule whose Location prefixes
// the requested location.
type OriginRule struct {
	Location     string
	Scheme       string
	UrlTemplates []string
}

// OriginMap holds the ordered list of origin rules loaded from
// configuration. It is treated as immutable for the current configuration
// epoch; PrepareOriginMap atomically replaces the whole list.
type OriginMap struct {
	mu    sync.Mutex
	rules []OriginRule
	log   *slog.Logger
}

// NewOriginMap returns an empty origin map. log must not be nil.
func NewOriginMap(log *slog.Logger) *OriginMap {
	return &OriginMap{log: log}
}

func (m *OriginMap) lock()   { m.mu.Lock() }
func (m *OriginMap) unlock() { m.mu.Unlock() }

// PrepareOriginMap clears the current rules and replaces them with rules,
// preserving order. It returns true iff the input was consumed without
// error; decoding configuration into OriginRule values happens one layer up
// (see LoadOriginsConfig), so this call itself cannot fail.
func (m *OriginMap) PrepareOriginMap(rules []OriginRule) bool {
	m.lock()
	defer m.unlock()

	copied := make([]OriginRule, len(rules))
	for i, r := range rules {
		copied[i] = OriginRule{
			Location:     r.Location,
			Scheme:       r.Scheme,
			UrlTemplates: append([]string(nil), r.UrlTemplates...),
		}
	}
	m.rules = copied

	m.log.Debug("origin map prepared", "rules", len(copied))
	return true
}

// ResolveLocation turns (appName, streamName) into the matching OriginRule
// and the ordered list of spliced upstream URLs.
func (m *OriginMap) ResolveLocation(appName, streamName string) (OriginRule, []string, bool) {
	m.lock()
	defer m.unlock()
	return m.resolveLocationLocked(appName, streamName)
}

// resolveLocationLocked is ResolveLocation's body. Caller must hold m.mu.
func (m *OriginMap) resolveLocationLocked(appName, streamName string) (OriginRule, []string, bool) {
	location := "/" + appName + "/" + streamName

	for _, rule := range m.rules {
		if !strings.HasPrefix(location, rule.Location) {
			continue
		}

		// Matching is byte-exact, not path-component aware: "/app/stream"
		// matches "/app/stream_o" and the suffix "_o" is spliced onto
		// every configured URL template below.
		suffix := location[len(rule.Location):]

		urls := make([]string, 0, len(rule.UrlTemplates))
		for _, tmpl := range rule.UrlTemplates {
			urls = append(urls, rule.Scheme+"://"+tmpl+suffix)
		}

		if len(urls) == 0 {
			// A rule with no URL templates effectively does not match.
			return OriginRule{}, nil, false
		}

		return rule, urls, true
	}

	return OriginRule{}, nil, false
}

// List returns a snapshot of the currently configured rules.
func (m *OriginMap) List() []OriginRule {
	m.lock()
	defer m.unlock()
	out := make([]OriginRule, len(m.rules))
	copy(out, m.rules)
	return out
}
