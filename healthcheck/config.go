package healthcheck

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
)

// Mode describes how matched health-check traffic is logged.
type Mode string

const (
	// ModeTag keeps the completion record but adds a marker attribute.
	ModeTag Mode = "tag"
	// ModeDemote lowers the completion record's level.
	ModeDemote Mode = "demote"
	// ModeDrop suppresses the completion record entirely.
	ModeDrop Mode = "drop"
)

// DefaultTagKey is the marker attribute added in tag and demote modes.
const DefaultTagKey = "is_health_check"

// Config configures detection signals and behaviour for health-check traffic.
type Config struct {
	Enabled bool

	Mode Mode

	// TagKey controls the attribute inserted when ModeTag or ModeDemote is used.
	TagKey string

	// DemoteTo controls the slog level used when ModeDemote is active.
	// When nil, slog.LevelDebug is used.
	DemoteTo *slog.Level

	// Paths are exact URL paths treated as health checks.
	Paths []string
	// PathPrefixes are path prefixes matched using strings.HasPrefix.
	PathPrefixes []string

	// HeaderEquals matches request headers by name and exact value. Header
	// names are compared case-insensitively.
	HeaderEquals map[string][]string

	// UserAgentPatterns holds regular expressions that match probe User-Agents.
	UserAgentPatterns []*regexp.Regexp

	// RemoteCIDRs lists networks treated as health-check sources. RemoteAddr
	// and the first X-Forwarded-For entry are evaluated.
	RemoteCIDRs []*net.IPNet
}

// Decision describes how a matched request should be logged.
type Decision struct {
	Matched bool
	Mode    Mode

	TagKey string

	DemoteLevel slog.Level
	HasDemote   bool
}

// ShouldTag reports whether the decision requires a tag attribute.
func (d Decision) ShouldTag() bool {
	return d.Matched && d.TagKey != ""
}

// ShouldDrop reports whether the completion record should be suppressed.
func (d Decision) ShouldDrop() bool {
	return d.Matched && d.Mode == ModeDrop
}

// ApplyLevel applies the decision to an existing slog level.
func (d Decision) ApplyLevel(level slog.Level) slog.Level {
	if !d.Matched || d.Mode != ModeDemote || !d.HasDemote {
		return level
	}
	if level > d.DemoteLevel {
		return d.DemoteLevel
	}
	return level
}

// Clone shallow-copies the configuration while duplicating slice and map data.
func (c Config) Clone() Config {
	out := c
	out.Paths = append([]string(nil), c.Paths...)
	out.PathPrefixes = append([]string(nil), c.PathPrefixes...)
	out.UserAgentPatterns = append([]*regexp.Regexp(nil), c.UserAgentPatterns...)
	out.RemoteCIDRs = append([]*net.IPNet(nil), c.RemoteCIDRs...)
	if len(c.HeaderEquals) > 0 {
		out.HeaderEquals = make(map[string][]string, len(c.HeaderEquals))
		for k, v := range c.HeaderEquals {
			out.HeaderEquals[k] = append([]string(nil), v...)
		}
	}
	return out
}

// DefaultConfig returns a configuration seeded with common Google Cloud probe
// signals. It is disabled and uses tag mode, so callers opt in explicitly.
func DefaultConfig() Config {
	demote := slog.LevelDebug

	mustCIDR := func(raw string) *net.IPNet {
		_, network, err := net.ParseCIDR(raw)
		if err != nil {
			panic(err)
		}
		return network
	}

	return Config{
		Enabled:  false,
		Mode:     ModeTag,
		TagKey:   DefaultTagKey,
		DemoteTo: &demote,
		Paths:    []string{"/healthz", "/readyz", "/livez", "/_ah/health"},
		UserAgentPatterns: []*regexp.Regexp{
			regexp.MustCompile(`^GoogleHC/`),
			regexp.MustCompile(`^kube-probe/`),
			regexp.MustCompile(`^GoogleStackdriverMonitoring-UptimeChecks`),
		},
		RemoteCIDRs: []*net.IPNet{mustCIDR("35.191.0.0/16"), mustCIDR("130.211.0.0/22")},
	}
}

// Filter performs health-check classification using a normalised Config.
type Filter struct {
	cfg     Config
	metrics *Metrics

	pathExact    map[string]struct{}
	headerEquals map[string]map[string]struct{}
}

// NewFilter prepares a Filter from the provided configuration. A disabled
// configuration yields a nil Filter, which matches nothing.
func NewFilter(cfg Config) *Filter {
	if !cfg.Enabled {
		return nil
	}
	clone := cfg.Clone()
	normaliseConfig(&clone)

	f := &Filter{
		cfg:          clone,
		metrics:      NewMetrics(),
		pathExact:    toSet(clone.Paths),
		headerEquals: make(map[string]map[string]struct{}, len(clone.HeaderEquals)),
	}
	for key, values := range clone.HeaderEquals {
		valueSet := make(map[string]struct{}, len(values))
		for _, v := range values {
			valueSet[strings.TrimSpace(v)] = struct{}{}
		}
		f.headerEquals[strings.ToLower(key)] = valueSet
	}
	return f
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func normaliseConfig(cfg *Config) {
	if cfg.Mode == "" {
		cfg.Mode = ModeTag
	}
	if cfg.TagKey == "" && cfg.Mode != ModeDrop {
		cfg.TagKey = DefaultTagKey
	}
	if cfg.DemoteTo == nil {
		d := slog.LevelDebug
		cfg.DemoteTo = &d
	}
}

// Metrics returns the counters updated by Record. Nil for a nil Filter.
func (f *Filter) Metrics() *Metrics {
	if f == nil {
		return nil
	}
	return f.metrics
}

// Match evaluates whether r should be considered a health check.
func (f *Filter) Match(r *http.Request) Decision {
	if f == nil || r == nil || r.URL == nil {
		return Decision{}
	}

	if _, ok := f.pathExact[r.URL.Path]; ok {
		return f.decision()
	}
	for _, prefix := range f.cfg.PathPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return f.decision()
		}
	}

	if ua := r.Header.Get("User-Agent"); ua != "" {
		for _, re := range f.cfg.UserAgentPatterns {
			if re != nil && re.MatchString(ua) {
				return f.decision()
			}
		}
	}

	if f.matchHeaders(r.Header) {
		return f.decision()
	}

	if f.matchIP(r.RemoteAddr) {
		return f.decision()
	}
	if ip := firstForwardedIP(r.Header.Values("X-Forwarded-For")); ip != "" && f.matchIP(ip) {
		return f.decision()
	}

	return Decision{}
}

// Record counts what happened to a matched request's completion record.
// forced is true when a failure kept the record at its original level.
func (f *Filter) Record(d Decision, forced bool) {
	if f == nil || !d.Matched {
		return
	}
	if forced {
		f.metrics.IncForced(d.Mode)
		return
	}
	f.metrics.IncMatched(d.Mode)
}

func (f *Filter) decision() Decision {
	d := Decision{
		Matched: true,
		Mode:    f.cfg.Mode,
	}
	if f.cfg.Mode != ModeDrop {
		d.TagKey = f.cfg.TagKey
	}
	if f.cfg.Mode == ModeDemote && f.cfg.DemoteTo != nil {
		d.DemoteLevel = *f.cfg.DemoteTo
		d.HasDemote = true
	}
	return d
}

func (f *Filter) matchHeaders(header http.Header) bool {
	if len(f.headerEquals) == 0 || len(header) == 0 {
		return false
	}
	for rawKey, values := range header {
		expected, ok := f.headerEquals[strings.ToLower(rawKey)]
		if !ok {
			continue
		}
		for _, v := range values {
			if _, match := expected[strings.TrimSpace(v)]; match {
				return true
			}
		}
	}
	return false
}

func (f *Filter) matchIP(addr string) bool {
	if len(f.cfg.RemoteCIDRs) == 0 || addr == "" {
		return false
	}
	ip := parseIP(addr)
	if ip == nil {
		return false
	}
	for _, cidr := range f.cfg.RemoteCIDRs {
		if cidr != nil && cidr.Contains(ip) {
			return true
		}
	}
	return false
}

func parseIP(input string) net.IP {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil
	}
	if host, _, err := net.SplitHostPort(input); err == nil {
		input = host
	}
	return net.ParseIP(input)
}

func firstForwardedIP(values []string) string {
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				return part
			}
		}
	}
	return ""
}

type ctxKey struct{}

// ContextWithDecision annotates ctx with the supplied decision.
func ContextWithDecision(ctx context.Context, decision Decision) context.Context {
	if !decision.Matched {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, decision)
}

// DecisionFromContext retrieves a health-check decision previously stored in
// the context by the request logging middleware.
func DecisionFromContext(ctx context.Context) (Decision, bool) {
	if ctx == nil {
		return Decision{}, false
	}
	if d, ok := ctx.Value(ctxKey{}).(Decision); ok && d.Matched {
		return d, true
	}
	return Decision{}, false
}
