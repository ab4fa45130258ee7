package config

import (
	"fmt"
	"os"

	"media-redirect/pkg/pathmap"
	"media-redirect/pkg/rule"

	"gopkg.in/yaml.v3"
)

// RulesDocument is the YAML rules file as written by operators
type RulesDocument struct {
	MountPaths         []string        `yaml:"mount_paths"`
	RouteRules         [][]any         `yaml:"route_rules"`
	PathMapping        [][]any         `yaml:"path_mapping"`
	LastLinkRules      [][]any         `yaml:"last_link_rules"`
	ClientRewriteRules [][]any         `yaml:"client_rewrite_rules"`
	RouteCache         RouteCacheRules `yaml:"route_cache"`
	Sign               SignRules       `yaml:"sign"`
	Notify             NotifyRules     `yaml:"notify"`
	Transcode          TranscodeRules  `yaml:"transcode"`
}

type RouteCacheRules struct {
	Enable         bool     `yaml:"enable"`
	EnableL2       bool     `yaml:"enable_l2"`
	KeyExpression  string   `yaml:"key_expression"`
	SharedPrefixes []string `yaml:"shared_prefixes"`
}

type SignRules struct {
	Enable      bool   `yaml:"enable"`
	Secret      string `yaml:"secret"`
	ExpireHours int    `yaml:"expire_hours"`
}

type NotifyRules struct {
	Admin         AdminNotifyRules  `yaml:"admin"`
	DeviceMessage DeviceNotifyRules `yaml:"device_message"`
	Email         EmailNotifyRules  `yaml:"email"`
	RatePerSecond float64           `yaml:"rate_per_second"`
	Burst         int               `yaml:"burst"`
}

type AdminNotifyRules struct {
	Enable     bool   `yaml:"enable"`
	Name       string `yaml:"name"`
	IncludeURL bool   `yaml:"include_url"`
}

type DeviceNotifyRules struct {
	Enable    bool   `yaml:"enable"`
	Header    string `yaml:"header"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

type EmailNotifyRules struct {
	Enable  bool   `yaml:"enable"`
	Subject string `yaml:"subject"`
}

type TranscodeRules struct {
	Enable                 bool `yaml:"enable"`
	RedirectTransOptEnable bool `yaml:"redirect_trans_opt_enable"`
}

// Rules is the validated, compiled form of a RulesDocument
type Rules struct {
	MountPaths    []string
	Decider       *rule.Decider
	RouteRules    *rule.Set
	Mapper        *pathmap.Mapper
	LastLink      []rule.LastLinkRule
	ClientRewrite []rule.RewriteRule
	RouteCache    RouteCacheRules
	Sign          SignRules
	Notify        NotifyRules
	Transcode     TranscodeRules
}

// LoadRules reads and compiles the rules file; an empty path yields the defaults.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return ParseRules(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules compiles a YAML rules document.
func ParseRules(data []byte) (*Rules, error) {
	doc := defaultRulesDocument()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
		}
	}
	return doc.Compile()
}

func defaultRulesDocument() RulesDocument {
	return RulesDocument{
		RouteCache: RouteCacheRules{
			SharedPrefixes: []string{"https://cdnfhnfile.115.com"},
		},
		Notify: NotifyRules{
			Admin: AdminNotifyRules{
				Name: "media-redirect",
			},
			DeviceMessage: DeviceNotifyRules{
				Header:    "media-redirect",
				TimeoutMs: 5000,
			},
			Email: EmailNotifyRules{
				Subject: "media-redirect",
			},
			RatePerSecond: 2,
			Burst:         10,
		},
	}
}

// Compile validates every rule shape and builds the runtime structures.
func (d RulesDocument) Compile() (*Rules, error) {
	for i, p := range d.MountPaths {
		if p == "" {
			return nil, fmt.Errorf("mount_paths[%d] is empty", i)
		}
	}

	routeRules, err := rule.Parse(d.RouteRules)
	if err != nil {
		return nil, fmt.Errorf("route_rules: %w", err)
	}

	mapper, err := pathmap.Parse(d.MountPaths, d.PathMapping)
	if err != nil {
		return nil, fmt.Errorf("path_mapping: %w", err)
	}

	lastLink := make([]rule.LastLinkRule, 0, len(d.LastLinkRules))
	for _, raw := range d.LastLinkRules {
		r, err := rule.ParseLastLinkRule(raw)
		if err != nil {
			return nil, fmt.Errorf("last_link_rules: %w", err)
		}
		lastLink = append(lastLink, r)
	}

	rewrite := make([]rule.RewriteRule, 0, len(d.ClientRewriteRules))
	for _, raw := range d.ClientRewriteRules {
		r, err := rule.ParseRewriteRule(raw)
		if err != nil {
			return nil, fmt.Errorf("client_rewrite_rules: %w", err)
		}
		rewrite = append(rewrite, r)
	}

	if d.Sign.ExpireHours < 0 {
		return nil, fmt.Errorf("sign.expire_hours must not be negative")
	}
	if d.Notify.RatePerSecond <= 0 || d.Notify.Burst <= 0 {
		return nil, fmt.Errorf("notify.rate_per_second and notify.burst must be positive")
	}

	return &Rules{
		MountPaths:    d.MountPaths,
		Decider:       rule.NewDecider(routeRules, d.MountPaths),
		RouteRules:    routeRules,
		Mapper:        mapper,
		LastLink:      lastLink,
		ClientRewrite: rewrite,
		RouteCache:    d.RouteCache,
		Sign:          d.Sign,
		Notify:        d.Notify,
		Transcode:     d.Transcode,
	}, nil
}

// resolveSignSecret falls back to the storage token, which is what the backend signs with.
func (r *Rules) resolveSignSecret(storageToken string) error {
	if !r.Sign.Enable || r.Sign.Secret != "" {
		return nil
	}
	if storageToken == "" {
		return fmt.Errorf("sign is enabled but neither sign.secret nor ALIST_TOKEN is set")
	}
	r.Sign.Secret = storageToken
	return nil
}
