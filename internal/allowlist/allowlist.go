// Package allowlist resolves whether a host may be fetched for a given
// vendor, combining admin-managed domain rules with per-host verification
// state. The pattern matcher is adapted from docs-crawler's robots package
// group matching, applied here to hostname suffixes. Patterns are not ranked
// by specificity: any matching blocked rule wins, otherwise any matching
// active rule does.
package allowlist

import (
	"context"
	"strings"

	"github.com/teammeet/schedulesync/internal/store"
)

// Status is the resolved allowlist decision for a host. It is a superset of
// store.AllowedDomainStatus: Denied means no rule or domain row matched at
// all, a state the store itself never persists.
type Status string

const (
	StatusActive  Status = "active"
	StatusBlocked Status = "blocked"
	StatusPending Status = "pending"
	StatusDenied  Status = "denied"
)

// Source identifies which table produced the decision.
type Source string

const (
	SourceRule   Source = "rule"
	SourceDomain Source = "domain"
	SourceNone   Source = "none"
)

// Decision is the outcome of checkHostStatus.
type Decision struct {
	Status   Status
	Source   Source
	VendorID *string
	DomainID *string
}

// vendorAliases expands an umbrella vendor id into the concrete vendor ids
// it covers. A vendor not present here has no alias expansion.
var vendorAliases = map[string][]string{
	"vendorB": {"sidearmsports", "prestosports"},
}

// expandVendor returns the alias-expanded vendor set for vendorID. A nil
// vendorID means "match any vendor" and yields a nil (unrestricted) set.
func expandVendor(vendorID *string) []string {
	if vendorID == nil {
		return nil
	}
	if aliases, ok := vendorAliases[*vendorID]; ok {
		return aliases
	}
	return []string{*vendorID}
}

// Override is a process-wide test-only allowlist shortcut: hostnames
// matching Allow resolve active, hostnames matching Deny resolve denied,
// before any table lookup runs. It is only ever honored outside production
// builds (see New's production argument).
type Override struct {
	Allow []string
	Deny  []string
}

func matchesAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if MatchesPattern(host, p) {
			return true
		}
	}
	return false
}

// Engine resolves allowlist decisions against a store.Store.
type Engine struct {
	store      hostStatusStore
	override   *Override
	production bool
}

// hostStatusStore is the narrow slice of store.Store the allowlist engine
// needs; satisfied structurally by both memstore.Store and pgstore.Store.
type hostStatusStore interface {
	ListDomainRules(ctx context.Context, vendorIDs []string) ([]store.DomainRule, error)
	GetAllowedDomain(ctx context.Context, hostname string) (*store.AllowedDomain, error)
	TouchAllowedDomain(ctx context.Context, hostname string) error
}

// New builds an Engine. override is nil in production; it is injected at
// construction rather than held in a package global so tests never leak
// state across packages.
func New(s hostStatusStore, override *Override, production bool) *Engine {
	return &Engine{store: s, override: override, production: production}
}

// CheckHostStatus resolves the allowlist decision for host, optionally
// scoped to vendorID.
func (e *Engine) CheckHostStatus(ctx context.Context, host string, vendorID *string) (Decision, error) {
	host = normalizeHost(host)

	if !e.production && e.override != nil {
		if matchesAny(host, e.override.Deny) {
			return Decision{Status: StatusDenied, Source: SourceNone}, nil
		}
		if matchesAny(host, e.override.Allow) {
			return Decision{Status: StatusActive, Source: SourceNone, VendorID: vendorID}, nil
		}
	}

	vendorSet := expandVendor(vendorID)
	rules, err := e.store.ListDomainRules(ctx, vendorSet)
	if err != nil {
		return Decision{}, err
	}

	var matchedActive *store.DomainRule
	for i := range rules {
		rule := &rules[i]
		if !MatchesPattern(host, rule.Pattern) {
			continue
		}
		if rule.Status == store.DomainRuleStatusBlocked {
			return Decision{Status: StatusBlocked, Source: SourceRule, VendorID: rule.VendorID, DomainID: &rule.ID}, nil
		}
		if rule.Status == store.DomainRuleStatusActive && matchedActive == nil {
			matchedActive = rule
		}
	}
	if matchedActive != nil {
		return Decision{Status: StatusActive, Source: SourceRule, VendorID: matchedActive.VendorID, DomainID: &matchedActive.ID}, nil
	}

	domain, err := e.store.GetAllowedDomain(ctx, host)
	if err == store.ErrNotFound {
		return Decision{Status: StatusDenied, Source: SourceNone}, nil
	}
	if err != nil {
		return Decision{}, err
	}
	if len(vendorSet) > 0 && domain.VendorID != nil && !containsString(vendorSet, *domain.VendorID) {
		return Decision{Status: StatusDenied, Source: SourceNone}, nil
	}

	status := StatusDenied
	switch domain.Status {
	case store.AllowedDomainStatusActive:
		status = StatusActive
	case store.AllowedDomainStatusPending:
		status = StatusPending
	case store.AllowedDomainStatusBlocked:
		status = StatusBlocked
	}
	return Decision{Status: status, Source: SourceDomain, VendorID: domain.VendorID}, nil
}

// IsHostAllowed is a convenience wrapper over CheckHostStatus.
func (e *Engine) IsHostAllowed(ctx context.Context, host string, vendorID *string) (bool, error) {
	decision, err := e.CheckHostStatus(ctx, host, vendorID)
	if err != nil {
		return false, err
	}
	return decision.Status == StatusActive, nil
}

// TouchAllowedDomain bumps last_seen_at for host. Hosts resolved purely
// through an override or a domain rule (no AllowedDomain row) are not
// touched; ErrNotFound is swallowed rather than surfaced.
func (e *Engine) TouchAllowedDomain(ctx context.Context, host string) error {
	err := e.store.TouchAllowedDomain(ctx, normalizeHost(host))
	if err == store.ErrNotFound {
		return nil
	}
	return err
}

func containsString(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	return strings.TrimSuffix(host, ".")
}

// MatchesPattern reports whether host matches pattern. A pattern starting
// with "*." or "." matches the exact suffix and any subdomain; otherwise
// the match is exact. Both sides are normalized (lowercased, trailing dot
// stripped) before comparison.
func MatchesPattern(host, pattern string) bool {
	host = normalizeHost(host)
	pattern = normalizeHost(pattern)

	suffix := ""
	switch {
	case strings.HasPrefix(pattern, "*."):
		suffix = pattern[2:]
	case strings.HasPrefix(pattern, "."):
		suffix = pattern[1:]
	default:
		return host == pattern
	}

	if suffix == "" {
		return false
	}
	return host == suffix || strings.HasSuffix(host, "."+suffix)
}
