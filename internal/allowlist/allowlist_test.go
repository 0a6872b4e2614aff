package allowlist_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teammeet/schedulesync/internal/allowlist"
	"github.com/teammeet/schedulesync/internal/store"
	"github.com/teammeet/schedulesync/internal/store/memstore"
)

func TestMatchesPattern(t *testing.T) {
	assert.True(t, allowlist.MatchesPattern("a.example.com", "*.example.com"))
	assert.True(t, allowlist.MatchesPattern("example.com", "*.example.com"))
	assert.False(t, allowlist.MatchesPattern("example.com.evil", "*.example.com"))
	assert.True(t, allowlist.MatchesPattern("EXAMPLE.com.", ".example.com"))
	assert.True(t, allowlist.MatchesPattern("Example.com", "example.com"))
	assert.False(t, allowlist.MatchesPattern("sub.example.com", "example.com"))
}

func TestCheckHostStatusBlockedRulePrecedesActiveDomain(t *testing.T) {
	ms := memstore.New()
	ms.SeedAllowedDomain(store.AllowedDomain{Hostname: "games.example.com", Status: store.AllowedDomainStatusActive})
	ms.SeedDomainRule(store.DomainRule{ID: "r1", Pattern: "*.example.com", Status: store.DomainRuleStatusBlocked})

	engine := allowlist.New(ms, nil, true)
	decision, err := engine.CheckHostStatus(context.Background(), "games.example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusBlocked, decision.Status)
	assert.Equal(t, allowlist.SourceRule, decision.Source)
}

func TestCheckHostStatusFallsThroughToAllowedDomain(t *testing.T) {
	ms := memstore.New()
	ms.SeedAllowedDomain(store.AllowedDomain{Hostname: "sched.vendora.com", Status: store.AllowedDomainStatusPending})

	engine := allowlist.New(ms, nil, true)
	decision, err := engine.CheckHostStatus(context.Background(), "sched.vendora.com", nil)
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusPending, decision.Status)
	assert.Equal(t, allowlist.SourceDomain, decision.Source)
}

func TestCheckHostStatusMissingRowIsDenied(t *testing.T) {
	ms := memstore.New()
	engine := allowlist.New(ms, nil, true)
	decision, err := engine.CheckHostStatus(context.Background(), "unknown.example.org", nil)
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusDenied, decision.Status)
}

func TestOverrideIgnoredInProduction(t *testing.T) {
	ms := memstore.New()
	override := &allowlist.Override{Allow: []string{"*.example.com"}}
	engine := allowlist.New(ms, override, true)

	decision, err := engine.CheckHostStatus(context.Background(), "games.example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusDenied, decision.Status)
}

func TestOverrideHonoredOutsideProduction(t *testing.T) {
	ms := memstore.New()
	override := &allowlist.Override{Allow: []string{"*.example.com"}, Deny: []string{"blocked.example.com"}}
	engine := allowlist.New(ms, override, false)

	active, err := engine.CheckHostStatus(context.Background(), "games.example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusActive, active.Status)

	denied, err := engine.CheckHostStatus(context.Background(), "blocked.example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, allowlist.StatusDenied, denied.Status)
}

func TestIsHostAllowed(t *testing.T) {
	ms := memstore.New()
	ms.SeedAllowedDomain(store.AllowedDomain{Hostname: "sched.vendora.com", Status: store.AllowedDomainStatusActive})
	engine := allowlist.New(ms, nil, true)

	ok, err := engine.IsHostAllowed(context.Background(), "sched.vendora.com", nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestTouchAllowedDomainSwallowsNotFound(t *testing.T) {
	ms := memstore.New()
	engine := allowlist.New(ms, nil, true)
	err := engine.TouchAllowedDomain(context.Background(), "unknown.example.org")
	assert.NoError(t, err)
}
