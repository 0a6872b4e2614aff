// Package memstore is an in-memory store.Store used by unit tests and the
// preview CLI path, where no database connection is available or wanted.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/teammeet/schedulesync/internal/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.Mutex

	domainRules    map[string]store.DomainRule
	allowedDomains map[string]store.AllowedDomain
	events         map[string]map[string]store.ScheduleEvent // sourceID -> externalUID -> event
	sources        map[string]store.ScheduleSource
}

func New() *Store {
	return &Store{
		domainRules:    map[string]store.DomainRule{},
		allowedDomains: map[string]store.AllowedDomain{},
		events:         map[string]map[string]store.ScheduleEvent{},
		sources:        map[string]store.ScheduleSource{},
	}
}

func (s *Store) SeedDomainRule(rule store.DomainRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.domainRules[rule.ID] = rule
}

func (s *Store) SeedAllowedDomain(domain store.AllowedDomain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowedDomains[domain.Hostname] = domain
}

func (s *Store) SeedScheduleSource(src store.ScheduleSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID] = src
}

func (s *Store) SeedScheduleEvent(event store.ScheduleEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.events[event.SourceID] == nil {
		s.events[event.SourceID] = map[string]store.ScheduleEvent{}
	}
	s.events[event.SourceID][event.ExternalUID] = event
}

func (s *Store) ListDomainRules(_ context.Context, vendorIDs []string) ([]store.DomainRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wantAny := len(vendorIDs) == 0
	want := map[string]struct{}{}
	for _, v := range vendorIDs {
		want[v] = struct{}{}
	}

	var out []store.DomainRule
	for _, rule := range s.domainRules {
		if rule.Status != store.DomainRuleStatusActive && rule.Status != store.DomainRuleStatusBlocked {
			continue
		}
		if wantAny || rule.VendorID == nil {
			out = append(out, rule)
			continue
		}
		if _, ok := want[*rule.VendorID]; ok {
			out = append(out, rule)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetAllowedDomain(_ context.Context, hostname string) (*store.AllowedDomain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	domain, ok := s.allowedDomains[strings.ToLower(hostname)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := domain
	return &out, nil
}

func (s *Store) TouchAllowedDomain(_ context.Context, hostname string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(hostname)
	domain, ok := s.allowedDomains[key]
	if !ok {
		return store.ErrNotFound
	}
	domain.LastSeenAt = time.Now().UTC()
	s.allowedDomains[key] = domain
	return nil
}

func (s *Store) UpsertAllowedDomain(_ context.Context, domain store.AllowedDomain) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowedDomains[strings.ToLower(domain.Hostname)] = domain
	return nil
}

func (s *Store) UpsertAllowedDomainIfNotBlocked(_ context.Context, domain store.AllowedDomain) (store.AllowedDomain, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(domain.Hostname)
	if existing, ok := s.allowedDomains[key]; ok {
		if existing.Status == store.AllowedDomainStatusBlocked {
			return existing, nil
		}
		if existing.Status == store.AllowedDomainStatusActive && domain.Status == store.AllowedDomainStatusPending {
			return existing, nil
		}
	}
	domain.Hostname = key
	s.allowedDomains[key] = domain
	return domain, nil
}

func (s *Store) LoadEventsInWindow(_ context.Context, sourceID string, window store.SyncWindow) ([]store.ScheduleEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.ScheduleEvent
	for _, event := range s.events[sourceID] {
		if !event.StartAt.Before(window.From) && !event.StartAt.After(window.To) {
			out = append(out, event)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalUID < out[j].ExternalUID })
	return out, nil
}

func (s *Store) UpsertEventsBatch(_ context.Context, events []store.ScheduleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range events {
		if s.events[event.SourceID] == nil {
			s.events[event.SourceID] = map[string]store.ScheduleEvent{}
		}
		s.events[event.SourceID][event.ExternalUID] = event
	}
	return nil
}

func (s *Store) CancelEvents(_ context.Context, sourceID string, externalUIDs []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.events[sourceID]
	if bucket == nil {
		return 0, nil
	}

	cancelled := 0
	now := time.Now().UTC()
	for _, uid := range externalUIDs {
		event, ok := bucket[uid]
		if !ok || event.Status == store.ScheduleEventStatusCancelled {
			continue
		}
		event.Status = store.ScheduleEventStatusCancelled
		event.UpdatedAt = now
		bucket[uid] = event
		cancelled++
	}
	return cancelled, nil
}

func (s *Store) GetScheduleSource(_ context.Context, sourceID string) (*store.ScheduleSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[sourceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := src
	return &out, nil
}

func (s *Store) UpdateScheduleSourceResult(_ context.Context, sourceID string, result store.ScheduleSourceResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.sources[sourceID]
	if !ok {
		return store.ErrNotFound
	}

	src.Status = result.Status
	src.LastError = result.LastError
	src.LastEventCount = result.LastEventCount
	src.LastImported = result.LastImported
	src.LastUpdated = result.LastUpdated
	src.LastCancelled = result.LastCancelled
	now := time.Now().UTC()
	src.LastSyncedAt = &now
	s.sources[sourceID] = src
	return nil
}

func (s *Store) ListSourcesDueForSync(_ context.Context, limit int) ([]store.ScheduleSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.ScheduleSource
	for _, src := range s.sources {
		out = append(out, src)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
