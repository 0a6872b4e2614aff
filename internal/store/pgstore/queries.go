package pgstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/teammeet/schedulesync/internal/store"
)

func (s *Store) ListDomainRules(ctx context.Context, vendorIDs []string) ([]store.DomainRule, error) {
	return withRetry(ctx, s, func(ctx context.Context) ([]store.DomainRule, error) {
		query := `
			select id, pattern, vendor_id, status
			from schedule_domain_rules
			where status in ('active', 'blocked')`
		args := []any{}
		if len(vendorIDs) > 0 {
			query += " and (vendor_id is null or vendor_id = any($1))"
			args = append(args, vendorIDs)
		}

		rows, err := s.pool.Query(ctx, query, args...)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []store.DomainRule
		for rows.Next() {
			var rule store.DomainRule
			if err := rows.Scan(&rule.ID, &rule.Pattern, &rule.VendorID, &rule.Status); err != nil {
				return nil, err
			}
			out = append(out, rule)
		}
		return out, rows.Err()
	})
}

func (s *Store) GetAllowedDomain(ctx context.Context, hostname string) (*store.AllowedDomain, error) {
	return withRetry(ctx, s, func(ctx context.Context) (*store.AllowedDomain, error) {
		row := s.pool.QueryRow(ctx, `
			select hostname, vendor_id, status, verified_by_org_id, verified_by_user_id,
			       verified_at, verification_method, fingerprint, last_seen_at, created_at
			from schedule_allowed_domains where hostname = $1`, strings.ToLower(hostname))

		var domain store.AllowedDomain
		err := row.Scan(&domain.Hostname, &domain.VendorID, &domain.Status, &domain.VerifiedByOrgID,
			&domain.VerifiedByUserID, &domain.VerifiedAt, &domain.VerificationMethod,
			&domain.Fingerprint, &domain.LastSeenAt, &domain.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &domain, nil
	})
}

func (s *Store) TouchAllowedDomain(ctx context.Context, hostname string) error {
	_, err := withRetry(ctx, s, func(ctx context.Context) (struct{}, error) {
		tag, err := s.pool.Exec(ctx, `
			update schedule_allowed_domains set last_seen_at = now()
			where hostname = $1`, strings.ToLower(hostname))
		if err != nil {
			return struct{}{}, err
		}
		if tag.RowsAffected() == 0 {
			return struct{}{}, store.ErrNotFound
		}
		return struct{}{}, nil
	})
	return err
}

func (s *Store) UpsertAllowedDomain(ctx context.Context, domain store.AllowedDomain) error {
	_, err := withRetry(ctx, s, func(ctx context.Context) (struct{}, error) {
		_, err := s.pool.Exec(ctx, `
			insert into schedule_allowed_domains(
				hostname, vendor_id, status, verified_by_org_id, verified_by_user_id,
				verified_at, verification_method, fingerprint, last_seen_at, created_at
			) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			on conflict (hostname) do update set
				vendor_id = excluded.vendor_id,
				status = excluded.status,
				verified_by_org_id = excluded.verified_by_org_id,
				verified_by_user_id = excluded.verified_by_user_id,
				verified_at = excluded.verified_at,
				verification_method = excluded.verification_method,
				fingerprint = excluded.fingerprint,
				last_seen_at = excluded.last_seen_at
		`, strings.ToLower(domain.Hostname), domain.VendorID, domain.Status, domain.VerifiedByOrgID,
			domain.VerifiedByUserID, domain.VerifiedAt, domain.VerificationMethod,
			domain.Fingerprint, domain.LastSeenAt)
		return struct{}{}, err
	})
	return err
}

// UpsertAllowedDomainIfNotBlocked writes domain unless the existing row is
// already blocked, or the write would downgrade an active row to pending
// (never allowed except via explicit admin action), then rereads the row
// so the caller always sees the actual persisted state rather than
// assuming its own write won.
func (s *Store) UpsertAllowedDomainIfNotBlocked(ctx context.Context, domain store.AllowedDomain) (store.AllowedDomain, error) {
	return withRetry(ctx, s, func(ctx context.Context) (store.AllowedDomain, error) {
		_, err := s.pool.Exec(ctx, `
			insert into schedule_allowed_domains(
				hostname, vendor_id, status, verified_by_org_id, verified_by_user_id,
				verified_at, verification_method, fingerprint, last_seen_at, created_at
			) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			on conflict (hostname) do update set
				vendor_id = excluded.vendor_id,
				status = excluded.status,
				verified_by_org_id = excluded.verified_by_org_id,
				verified_by_user_id = excluded.verified_by_user_id,
				verified_at = excluded.verified_at,
				verification_method = excluded.verification_method,
				fingerprint = excluded.fingerprint,
				last_seen_at = excluded.last_seen_at
			where schedule_allowed_domains.status != 'blocked'
				and not (schedule_allowed_domains.status = 'active' and excluded.status = 'pending')
		`, strings.ToLower(domain.Hostname), domain.VendorID, domain.Status, domain.VerifiedByOrgID,
			domain.VerifiedByUserID, domain.VerifiedAt, domain.VerificationMethod,
			domain.Fingerprint, domain.LastSeenAt)
		if err != nil {
			return store.AllowedDomain{}, err
		}

		row := s.pool.QueryRow(ctx, `
			select hostname, vendor_id, status, verified_by_org_id, verified_by_user_id,
			       verified_at, verification_method, fingerprint, last_seen_at, created_at
			from schedule_allowed_domains where hostname = $1`, strings.ToLower(domain.Hostname))

		var persisted store.AllowedDomain
		scanErr := row.Scan(&persisted.Hostname, &persisted.VendorID, &persisted.Status,
			&persisted.VerifiedByOrgID, &persisted.VerifiedByUserID, &persisted.VerifiedAt,
			&persisted.VerificationMethod, &persisted.Fingerprint, &persisted.LastSeenAt, &persisted.CreatedAt)
		if scanErr != nil {
			return store.AllowedDomain{}, scanErr
		}
		return persisted, nil
	})
}

func (s *Store) LoadEventsInWindow(ctx context.Context, sourceID string, window store.SyncWindow) ([]store.ScheduleEvent, error) {
	return withRetry(ctx, s, func(ctx context.Context) ([]store.ScheduleEvent, error) {
		rows, err := s.pool.Query(ctx, `
			select id, org_id, source_id, external_uid, title, start_at, end_at, location, status, raw, updated_at
			from schedule_events
			where source_id = $1 and start_at >= $2 and start_at <= $3`,
			sourceID, window.From, window.To)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []store.ScheduleEvent
		for rows.Next() {
			var event store.ScheduleEvent
			if err := rows.Scan(&event.ID, &event.OrgID, &event.SourceID, &event.ExternalUID,
				&event.Title, &event.StartAt, &event.EndAt, &event.Location, &event.Status,
				&event.Raw, &event.UpdatedAt); err != nil {
				return nil, err
			}
			out = append(out, event)
		}
		return out, rows.Err()
	})
}

// upsertBatchSize and cancelBatchSize (below) match the reconciler's chunking
// contract: 200 rows per upsert statement, 250 external_uids per cancel statement.
const upsertBatchSize = 200

func (s *Store) UpsertEventsBatch(ctx context.Context, events []store.ScheduleEvent) error {
	_, err := withRetry(ctx, s, func(ctx context.Context) (struct{}, error) {
		for start := 0; start < len(events); start += upsertBatchSize {
			end := start + upsertBatchSize
			if end > len(events) {
				end = len(events)
			}
			if err := s.upsertChunk(ctx, events[start:end]); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, nil
	})
	return err
}

func (s *Store) upsertChunk(ctx context.Context, chunk []store.ScheduleEvent) error {
	batch := &pgx.Batch{}
	for _, event := range chunk {
		batch.Queue(`
			insert into schedule_events(
				org_id, source_id, external_uid, title, start_at, end_at, location, status, raw, updated_at
			) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
			on conflict (source_id, external_uid) do update set
				title = excluded.title,
				start_at = excluded.start_at,
				end_at = excluded.end_at,
				location = excluded.location,
				status = excluded.status,
				raw = excluded.raw,
				updated_at = now()
		`, event.OrgID, event.SourceID, event.ExternalUID, event.Title, event.StartAt,
			event.EndAt, event.Location, event.Status, event.Raw)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range chunk {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

const cancelBatchSize = 250

func (s *Store) CancelEvents(ctx context.Context, sourceID string, externalUIDs []string) (int, error) {
	return withRetry(ctx, s, func(ctx context.Context) (int, error) {
		total := 0
		for start := 0; start < len(externalUIDs); start += cancelBatchSize {
			end := start + cancelBatchSize
			if end > len(externalUIDs) {
				end = len(externalUIDs)
			}
			tag, err := s.pool.Exec(ctx, `
				update schedule_events set status = 'cancelled', updated_at = now()
				where source_id = $1 and external_uid = any($2) and status != 'cancelled'
			`, sourceID, externalUIDs[start:end])
			if err != nil {
				return total, err
			}
			total += int(tag.RowsAffected())
		}
		return total, nil
	})
}

func (s *Store) GetScheduleSource(ctx context.Context, sourceID string) (*store.ScheduleSource, error) {
	return withRetry(ctx, s, func(ctx context.Context) (*store.ScheduleSource, error) {
		row := s.pool.QueryRow(ctx, `
			select id, org_id, vendor_id, source_url, connected_user_id, status, last_synced_at,
			       last_error, last_event_count, last_imported, last_updated, last_cancelled
			from schedule_sources where id = $1`, sourceID)

		var src store.ScheduleSource
		err := row.Scan(&src.ID, &src.OrgID, &src.VendorID, &src.SourceURL, &src.ConnectedUserID,
			&src.Status, &src.LastSyncedAt, &src.LastError, &src.LastEventCount,
			&src.LastImported, &src.LastUpdated, &src.LastCancelled)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		return &src, nil
	})
}

func (s *Store) UpdateScheduleSourceResult(ctx context.Context, sourceID string, result store.ScheduleSourceResult) error {
	_, err := withRetry(ctx, s, func(ctx context.Context) (struct{}, error) {
		tag, err := s.pool.Exec(ctx, `
			update schedule_sources set
				status = $1, last_error = $2, last_event_count = $3,
				last_imported = $4, last_updated = $5, last_cancelled = $6,
				last_synced_at = now(), updated_at = now()
			where id = $7
		`, result.Status, result.LastError, result.LastEventCount, result.LastImported,
			result.LastUpdated, result.LastCancelled, sourceID)
		if err != nil {
			return struct{}{}, err
		}
		if tag.RowsAffected() == 0 {
			return struct{}{}, store.ErrNotFound
		}
		return struct{}{}, nil
	})
	return err
}

func (s *Store) ListSourcesDueForSync(ctx context.Context, limit int) ([]store.ScheduleSource, error) {
	return withRetry(ctx, s, func(ctx context.Context) ([]store.ScheduleSource, error) {
		rows, err := s.pool.Query(ctx, `
			select id, org_id, vendor_id, source_url, connected_user_id, status, last_synced_at,
			       last_error, last_event_count, last_imported, last_updated, last_cancelled
			from schedule_sources
			where last_synced_at is null or last_synced_at < $1
			order by last_synced_at nulls first
			limit $2`, time.Now().Add(-1*time.Hour), limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var out []store.ScheduleSource
		for rows.Next() {
			var src store.ScheduleSource
			if err := rows.Scan(&src.ID, &src.OrgID, &src.VendorID, &src.SourceURL, &src.ConnectedUserID,
				&src.Status, &src.LastSyncedAt, &src.LastError, &src.LastEventCount,
				&src.LastImported, &src.LastUpdated, &src.LastCancelled); err != nil {
				return nil, err
			}
			out = append(out, src)
		}
		return out, rows.Err()
	})
}
