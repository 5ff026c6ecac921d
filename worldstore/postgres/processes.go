package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/techmad220/hackerexperience-go/domain/cursor"
	"github.com/techmad220/hackerexperience-go/domain/player"
	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

type processRow struct {
	ID                 string          `db:"id"`
	Kind               string          `db:"kind"`
	OwnerID            string          `db:"owner_id"`
	SourceID           string          `db:"source_id"`
	TargetID           string          `db:"target_id"`
	TargetFile         string          `db:"target_file"`
	Priority           int             `db:"priority"`
	State              string          `db:"state"`
	ResourcesRequired  json.RawMessage `db:"resources_required"`
	ResourcesAllocated json.RawMessage `db:"resources_allocated"`
	Progress           float64         `db:"progress"`
	TimeStarted        sql.NullTime    `db:"time_started"`
	TimeEstimatedNS    int64           `db:"time_estimated_ns"`
	TimeRemainingNS    int64           `db:"time_remaining_ns"`
	QueuedAt           time.Time       `db:"queued_at"`
	CompletionTime     sql.NullTime    `db:"completion_time"`
	EffectKind         string          `db:"effect_kind"`
	EffectData         json.RawMessage `db:"effect_data"`
	Data               json.RawMessage `db:"data"`
	FailureReason      string          `db:"failure_reason"`
}

func (r processRow) toDomain() (domainprocess.Process, error) {
	var resourcesRequired, resourcesAllocated server.HardwareSpec
	if len(r.ResourcesRequired) > 0 {
		if err := json.Unmarshal(r.ResourcesRequired, &resourcesRequired); err != nil {
			return domainprocess.Process{}, domainerrors.StoreError("scan_process", err)
		}
	}
	if len(r.ResourcesAllocated) > 0 {
		if err := json.Unmarshal(r.ResourcesAllocated, &resourcesAllocated); err != nil {
			return domainprocess.Process{}, domainerrors.StoreError("scan_process", err)
		}
	}
	var effectData, data map[string]string
	if len(r.EffectData) > 0 {
		if err := json.Unmarshal(r.EffectData, &effectData); err != nil {
			return domainprocess.Process{}, domainerrors.StoreError("scan_process", err)
		}
	}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &data); err != nil {
			return domainprocess.Process{}, domainerrors.StoreError("scan_process", err)
		}
	}

	p := domainprocess.Process{
		ID:                 domainprocess.ID(r.ID),
		Kind:               domainprocess.Kind(r.Kind),
		OwnerID:            r.OwnerID,
		SourceID:           server.ID(r.SourceID),
		TargetID:           server.ID(r.TargetID),
		TargetFile:         r.TargetFile,
		Priority:           domainprocess.Priority(r.Priority),
		State:              domainprocess.State(r.State),
		ResourcesRequired:  resourcesRequired,
		ResourcesAllocated: resourcesAllocated,
		Progress:           r.Progress,
		TimeEstimated:      time.Duration(r.TimeEstimatedNS),
		TimeRemaining:      time.Duration(r.TimeRemainingNS),
		QueuedAt:           r.QueuedAt,
		Effect:             domainprocess.CompletionEffect{Kind: domainprocess.Kind(r.EffectKind), Data: effectData},
		Data:               data,
		FailureReason:      r.FailureReason,
	}
	if r.TimeStarted.Valid {
		p.TimeStarted = r.TimeStarted.Time
	}
	if r.CompletionTime.Valid {
		p.CompletionTime = r.CompletionTime.Time
	}
	return p, nil
}

func (s *Store) GetProcess(ctx context.Context, id domainprocess.ID) (domainprocess.Process, error) {
	var row processRow
	err := sqlx.GetContext(ctx, s.ext, &row, processSelectCols+` WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return domainprocess.Process{}, domainerrors.NotFound("process", string(id))
	}
	if err != nil {
		return domainprocess.Process{}, domainerrors.StoreError("get_process", err)
	}
	return row.toDomain()
}

const processSelectCols = `
	SELECT id, kind, owner_id, source_id, target_id, target_file, priority, state,
	       resources_required, resources_allocated, progress, time_started, time_estimated_ns,
	       time_remaining_ns, queued_at, completion_time, effect_kind, effect_data, data, failure_reason
	FROM processes`

func (s *Store) CreateProcess(ctx context.Context, p domainprocess.Process) error {
	resReq, resAlloc, effData, data, err := marshalProcessJSON(p)
	if err != nil {
		return domainerrors.StoreError("create_process", err)
	}
	_, err = s.ext.ExecContext(ctx, `
		INSERT INTO processes (id, kind, owner_id, source_id, target_id, target_file, priority,
		                        state, resources_required, resources_allocated, progress,
		                        time_started, time_estimated_ns, time_remaining_ns, queued_at,
		                        completion_time, effect_kind, effect_data, data, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`,
		string(p.ID), string(p.Kind), p.OwnerID, string(p.SourceID), string(p.TargetID), p.TargetFile,
		int(p.Priority), string(p.State), resReq, resAlloc, p.Progress, nullTime(p.TimeStarted),
		int64(p.TimeEstimated), int64(p.TimeRemaining), p.QueuedAt, nullTime(p.CompletionTime),
		string(p.Effect.Kind), effData, data, p.FailureReason)
	if err != nil {
		return domainerrors.StoreError("create_process", err)
	}
	return nil
}

func (s *Store) UpdateProcess(ctx context.Context, p domainprocess.Process) error {
	resReq, resAlloc, effData, data, err := marshalProcessJSON(p)
	if err != nil {
		return domainerrors.StoreError("update_process", err)
	}
	result, err := s.ext.ExecContext(ctx, `
		UPDATE processes SET kind = $2, owner_id = $3, source_id = $4, target_id = $5,
		       target_file = $6, priority = $7, state = $8, resources_required = $9,
		       resources_allocated = $10, progress = $11, time_started = $12,
		       time_estimated_ns = $13, time_remaining_ns = $14, queued_at = $15,
		       completion_time = $16, effect_kind = $17, effect_data = $18, data = $19,
		       failure_reason = $20
		WHERE id = $1`,
		string(p.ID), string(p.Kind), p.OwnerID, string(p.SourceID), string(p.TargetID), p.TargetFile,
		int(p.Priority), string(p.State), resReq, resAlloc, p.Progress, nullTime(p.TimeStarted),
		int64(p.TimeEstimated), int64(p.TimeRemaining), p.QueuedAt, nullTime(p.CompletionTime),
		string(p.Effect.Kind), effData, data, p.FailureReason)
	if err != nil {
		return domainerrors.StoreError("update_process", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("process", string(p.ID))
	}
	return nil
}

func marshalProcessJSON(p domainprocess.Process) (resReq, resAlloc, effData, data []byte, err error) {
	if resReq, err = json.Marshal(p.ResourcesRequired); err != nil {
		return
	}
	if resAlloc, err = json.Marshal(p.ResourcesAllocated); err != nil {
		return
	}
	if effData, err = json.Marshal(p.Effect.Data); err != nil {
		return
	}
	data, err = json.Marshal(p.Data)
	return
}

func (s *Store) DeleteProcess(ctx context.Context, id domainprocess.ID) error {
	result, err := s.ext.ExecContext(ctx, `DELETE FROM processes WHERE id = $1`, string(id))
	if err != nil {
		return domainerrors.StoreError("delete_process", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("process", string(id))
	}
	return nil
}

// FindRunningOrQueued enforces the at-most-one-Running-or-Queued dedup
// invariant (spec §3) with a single indexed lookup against the partial index
// on (owner_id, kind, target_id, target_file, source_id) WHERE state IN
// ('queued', 'running') declared in migrations/0001_init.sql.
func (s *Store) FindRunningOrQueued(ctx context.Context, key domainprocess.DedupKey) (domainprocess.Process, bool, error) {
	var row processRow
	err := sqlx.GetContext(ctx, s.ext, &row, processSelectCols+`
		WHERE owner_id = $1 AND kind = $2 AND target_id = $3 AND target_file = $4 AND source_id = $5
		      AND state IN ('queued', 'running')
		LIMIT 1`,
		key.OwnerID, string(key.Kind), string(key.TargetID), key.TargetFile, string(key.SourceID))
	if errors.Is(err, sql.ErrNoRows) {
		return domainprocess.Process{}, false, nil
	}
	if err != nil {
		return domainprocess.Process{}, false, domainerrors.StoreError("find_running_or_queued", err)
	}
	p, err := row.toDomain()
	return p, true, err
}

// QueryProcessesForOwner implements spec §6's cursor-paginated QueryProcesses
// against the (owner_id, queued_at, id) index, matching the in-memory
// store's tie-break ordering (queued_at then id).
func (s *Store) QueryProcessesForOwner(ctx context.Context, owner player.ID, c cursor.Cursor, limit int) (cursor.Page[domainprocess.Process], error) {
	limit = cursor.ClampLimit(limit)

	var rows []processRow
	var err error
	if c.ID != nil {
		after, aerr := s.GetProcess(ctx, domainprocess.ID(*c.ID))
		if aerr != nil {
			return cursor.Page[domainprocess.Process]{}, aerr
		}
		err = sqlx.SelectContext(ctx, s.ext, &rows, processSelectCols+`
			WHERE owner_id = $1 AND (queued_at, id) > ($2, $3)
			ORDER BY queued_at ASC, id ASC LIMIT $4`,
			string(owner), after.QueuedAt, string(after.ID), limit+1)
	} else {
		err = sqlx.SelectContext(ctx, s.ext, &rows, processSelectCols+`
			WHERE owner_id = $1
			ORDER BY queued_at ASC, id ASC LIMIT $2`,
			string(owner), limit+1)
	}
	if err != nil {
		return cursor.Page[domainprocess.Process]{}, domainerrors.StoreError("query_processes_for_owner", err)
	}

	hasNext := len(rows) > limit
	if hasNext {
		rows = rows[:limit]
	}

	items := make([]domainprocess.Process, 0, len(rows))
	for _, r := range rows {
		p, err := r.toDomain()
		if err != nil {
			return cursor.Page[domainprocess.Process]{}, err
		}
		items = append(items, p)
	}

	next := ""
	if hasNext && len(items) > 0 {
		lastID := string(items[len(items)-1].ID)
		next = cursor.Encode(cursor.Cursor{ID: &lastID, Direction: c.Direction})
	}
	return cursor.Page[domainprocess.Process]{Items: items, NextCursor: next, HasNext: hasNext}, nil
}
