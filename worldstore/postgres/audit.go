package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/jmoiron/sqlx"

	"github.com/techmad220/hackerexperience-go/domain/audit"
	"github.com/techmad220/hackerexperience-go/domain/server"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

type auditRow struct {
	ServerID   string         `db:"server_id"`
	Seq        uint64         `db:"seq"`
	Ts         sql.NullTime   `db:"ts"`
	SrcIP      string         `db:"src_ip"`
	Action     string         `db:"action"`
	Detail     string         `db:"detail"`
	Hidden     bool           `db:"hidden"`
	EditedBy   sql.NullString `db:"edited_by"`
	Tombstoned bool           `db:"tombstoned"`
}

func (r auditRow) toDomain() audit.Entry {
	e := audit.Entry{
		ServerID: server.ID(r.ServerID), Seq: r.Seq, SrcIP: r.SrcIP,
		Action: audit.Action(r.Action), Detail: r.Detail, Hidden: r.Hidden,
		EditedBy: stringPtrFromNull(r.EditedBy), Tombstoned: r.Tombstoned,
	}
	if r.Ts.Valid {
		e.Ts = r.Ts.Time
	}
	return e
}

// AppendLog assigns the next sequence number for serverID inside a
// SELECT ... FOR UPDATE against the servers row, serializing concurrent
// appenders for the same server without a separate sequence table (spec
// §4.2 "sequence numbers are strictly increasing per server").
func (s *Store) AppendLog(ctx context.Context, serverID server.ID, entry audit.Entry) (uint64, error) {
	var logSeq uint64
	err := sqlx.GetContext(ctx, s.ext, &logSeq, `
		SELECT log_seq FROM servers WHERE id = $1 FOR UPDATE`, string(serverID))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domainerrors.NotFound("server", string(serverID))
	}
	if err != nil {
		return 0, domainerrors.StoreError("append_log", err)
	}

	seq := logSeq + 1
	if _, err := s.ext.ExecContext(ctx, `UPDATE servers SET log_seq = $2 WHERE id = $1`, string(serverID), seq); err != nil {
		return 0, domainerrors.StoreError("append_log", err)
	}

	_, err = s.ext.ExecContext(ctx, `
		INSERT INTO audit_log (server_id, seq, ts, src_ip, action, detail, hidden, edited_by, tombstoned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(serverID), seq, entry.Ts, entry.SrcIP, string(entry.Action), entry.Detail,
		entry.Hidden, nullString(entry.EditedBy), entry.Tombstoned)
	if err != nil {
		return 0, domainerrors.StoreError("append_log", err)
	}
	return seq, nil
}

func (s *Store) GetLog(ctx context.Context, serverID server.ID, seq uint64) (audit.Entry, error) {
	var row auditRow
	err := sqlx.GetContext(ctx, s.ext, &row, `
		SELECT server_id, seq, ts, src_ip, action, detail, hidden, edited_by, tombstoned
		FROM audit_log WHERE server_id = $1 AND seq = $2`, string(serverID), seq)
	if errors.Is(err, sql.ErrNoRows) {
		return audit.Entry{}, domainerrors.NotFound("log", strconv.FormatUint(seq, 10))
	}
	if err != nil {
		return audit.Entry{}, domainerrors.StoreError("get_log", err)
	}
	return row.toDomain(), nil
}

func (s *Store) TombstoneLog(ctx context.Context, serverID server.ID, seq uint64, editedBy string) error {
	result, err := s.ext.ExecContext(ctx, `
		UPDATE audit_log SET tombstoned = TRUE, edited_by = $3
		WHERE server_id = $1 AND seq = $2`, string(serverID), seq, editedBy)
	if err != nil {
		return domainerrors.StoreError("tombstone_log", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("log", strconv.FormatUint(seq, 10))
	}
	return nil
}

func (s *Store) HideLog(ctx context.Context, serverID server.ID, seq uint64) error {
	result, err := s.ext.ExecContext(ctx, `
		UPDATE audit_log SET hidden = TRUE WHERE server_id = $1 AND seq = $2`, string(serverID), seq)
	if err != nil {
		return domainerrors.StoreError("hide_log", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("log", strconv.FormatUint(seq, 10))
	}
	return nil
}
