package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/techmad220/hackerexperience-go/domain/player"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
)

type playerRow struct {
	ID         string         `db:"id"`
	Username   string         `db:"username"`
	Money      int64          `db:"money"`
	Experience uint64         `db:"experience"`
	Level      int            `db:"level"`
	Reputation int            `db:"reputation"`
	ClanID     sql.NullString `db:"clan_id"`
}

func (r playerRow) toDomain() player.Player {
	p := player.Player{
		ID:         player.ID(r.ID),
		Username:   r.Username,
		Money:      r.Money,
		Experience: r.Experience,
		Level:      r.Level,
		Reputation: r.Reputation,
	}
	if r.ClanID.Valid {
		cid := player.ClanID(r.ClanID.String)
		p.ClanID = &cid
	}
	return p
}

func clanIDColumn(c *player.ClanID) sql.NullString {
	if c == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*c), Valid: true}
}

func (s *Store) GetPlayer(ctx context.Context, id player.ID) (player.Player, error) {
	var row playerRow
	err := sqlx.GetContext(ctx, s.ext, &row, `
		SELECT id, username, money, experience, level, reputation, clan_id
		FROM players WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return player.Player{}, domainerrors.NotFound("player", string(id))
	}
	if err != nil {
		return player.Player{}, domainerrors.StoreError("get_player", err)
	}
	return row.toDomain(), nil
}

func (s *Store) CreatePlayer(ctx context.Context, p player.Player) error {
	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO players (id, username, money, experience, level, reputation, clan_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		string(p.ID), p.Username, p.Money, p.Experience, p.Level, p.Reputation, clanIDColumn(p.ClanID))
	if err != nil {
		return domainerrors.StoreError("create_player", err)
	}
	return nil
}

func (s *Store) UpdatePlayer(ctx context.Context, p player.Player) error {
	result, err := s.ext.ExecContext(ctx, `
		UPDATE players SET username = $2, money = $3, experience = $4, level = $5,
		       reputation = $6, clan_id = $7
		WHERE id = $1`,
		string(p.ID), p.Username, p.Money, p.Experience, p.Level, p.Reputation, clanIDColumn(p.ClanID))
	if err != nil {
		return domainerrors.StoreError("update_player", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.NotFound("player", string(p.ID))
	}
	return nil
}

// TransferMoney atomically debits from and credits to inside a single
// UPDATE ... WHERE money >= amount, so the balance check and the debit are
// one round trip with no read-then-write race window (spec §4.2, invariant
// 4 of §8). Callers outside an existing WithTxn still get atomicity from
// this single statement; callers wanting the transfer bundled with other
// mutations should invoke it from inside WithTxn.
func (s *Store) TransferMoney(ctx context.Context, from, to player.ID, amount int64) error {
	if _, err := s.GetPlayer(ctx, to); err != nil {
		return err
	}
	fromP, err := s.GetPlayer(ctx, from)
	if err != nil {
		return err
	}
	if fromP.Money < amount {
		return domainerrors.InsufficientFunds(amount - fromP.Money)
	}

	result, err := s.ext.ExecContext(ctx, `
		UPDATE players SET money = money - $2 WHERE id = $1 AND money >= $2`,
		string(from), amount)
	if err != nil {
		return domainerrors.StoreError("transfer_money_debit", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return domainerrors.InsufficientFunds(amount - fromP.Money)
	}

	if _, err := s.ext.ExecContext(ctx, `
		UPDATE players SET money = money + $2 WHERE id = $1`,
		string(to), amount); err != nil {
		return domainerrors.StoreError("transfer_money_credit", err)
	}
	return nil
}

type clanRow struct {
	ID      string          `db:"id"`
	Name    string          `db:"name"`
	Power   float64         `db:"power"`
	Won     int             `db:"won"`
	Lost    int             `db:"lost"`
	Members json.RawMessage `db:"members"`
}

func (r clanRow) toDomain() (player.Clan, error) {
	var members []player.ID
	if len(r.Members) > 0 {
		if err := json.Unmarshal(r.Members, &members); err != nil {
			return player.Clan{}, domainerrors.StoreError("scan_clan", err)
		}
	}
	return player.Clan{ID: player.ClanID(r.ID), Name: r.Name, Power: r.Power, Won: r.Won, Lost: r.Lost, Members: members}, nil
}

func (s *Store) GetClan(ctx context.Context, id player.ClanID) (player.Clan, error) {
	var row clanRow
	err := sqlx.GetContext(ctx, s.ext, &row, `SELECT id, name, power, won, lost, members FROM clans WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return player.Clan{}, domainerrors.NotFound("clan", string(id))
	}
	if err != nil {
		return player.Clan{}, domainerrors.StoreError("get_clan", err)
	}
	return row.toDomain()
}

func (s *Store) UpdateClan(ctx context.Context, c player.Clan) error {
	membersJSON, err := json.Marshal(c.Members)
	if err != nil {
		return domainerrors.StoreError("update_clan", err)
	}
	_, err = s.ext.ExecContext(ctx, `
		INSERT INTO clans (id, name, power, won, lost, members) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET name = $2, power = $3, won = $4, lost = $5, members = $6`,
		string(c.ID), c.Name, c.Power, c.Won, c.Lost, membersJSON)
	if err != nil {
		return domainerrors.StoreError("update_clan", err)
	}
	return nil
}

type warRow struct {
	ID            string          `db:"id"`
	Clan1         string          `db:"clan1"`
	Clan2         string          `db:"clan2"`
	Score1        int64           `db:"score1"`
	Score2        int64           `db:"score2"`
	Bounty        int64           `db:"bounty"`
	Start         time.Time       `db:"start_at"`
	End           time.Time       `db:"end_at"`
	Status        string          `db:"status"`
	Contributions json.RawMessage `db:"contributions"`
}

func (r warRow) toDomain() (player.ClanWar, error) {
	contributions := make(map[player.ID]int64)
	if len(r.Contributions) > 0 {
		if err := json.Unmarshal(r.Contributions, &contributions); err != nil {
			return player.ClanWar{}, domainerrors.StoreError("scan_war", err)
		}
	}
	return player.ClanWar{
		ID: player.WarID(r.ID), Clan1: player.ClanID(r.Clan1), Clan2: player.ClanID(r.Clan2),
		Score1: r.Score1, Score2: r.Score2, Bounty: r.Bounty, Start: r.Start, End: r.End,
		Status: player.WarStatus(r.Status), Contributions: contributions,
	}, nil
}

func (s *Store) GetWar(ctx context.Context, id player.WarID) (player.ClanWar, error) {
	var row warRow
	err := sqlx.GetContext(ctx, s.ext, &row, `
		SELECT id, clan1, clan2, score1, score2, bounty, start_at, end_at, status, contributions
		FROM clan_wars WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return player.ClanWar{}, domainerrors.NotFound("war", string(id))
	}
	if err != nil {
		return player.ClanWar{}, domainerrors.StoreError("get_war", err)
	}
	return row.toDomain()
}

func (s *Store) UpdateWar(ctx context.Context, w player.ClanWar) error {
	contribJSON, err := json.Marshal(w.Contributions)
	if err != nil {
		return domainerrors.StoreError("update_war", err)
	}
	_, err = s.ext.ExecContext(ctx, `
		INSERT INTO clan_wars (id, clan1, clan2, score1, score2, bounty, start_at, end_at, status, contributions)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			score1 = $4, score2 = $5, bounty = $6, end_at = $8, status = $9, contributions = $10`,
		string(w.ID), string(w.Clan1), string(w.Clan2), w.Score1, w.Score2, w.Bounty,
		w.Start, w.End, string(w.Status), contribJSON)
	if err != nil {
		return domainerrors.StoreError("update_war", err)
	}
	return nil
}

// ListActiveWarsEndingBy returns every WarActive war whose end time is at or
// before now, the candidate set the WarEnd sweep reads each tick.
func (s *Store) ListActiveWarsEndingBy(ctx context.Context, now time.Time) ([]player.ClanWar, error) {
	var rows []warRow
	err := sqlx.SelectContext(ctx, s.ext, &rows, `
		SELECT id, clan1, clan2, score1, score2, bounty, start_at, end_at, status, contributions
		FROM clan_wars WHERE status = 'active' AND end_at <= $1 ORDER BY id`, now)
	if err != nil {
		return nil, domainerrors.StoreError("list_wars_ending", err)
	}
	out := make([]player.ClanWar, 0, len(rows))
	for _, r := range rows {
		w, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, nil
}

type missionRow struct {
	ID          string       `db:"id"`
	TemplateID  string       `db:"template_id"`
	OwnerID     string       `db:"owner_id"`
	Status      string       `db:"status"`
	StartedAt   time.Time    `db:"started_at"`
	Deadline    sql.NullTime `db:"deadline"`
	CompletedAt sql.NullTime `db:"completed_at"`
}

func (r missionRow) toDomain() player.Mission {
	return player.Mission{
		ID: r.ID, TemplateID: r.TemplateID, OwnerID: player.ID(r.OwnerID),
		Status: player.MissionStatus(r.Status), StartedAt: r.StartedAt,
		Deadline: timePtrFromNull(r.Deadline), CompletedAt: timePtrFromNull(r.CompletedAt),
	}
}

func (s *Store) GetMission(ctx context.Context, id string) (player.Mission, error) {
	var row missionRow
	err := sqlx.GetContext(ctx, s.ext, &row, `
		SELECT id, template_id, owner_id, status, started_at, deadline, completed_at
		FROM missions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return player.Mission{}, domainerrors.NotFound("mission", id)
	}
	if err != nil {
		return player.Mission{}, domainerrors.StoreError("get_mission", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateMission(ctx context.Context, m player.Mission) error {
	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO missions (id, template_id, owner_id, status, started_at, deadline, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			status = $4, deadline = $6, completed_at = $7`,
		m.ID, m.TemplateID, string(m.OwnerID), string(m.Status), m.StartedAt,
		nullTimePtr(m.Deadline), nullTimePtr(m.CompletedAt))
	if err != nil {
		return domainerrors.StoreError("update_mission", err)
	}
	return nil
}
