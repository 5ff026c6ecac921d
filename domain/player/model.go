// Package player defines Player, Clan and ClanWar (spec §3), plus the
// Mission/MissionTemplate pair folded in from he-game-world's mission
// generator and he-legacy-compat/pages/missions*.rs (SPEC_FULL §4.10
// expansion) to give the MissionComplete effect a concrete shape.
package player

import "time"

// ID identifies a player.
type ID string

// ClanID identifies a clan.
type ClanID string

// WarID identifies a clan war.
type WarID string

// Player is a registered account (spec §3).
type Player struct {
	ID         ID
	Username   string
	Money      int64 // signed "cents"-equivalent; never negative outside a rolling-back transfer
	Experience uint64
	Level      int
	Reputation int
	ClanID     *ClanID
}

// Clan is a group of players that can wage ClanWars (spec §3).
type Clan struct {
	ID      ClanID
	Name    string
	Power   float64
	Won     int
	Lost    int
	Members []ID
}

// WarStatus tracks whether a war is still being fought or has been archived.
// Spec §9's Open Question ("commented-out cleanup queries... historical
// archive vs live deletion") is resolved in favor of archiving with a status
// flag — rows are never deleted, see he-cron/src/jobs/end_war.rs.
type WarStatus string

const (
	WarActive   WarStatus = "active"
	WarArchived WarStatus = "archived"
)

// ClanWar is a two-member war with monotonically increasing scores while
// active (spec §3).
type ClanWar struct {
	ID     WarID
	Clan1  ClanID
	Clan2  ClanID
	Score1 int64
	Score2 int64
	Bounty int64
	Start  time.Time
	End    time.Time
	Status WarStatus

	// Contributions tracks DDoS "power" per attacking player, aggregated as
	// DDoSHit effects land; used by WarEnd's pro-rata bounty distribution
	// (grounded on end_war.rs::get_ddos_contributors).
	Contributions map[ID]int64
}

// HasEnded reports whether now is at or past the war's end time.
func (w ClanWar) HasEnded(now time.Time) bool {
	return !now.Before(w.End)
}

// Winner returns the clan with the higher score; ties favor Clan1.
func (w ClanWar) Winner() ClanID {
	if w.Score2 > w.Score1 {
		return w.Clan2
	}
	return w.Clan1
}

// MissionObjective names what a mission requires.
type MissionObjective string

const (
	ObjectiveHackServer   MissionObjective = "hack_server"
	ObjectiveStealFile    MissionObjective = "steal_file"
	ObjectiveInstallVirus MissionObjective = "install_virus"
	ObjectiveDeleteLogs   MissionObjective = "delete_logs"
)

// MissionTemplate is a reusable mission definition (spec §4.10 expansion).
type MissionTemplate struct {
	ID              string
	Title           string
	Description     string
	Objective       MissionObjective
	TargetIP        string
	RewardMoney     int64
	RewardExperience uint64
	TimeLimit       *time.Duration
	RemainUndetected bool
}

// MissionStatus tracks a player's progress on an assigned mission.
type MissionStatus string

const (
	MissionActive    MissionStatus = "active"
	MissionCompleted MissionStatus = "completed"
	MissionFailed    MissionStatus = "failed"
)

// Mission is a MissionTemplate assigned to a specific player.
type Mission struct {
	ID         string
	TemplateID string
	OwnerID    ID
	Status     MissionStatus
	StartedAt  time.Time
	Deadline   *time.Time
	CompletedAt *time.Time
}
