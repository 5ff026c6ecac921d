// Package effects implements the Effect Applier (spec §4.10 "Effect
// Applier (C10)"): dispatch on a completed process's CompletionEffect.Kind,
// each case a single worldstore.Store.WithTxn closure, grounded on
// ProcessExecutor::update's effect-application switch in
// he-game-mechanics/src/engine/process_engine.rs and on
// he-cron/src/jobs/end_war.rs for the WarEnd case specifically.
package effects

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/techmad220/hackerexperience-go/domain/audit"
	"github.com/techmad220/hackerexperience-go/domain/player"
	domainprocess "github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
	"github.com/techmad220/hackerexperience-go/events"
	domainerrors "github.com/techmad220/hackerexperience-go/infrastructure/errors"
	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
	"github.com/techmad220/hackerexperience-go/worldstore"
)

// minDDoSViruses mirrors engine.minDDoSViruses (spec scenario S5) — kept as
// its own constant here since effects must not import engine (engine
// imports effects to build its Applier).
const minDDoSViruses = 3

// Applier dispatches completed-process effects against a worldstore.Store.
type Applier struct {
	log *logging.Logger
	pub events.Publisher
}

// New builds an Applier. pub may be nil, in which case events are dropped —
// useful for tests that don't care about notification fan-out.
func New(log *logging.Logger, pub events.Publisher) *Applier {
	return &Applier{log: log, pub: pub}
}

func (a *Applier) publish(ctx context.Context, e events.Event) {
	if a.pub != nil {
		a.pub.Publish(ctx, e)
	}
}

// Apply runs the effect for a completed process p against store, inside one
// transaction. now is the completion time passed through to emitted events.
func (a *Applier) Apply(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	switch p.Effect.Kind {
	case domainprocess.KindFileDownload:
		return a.applyFileDownload(ctx, store, p, now)
	case domainprocess.KindInstall:
		return a.applyInstall(ctx, store, p, now)
	case domainprocess.KindPasswordCrack:
		return a.applyPasswordCrack(ctx, store, p, now)
	case domainprocess.KindDeleteLog:
		return a.applyDeleteLog(ctx, store, p, now)
	case domainprocess.KindHideLog:
		return a.applyHideLog(ctx, store, p, now)
	case domainprocess.KindDDoS:
		return a.applyDDoSHit(ctx, store, p, now)
	case domainprocess.KindBankTransfer:
		return a.applyBankTransfer(ctx, store, p, now)
	case domainprocess.KindMissionComplete:
		return a.applyMissionComplete(ctx, store, p, now)
	case domainprocess.KindWarEnd:
		return a.applyWarEnd(ctx, store, p, now)
	default:
		return domainerrors.InvalidInput("effect_kind", string(p.Effect.Kind))
	}
}

// applyFileDownload copies a software instance from the target server's
// disk onto the source server's disk under a freshly minted id, leaving the
// original in place (downloading does not remove the remote copy). §4.10
// preconditions: source online, file exists, disk free.
func (a *Applier) applyFileDownload(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		target, err := txn.GetServer(ctx, p.TargetID)
		if err != nil {
			return err
		}
		src, err := txn.GetServer(ctx, p.SourceID)
		if err != nil {
			return err
		}
		if !src.Online {
			return domainerrors.InvalidState("online", "offline").WithDetails("server", string(src.ID))
		}
		fileID := server.SoftwareID(p.Effect.Data["file_id"])
		sw, ok := target.FindSoftware(fileID)
		if !ok {
			return domainerrors.NotFound("software", string(fileID))
		}
		free := src.EffectiveHardware().Disk - src.DiskUsed()
		if sw.SizeMB > free {
			return domainerrors.InsufficientResources("disk", sw.SizeMB, free)
		}
		sw.ID = server.SoftwareID(uuid.NewString())
		sw.ServerID = src.ID
		return txn.CreateSoftware(ctx, src.ID, sw)
	})
}

// applyInstall marks an already-present software instance as Running,
// provided its version meets the process's required_version, if any.
func (a *Applier) applyInstall(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		fileID := server.SoftwareID(p.Effect.Data["file_id"])
		sw, err := txn.GetSoftware(ctx, p.SourceID, fileID)
		if err != nil {
			return err
		}
		if req, ok := p.Effect.Data["required_version"]; ok {
			need, convErr := strconv.Atoi(req)
			if convErr == nil && sw.Version < need {
				return domainerrors.InvalidState("version>="+req, strconv.Itoa(sw.Version))
			}
		}
		sw.Running = true
		return txn.UpdateSoftware(ctx, p.SourceID, sw)
	})
}

// requiredCrackerVersion returns the cracker version p's effect demands,
// defaulting to 1 (the weakest cracker can still break an unprotected
// target) when the field is absent or malformed.
func requiredCrackerVersion(p domainprocess.Process) int {
	if req, ok := p.Effect.Data["required_cracker_version"]; ok {
		if need, err := strconv.Atoi(req); err == nil {
			return need
		}
	}
	return 1
}

// applyPasswordCrack marks the target server compromised: its security
// level drops to reflect the breach and an ownership-visible audit entry is
// appended, then notifies the owner. §4.10 precondition: attacker has
// cracker >= required.
func (a *Applier) applyPasswordCrack(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		src, err := txn.GetServer(ctx, p.SourceID)
		if err != nil {
			return err
		}
		need := requiredCrackerVersion(p)
		if have := src.HighestVersion(server.SoftwareCracker); have < need {
			return domainerrors.InvalidState("cracker>="+strconv.Itoa(need), strconv.Itoa(have))
		}

		target, err := txn.GetServer(ctx, p.TargetID)
		if err != nil {
			return err
		}
		target.SecurityLevel = 0
		if err := txn.UpdateServer(ctx, target); err != nil {
			return err
		}
		if _, err := txn.AppendLog(ctx, target.ID, audit.Entry{
			ServerID: target.ID,
			Ts:       now,
			Action:   audit.ActionCrack,
			Detail:   fmt.Sprintf("password cracked by %s", p.OwnerID),
		}); err != nil {
			return err
		}
		a.publish(ctx, events.HackSuccessful(player.ID(p.OwnerID), target.ID, now))
		if target.Owner == server.OwnerPlayer {
			a.publish(ctx, events.ServerCompromised(player.ID(target.OwnerID), target.ID, now))
		}
		return nil
	})
}

// applyDeleteLog tombstones the targeted log entry — a forensic trace
// remains (spec §3's Tombstoned flag), distinct from HideLog's mere
// invisibility.
func (a *Applier) applyDeleteLog(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		seq, err := strconv.ParseUint(p.Effect.Data["seq"], 10, 64)
		if err != nil {
			return domainerrors.InvalidInput("seq", p.Effect.Data["seq"])
		}
		return txn.TombstoneLog(ctx, p.TargetID, seq, p.OwnerID)
	})
}

// applyHideLog marks the targeted log entry hidden without tombstoning it.
func (a *Applier) applyHideLog(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		seq, err := strconv.ParseUint(p.Effect.Data["seq"], 10, 64)
		if err != nil {
			return domainerrors.InvalidInput("seq", p.Effect.Data["seq"])
		}
		return txn.HideLog(ctx, p.TargetID, seq)
	})
}

// applyDDoSHit accumulates attack power onto a ClanWar's per-attacker
// contribution ledger and bumps the attacking clan's score, grounded on
// end_war.rs::get_ddos_contributors's power-aggregation-by-user. §4.10
// preconditions: attacker still has >= 3 running ddos viruses (re-checked
// here since the botnet can be torn down between submission and
// completion) and the target is in the attacker's hacked-db — a server only
// enters the hacked-db once a PasswordCrack effect has zeroed its security
// level, so that's the signal checked here rather than a separate table.
func (a *Applier) applyDDoSHit(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		src, err := txn.GetServer(ctx, p.SourceID)
		if err != nil {
			return err
		}
		if n := src.CountRunning(server.SoftwareDDoS); n < minDDoSViruses {
			return domainerrors.InvalidInput("viruses", "need ≥ 3")
		}
		target, err := txn.GetServer(ctx, p.TargetID)
		if err != nil {
			return err
		}
		if target.SecurityLevel > 0 {
			return domainerrors.InvalidState("hacked-db", "target not compromised").WithDetails("target", string(target.ID))
		}

		warID := player.WarID(p.Effect.Data["war_id"])
		power, err := strconv.ParseInt(p.Effect.Data["power"], 10, 64)
		if err != nil {
			return domainerrors.InvalidInput("power", p.Effect.Data["power"])
		}
		war, err := txn.GetWar(ctx, warID)
		if err != nil {
			return err
		}
		if war.Contributions == nil {
			war.Contributions = map[player.ID]int64{}
		}
		war.Contributions[player.ID(p.OwnerID)] += power

		attacker, err := txn.GetPlayer(ctx, player.ID(p.OwnerID))
		if err != nil {
			return err
		}
		if attacker.ClanID != nil && *attacker.ClanID == war.Clan1 {
			war.Score1 += power
		} else {
			war.Score2 += power
		}
		if err := txn.UpdateWar(ctx, war); err != nil {
			return err
		}
		a.publish(ctx, events.HackSuccessful(player.ID(p.OwnerID), p.TargetID, now))
		return nil
	})
}

// applyBankTransfer moves money between two players via the store's atomic
// transfer primitive, leaving balances untouched on InsufficientFunds (spec
// invariant 4).
func (a *Applier) applyBankTransfer(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		to := player.ID(p.Effect.Data["to"])
		amount, err := strconv.ParseInt(p.Effect.Data["amount"], 10, 64)
		if err != nil {
			return domainerrors.InvalidInput("amount", p.Effect.Data["amount"])
		}
		if err := txn.TransferMoney(ctx, player.ID(p.OwnerID), to, amount); err != nil {
			return err
		}
		a.publish(ctx, events.MoneyReceived(to, amount, now))
		return nil
	})
}

// applyMissionComplete grants the mission's reward money/experience and
// marks it completed, folding in he-game-world's MissionTemplate/reward
// shape (SPEC_FULL §4.10 expansion).
func (a *Applier) applyMissionComplete(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		missionID := p.Effect.Data["mission_id"]
		mission, err := txn.GetMission(ctx, missionID)
		if err != nil {
			return err
		}
		if mission.Status != player.MissionActive {
			return domainerrors.InvalidState(string(player.MissionActive), string(mission.Status))
		}

		owner, err := txn.GetPlayer(ctx, mission.OwnerID)
		if err != nil {
			return err
		}
		rewardMoney, _ := strconv.ParseInt(p.Effect.Data["reward_money"], 10, 64)
		rewardXP, _ := strconv.ParseUint(p.Effect.Data["reward_experience"], 10, 64)
		owner.Money += rewardMoney
		owner.Experience += rewardXP
		if err := txn.UpdatePlayer(ctx, owner); err != nil {
			return err
		}

		mission.Status = player.MissionCompleted
		completed := now
		mission.CompletedAt = &completed
		if err := txn.UpdateMission(ctx, mission); err != nil {
			return err
		}
		a.publish(ctx, events.MissionCompleted(owner.ID, missionID, now))
		return nil
	})
}

// applyWarEnd archives the war (spec §9 Open Question: archive with a
// status flag, never delete, per end_war.rs's commented-out cleanup
// deletes) and distributes the bounty pro-rata by DDoS contribution, with
// the rounding-up remainder going to the highest contributor
// (end_war.rs::distribute_bounty uses round_up per contributor; summed
// round_up can exceed the bounty by the contributor count, so here the
// share is computed once and any leftover slack — positive or negative —
// is folded into the top contributor's payout to keep the total exact).
func (a *Applier) applyWarEnd(ctx context.Context, store worldstore.Store, p domainprocess.Process, now time.Time) error {
	return store.WithTxn(ctx, func(ctx context.Context, txn worldstore.Store) error {
		warID := player.WarID(p.Effect.Data["war_id"])
		war, err := txn.GetWar(ctx, warID)
		if err != nil {
			return err
		}
		if war.Status == player.WarArchived {
			return nil
		}

		var totalPower int64
		for _, power := range war.Contributions {
			totalPower += power
		}

		if totalPower > 0 && war.Bounty > 0 {
			for pid, share := range distributeBounty(war.Contributions, totalPower, war.Bounty) {
				contributor, err := txn.GetPlayer(ctx, pid)
				if err != nil {
					if a.log != nil {
						a.log.WithContext(ctx).WithField("war_id", warID).WithField("player", pid).
							Warn("effects: dropping bounty share for unknown contributor")
					}
					continue
				}
				contributor.Money += share
				if err := txn.UpdatePlayer(ctx, contributor); err != nil {
					return err
				}
				a.publish(ctx, events.MoneyReceived(pid, share, now))
			}
		}

		war.Status = player.WarArchived
		if err := txn.UpdateWar(ctx, war); err != nil {
			return err
		}

		winner := war.Winner()
		members := warMembers(ctx, txn, war)
		a.publish(ctx, events.WarEnded(members, string(war.ID), winner, now))
		return nil
	})
}

// distributeBounty computes each contributor's pro-rata share of bounty,
// rounding each share up (ceil), then folds the sum-of-ceilings overshoot
// back out of the highest contributor's share so the total paid equals
// bounty exactly.
func distributeBounty(contributions map[player.ID]int64, totalPower, bounty int64) map[player.ID]int64 {
	shares := make(map[player.ID]int64, len(contributions))
	var top player.ID
	var topPower int64 = -1
	var sum int64

	for pid, power := range contributions {
		share := int64(math.Ceil(float64(bounty) * float64(power) / float64(totalPower)))
		shares[pid] = share
		sum += share
		if power > topPower {
			topPower = power
			top = pid
		}
	}

	if overshoot := sum - bounty; overshoot != 0 && top != "" {
		shares[top] -= overshoot
	}
	return shares
}

func warMembers(ctx context.Context, txn worldstore.Store, war player.ClanWar) []player.ID {
	members := make([]player.ID, 0, len(war.Contributions))
	for pid := range war.Contributions {
		members = append(members, pid)
	}
	clan1, err := txn.GetClan(ctx, war.Clan1)
	if err == nil {
		members = append(members, clan1.Members...)
	}
	clan2, err := txn.GetClan(ctx, war.Clan2)
	if err == nil {
		members = append(members, clan2.Members...)
	}
	return members
}
