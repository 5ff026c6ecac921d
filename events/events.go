// Package events defines the notifications the simulation core emits as a
// side effect of process completion and attack resolution (spec §6 "emitted
// events"), and the in-memory fan-out Publisher cmd/gateway adapts onto
// gorilla/websocket broadcast.
package events

import (
	"strconv"
	"time"

	"github.com/techmad220/hackerexperience-go/domain/player"
	"github.com/techmad220/hackerexperience-go/domain/process"
	"github.com/techmad220/hackerexperience-go/domain/server"
)

// Kind names an event type.
type Kind string

const (
	KindProcessCompleted  Kind = "process_completed"
	KindProcessFailed     Kind = "process_failed"
	KindHackSuccessful    Kind = "hack_successful"
	KindHackDetected      Kind = "hack_detected"
	KindMoneyReceived     Kind = "money_received"
	KindLevelUp           Kind = "level_up"
	KindServerCompromised Kind = "server_compromised"
	KindMissionCompleted  Kind = "mission_completed"
	KindWarEnded          Kind = "war_ended"
)

// Event is a single notification, delivered to whichever player(s)
// Recipients names. Data carries kind-specific fields as a flat string map,
// matching the wire shape spec §6 describes for client push.
type Event struct {
	Kind       Kind
	Recipients []player.ID
	At         time.Time
	Data       map[string]string
}

// ProcessCompleted builds the event fired when p finishes successfully.
func ProcessCompleted(p process.Process, at time.Time) Event {
	return Event{
		Kind:       KindProcessCompleted,
		Recipients: []player.ID{player.ID(p.OwnerID)},
		At:         at,
		Data: map[string]string{
			"process_id": string(p.ID),
			"kind":       string(p.Kind),
		},
	}
}

// ProcessFailed builds the event fired when p is cancelled or fails.
func ProcessFailed(p process.Process, at time.Time) Event {
	return Event{
		Kind:       KindProcessFailed,
		Recipients: []player.ID{player.ID(p.OwnerID)},
		At:         at,
		Data: map[string]string{
			"process_id": string(p.ID),
			"kind":       string(p.Kind),
			"reason":     p.FailureReason,
		},
	}
}

// HackSuccessful builds the event for an attacker whose attack attempt
// against target was not blocked.
func HackSuccessful(attacker player.ID, target server.ID, at time.Time) Event {
	return Event{
		Kind:       KindHackSuccessful,
		Recipients: []player.ID{attacker},
		At:         at,
		Data:       map[string]string{"target_server": string(target)},
	}
}

// HackDetected builds the event for the defending server's owner when an
// attack attempt against them was detected.
func HackDetected(defender player.ID, target server.ID, at time.Time) Event {
	return Event{
		Kind:       KindHackDetected,
		Recipients: []player.ID{defender},
		At:         at,
		Data:       map[string]string{"target_server": string(target)},
	}
}

// MoneyReceived builds the event for a successful BankTransfer effect.
func MoneyReceived(to player.ID, amount int64, at time.Time) Event {
	return Event{
		Kind:       KindMoneyReceived,
		Recipients: []player.ID{to},
		At:         at,
		Data:       map[string]string{"amount": strconv.FormatInt(amount, 10)},
	}
}

// LevelUp builds the event for a player whose level increased.
func LevelUp(who player.ID, newLevel int, at time.Time) Event {
	return Event{
		Kind:       KindLevelUp,
		Recipients: []player.ID{who},
		At:         at,
		Data:       map[string]string{"level": strconv.Itoa(newLevel)},
	}
}

// ServerCompromised builds the event for the victim of a successful
// PasswordCrack/Install effect.
func ServerCompromised(owner player.ID, target server.ID, at time.Time) Event {
	return Event{
		Kind:       KindServerCompromised,
		Recipients: []player.ID{owner},
		At:         at,
		Data:       map[string]string{"target_server": string(target)},
	}
}

// MissionCompleted builds the event for a player whose mission completed.
func MissionCompleted(who player.ID, missionID string, at time.Time) Event {
	return Event{
		Kind:       KindMissionCompleted,
		Recipients: []player.ID{who},
		At:         at,
		Data:       map[string]string{"mission_id": missionID},
	}
}

// WarEnded builds the event delivered to every clan member on both sides of
// a concluded war.
func WarEnded(members []player.ID, warID string, winner player.ClanID, at time.Time) Event {
	return Event{
		Kind:       KindWarEnded,
		Recipients: members,
		At:         at,
		Data:       map[string]string{"war_id": warID, "winner_clan": string(winner)},
	}
}
