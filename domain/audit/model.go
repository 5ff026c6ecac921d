// Package audit defines the per-server append-only log (spec §3 "Audit Log
// Entry", §6 "Audit log wire shape").
package audit

import (
	"time"

	"github.com/techmad220/hackerexperience-go/domain/server"
)

// Action tags the kind of event an entry records.
type Action string

const (
	ActionLogin    Action = "login"
	ActionCrack    Action = "crack"
	ActionDownload Action = "download"
	ActionUpload   Action = "upload"
	ActionInstall  Action = "install"
	ActionDDoS     Action = "ddos"
	ActionTransfer Action = "transfer"
	ActionLogEdit  Action = "log_edit"
)

// Entry is one append-only audit log record for a server.
type Entry struct {
	ServerID server.ID
	Seq      uint64 // strictly increasing per server
	Ts       time.Time
	SrcIP    string
	Action   Action
	Detail   string
	Hidden   bool
	EditedBy *string // player id that last edited this entry, if any
	Tombstoned bool  // set by DeleteLog; forensic trace, distinct from Hidden
}
