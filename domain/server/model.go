// Package server defines the Server, HardwareSpec and Software aggregates
// (spec §3 "Server", "HardwareSpec", "Software").
package server

import "time"

// ID identifies a server. Servers are also addressable by their stable IP,
// see Store.GetServerByIP in package worldstore.
type ID string

// SoftwareID identifies an installed software instance.
type SoftwareID string

// OwnerKind distinguishes player-owned servers from NPC-owned ones.
type OwnerKind string

const (
	OwnerPlayer OwnerKind = "player"
	OwnerNPC    OwnerKind = "npc"
)

// HardwareSpec is the four-axis scalar capacity of a server (spec §3).
// Values are non-negative, in abstract units (MHz, MB, MB, Mbps).
type HardwareSpec struct {
	CPU  float64
	RAM  float64
	Disk float64
	Net  float64
}

// Health is a [0,1] degradation factor; a server's effective capacity is
// HardwareSpec * Health.
type Health float64

// Effective returns the spec scaled by health, clamping health to [0,1].
func (h HardwareSpec) Effective(health Health) HardwareSpec {
	f := float64(health)
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	return HardwareSpec{
		CPU:  h.CPU * f,
		RAM:  h.RAM * f,
		Disk: h.Disk * f,
		Net:  h.Net * f,
	}
}

// SoftwareType enumerates the kinds of installable software (spec §3).
type SoftwareType string

const (
	SoftwareCracker    SoftwareType = "cracker"
	SoftwareHasher     SoftwareType = "hasher"
	SoftwareFirewall   SoftwareType = "firewall"
	SoftwareAntivirus  SoftwareType = "antivirus"
	SoftwareDDoS       SoftwareType = "ddos"
	SoftwareVirus      SoftwareType = "virus"
	SoftwareWorm       SoftwareType = "worm"
	SoftwareLogEditor  SoftwareType = "log_editor"
	SoftwareIDS        SoftwareType = "ids"
	SoftwareEncryptor  SoftwareType = "encryptor"
)

// Software is a single installed software instance belonging to exactly one
// server's disk.
type Software struct {
	ID           SoftwareID
	ServerID     ID
	Type         SoftwareType
	Version      int // >= 1
	SizeMB       float64
	Hidden       bool
	Running      bool
	Requirements HardwareSpec
}

// Server is a player- or NPC-owned persistent virtual computer (spec §3).
type Server struct {
	ID            ID
	IP            string
	Owner         OwnerKind
	OwnerID       string // player id when Owner == OwnerPlayer
	Hostname      string
	SecurityLevel int
	FirewallLevel int
	Encrypted     bool
	Hardware      HardwareSpec
	HardwareHP    Health
	Software      []Software
	LogSeq        uint64 // highest assigned audit-log sequence number
	Online        bool
	LastReset     time.Time
}

// EffectiveHardware returns Hardware scaled by HardwareHP.
func (s Server) EffectiveHardware() HardwareSpec {
	return s.Hardware.Effective(s.HardwareHP)
}

// DiskUsed sums the size of every installed software instance; callers must
// ensure this never exceeds EffectiveHardware().Disk (spec §3 invariant).
func (s Server) DiskUsed() float64 {
	var total float64
	for _, sw := range s.Software {
		total += sw.SizeMB
	}
	return total
}

// FindSoftware returns the software instance with the given id, if present.
func (s Server) FindSoftware(id SoftwareID) (Software, bool) {
	for _, sw := range s.Software {
		if sw.ID == id {
			return sw, true
		}
	}
	return Software{}, false
}

// HighestVersion returns the highest version among installed software of the
// given type, used by admission checks like "attacker has cracker >= required".
func (s Server) HighestVersion(t SoftwareType) int {
	best := 0
	for _, sw := range s.Software {
		if sw.Type == t && sw.Version > best {
			best = sw.Version
		}
	}
	return best
}

// CountRunning returns the number of running software instances of the given
// type, used by DDoS eligibility checks (spec S5: "need >= 3 ddos viruses").
func (s Server) CountRunning(t SoftwareType) int {
	n := 0
	for _, sw := range s.Software {
		if sw.Type == t && sw.Running {
			n++
		}
	}
	return n
}
