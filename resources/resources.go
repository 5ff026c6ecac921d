// Package resources implements the Resource Model (spec §4.3): arithmetic
// over a server's four-axis HardwareSpec free pool.
package resources

import (
	"github.com/techmad220/hackerexperience-go/domain/server"
	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
)

// CanAllocate reports whether req fits within avail on every axis (spec §4.3).
func CanAllocate(req, avail server.HardwareSpec) bool {
	return req.CPU <= avail.CPU &&
		req.RAM <= avail.RAM &&
		req.Disk <= avail.Disk &&
		req.Net <= avail.Net
}

// Allocate subtracts req from avail in place. Both are total over
// non-negative inputs by construction of CanAllocate, but Allocate itself
// does not check — callers must gate with CanAllocate first.
func Allocate(avail *server.HardwareSpec, req server.HardwareSpec) {
	avail.CPU -= req.CPU
	avail.RAM -= req.RAM
	avail.Disk -= req.Disk
	avail.Net -= req.Net
}

// Deallocate adds req back to avail in place, saturating at zero. cap is the
// server's effective hardware spec (the ceiling a free pool may never
// exceed); an over-deallocation — one that would push an axis above cap —
// indicates a scheduler bug and is logged rather than silently absorbed, per
// spec §4.3.
func Deallocate(log *logging.Logger, avail *server.HardwareSpec, req, ceiling server.HardwareSpec) {
	deallocAxis(log, AxisCPU, &avail.CPU, req.CPU, ceiling.CPU)
	deallocAxis(log, AxisRAM, &avail.RAM, req.RAM, ceiling.RAM)
	deallocAxis(log, AxisDisk, &avail.Disk, req.Disk, ceiling.Disk)
	deallocAxis(log, AxisNet, &avail.Net, req.Net, ceiling.Net)
}

func deallocAxis(log *logging.Logger, axis Axis, avail *float64, amount, ceiling float64) {
	sum := *avail + amount
	if sum > ceiling {
		if log != nil {
			log.Logger.WithField("axis", string(axis)).
				WithField("avail", *avail).
				WithField("amount", amount).
				WithField("ceiling", ceiling).
				Warn("resources: over-deallocation, saturating at ceiling")
		}
		sum = ceiling
	}
	*avail = sum
}

// Axis names one of the four resource dimensions.
type Axis string

const (
	AxisCPU  Axis = "cpu"
	AxisRAM  Axis = "ram"
	AxisDisk Axis = "disk"
	AxisNet  Axis = "net"
)

// Bottleneck returns the axis whose value is less than half of the max axis,
// or ("", false) if no axis qualifies (spec §4.3).
func Bottleneck(spec server.HardwareSpec) (Axis, bool) {
	max := spec.CPU
	if spec.RAM > max {
		max = spec.RAM
	}
	if spec.Disk > max {
		max = spec.Disk
	}
	if spec.Net > max {
		max = spec.Net
	}
	if max == 0 {
		return "", false
	}

	half := max / 2
	type candidate struct {
		axis  Axis
		value float64
	}
	candidates := []candidate{
		{AxisCPU, spec.CPU},
		{AxisRAM, spec.RAM},
		{AxisDisk, spec.Disk},
		{AxisNet, spec.Net},
	}
	var worst *candidate
	for i := range candidates {
		c := &candidates[i]
		if c.value < half {
			if worst == nil || c.value < worst.value {
				worst = c
			}
		}
	}
	if worst == nil {
		return "", false
	}
	return worst.axis, true
}

// Free returns the server's free pool: effective hardware minus the sum of
// currently-allocated resources across the given running allocations.
func Free(effective server.HardwareSpec, runningAllocated []server.HardwareSpec) server.HardwareSpec {
	free := effective
	for _, a := range runningAllocated {
		free.CPU -= a.CPU
		free.RAM -= a.RAM
		free.Disk -= a.Disk
		free.Net -= a.Net
	}
	return free
}
