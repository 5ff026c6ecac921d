package resources

import (
	"testing"

	"github.com/techmad220/hackerexperience-go/domain/server"
	"github.com/techmad220/hackerexperience-go/infrastructure/logging"
)

func TestCanAllocate(t *testing.T) {
	avail := server.HardwareSpec{CPU: 100, RAM: 1000, Disk: 500, Net: 10}

	cases := []struct {
		name string
		req  server.HardwareSpec
		want bool
	}{
		{"fits exactly", server.HardwareSpec{CPU: 100, RAM: 1000, Disk: 500, Net: 10}, true},
		{"fits under", server.HardwareSpec{CPU: 1, RAM: 1, Disk: 1, Net: 1}, true},
		{"cpu over", server.HardwareSpec{CPU: 101, RAM: 1, Disk: 1, Net: 1}, false},
		{"net over", server.HardwareSpec{CPU: 1, RAM: 1, Disk: 1, Net: 11}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := CanAllocate(c.req, avail); got != c.want {
				t.Errorf("CanAllocate(%+v, %+v) = %v, want %v", c.req, avail, got, c.want)
			}
		})
	}
}

func TestAllocate(t *testing.T) {
	avail := server.HardwareSpec{CPU: 100, RAM: 1000, Disk: 500, Net: 10}
	req := server.HardwareSpec{CPU: 40, RAM: 200, Disk: 50, Net: 5}

	Allocate(&avail, req)

	want := server.HardwareSpec{CPU: 60, RAM: 800, Disk: 450, Net: 5}
	if avail != want {
		t.Errorf("after Allocate, avail = %+v, want %+v", avail, want)
	}
}

func TestDeallocateSaturatesAtCeiling(t *testing.T) {
	log := logging.New("resources-test", "error", "text")
	ceiling := server.HardwareSpec{CPU: 100, RAM: 1000, Disk: 500, Net: 10}
	avail := server.HardwareSpec{CPU: 90, RAM: 900, Disk: 480, Net: 9}

	Deallocate(log, &avail, server.HardwareSpec{CPU: 50, RAM: 50, Disk: 5, Net: 5}, ceiling)

	if avail.CPU != 100 {
		t.Errorf("CPU over-deallocation should saturate at ceiling 100, got %v", avail.CPU)
	}
	if avail.RAM != 950 {
		t.Errorf("RAM should accumulate normally, got %v", avail.RAM)
	}
	if avail.Net != 10 {
		t.Errorf("Net over-deallocation should saturate at ceiling 10, got %v", avail.Net)
	}
}

func TestBottleneck(t *testing.T) {
	cases := []struct {
		name     string
		spec     server.HardwareSpec
		wantAxis Axis
		wantOK   bool
	}{
		{"balanced, no bottleneck", server.HardwareSpec{CPU: 100, RAM: 100, Disk: 100, Net: 100}, "", false},
		{"ram starved", server.HardwareSpec{CPU: 100, RAM: 10, Disk: 100, Net: 100}, AxisRAM, true},
		{"all zero", server.HardwareSpec{}, "", false},
		{"net just under half", server.HardwareSpec{CPU: 100, RAM: 100, Disk: 100, Net: 49}, AxisNet, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			axis, ok := Bottleneck(c.spec)
			if ok != c.wantOK || axis != c.wantAxis {
				t.Errorf("Bottleneck(%+v) = (%v, %v), want (%v, %v)", c.spec, axis, ok, c.wantAxis, c.wantOK)
			}
		})
	}
}

func TestFree(t *testing.T) {
	effective := server.HardwareSpec{CPU: 100, RAM: 1000, Disk: 500, Net: 10}
	running := []server.HardwareSpec{
		{CPU: 20, RAM: 100, Disk: 50, Net: 1},
		{CPU: 10, RAM: 50, Disk: 25, Net: 1},
	}

	free := Free(effective, running)

	want := server.HardwareSpec{CPU: 70, RAM: 850, Disk: 425, Net: 8}
	if free != want {
		t.Errorf("Free() = %+v, want %+v", free, want)
	}
}
