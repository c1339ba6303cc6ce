package worker

import (
	"fmt"
	"path/filepath"

	"github.com/c9s/goprocinfo/linux"
)

type Stats struct {
	MemStats  *linux.MemInfo `json:"memStats"`
	DiskStats *linux.Disk    `json:"diskStats"`
	CpuStats  *linux.CPUStat `json:"cpuStats"`
	LoadStats *linux.LoadAvg `json:"loadStats"`
	Cores     int            `json:"cores"`
	TaskCount int            `json:"taskCount"`
}

// memory figures in /proc/meminfo are kB

func (s *Stats) MemTotalKb() uint64 {
	if s.MemStats == nil {
		return 0
	}
	return s.MemStats.MemTotal
}

func (s *Stats) MemAvailableKb() uint64 {
	if s.MemStats == nil {
		return 0
	}
	return s.MemStats.MemAvailable
}

// MemUsedKb is zero when meminfo reports more available than total memory.
func (s *Stats) MemUsedKb() uint64 {
	total, avail := s.MemTotalKb(), s.MemAvailableKb()
	if avail > total {
		return 0
	}
	return total - avail
}

func (s *Stats) DiskTotal() uint64 {
	if s.DiskStats == nil {
		return 0
	}
	return s.DiskStats.All
}

func (s *Stats) DiskUsed() uint64 {
	if s.DiskStats == nil {
		return 0
	}
	return s.DiskStats.Used
}

func (s *Stats) Load1() float64 {
	if s.LoadStats == nil {
		return 0
	}
	return s.LoadStats.Last1Min
}

// CpuUsage is the busy share of cpu time since boot, from 0 to 1.
func (s *Stats) CpuUsage() float64 {
	c := s.CpuStats
	if c == nil {
		return 0
	}
	idle := c.Idle + c.IOWait
	busy := c.User + c.Nice + c.System + c.IRQ + c.SoftIRQ + c.Steal
	total := idle + busy
	if total == 0 {
		return 0
	}
	return float64(busy) / float64(total)
}

// procReader reads host statistics below root, "/" on a real host.
type procReader struct {
	root string
}

func (p procReader) path(elem ...string) string {
	return filepath.Join(append([]string{p.root}, elem...)...)
}

func (p procReader) read() (*Stats, error) {
	mem, err := linux.ReadMemInfo(p.path("proc", "meminfo"))
	if err != nil {
		return nil, fmt.Errorf("reading meminfo: %w", err)
	}
	stat, err := linux.ReadStat(p.path("proc", "stat"))
	if err != nil {
		return nil, fmt.Errorf("reading stat: %w", err)
	}
	load, err := linux.ReadLoadAvg(p.path("proc", "loadavg"))
	if err != nil {
		return nil, fmt.Errorf("reading loadavg: %w", err)
	}
	disk, err := linux.ReadDisk(p.path())
	if err != nil {
		return nil, fmt.Errorf("reading disk usage: %w", err)
	}
	cpu := stat.CPUStatAll
	return &Stats{
		MemStats:  mem,
		DiskStats: disk,
		CpuStats:  &cpu,
		LoadStats: load,
		Cores:     len(stat.CPUStats),
	}, nil
}
