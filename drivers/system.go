package drivers

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"scrollchart/store"
	"scrollchart/utils"
)

const (
	THERMAL_ROOT    = "/sys/class/thermal"
	CPU_THERMAL     = "x86_pkg_temp"
	kbPerGB         = 1024 * 1024
	milliDegreesPer = 1000.0
)

// SystemProvider reads live host metrics from procfs, sysfs and statfs.
type SystemProvider struct {
	// DiskPath is the mount point the disk metric reports on.
	DiskPath string

	mu sync.Mutex
	// prevCPU holds the last /proc/stat counters per metric name, so each series gets its own delta
	prevCPU map[string]cpuCounters

	// Overridable for testing.
	openProcStat    func() (io.ReadCloser, error)
	openProcMeminfo func() (io.ReadCloser, error)
	openProcLoadavg func() (io.ReadCloser, error)
	thermalRoot     string
	statfsFunc      func(path string, stat *unix.Statfs_t) error
}

type cpuCounters struct {
	idle  uint64
	total uint64
}

func NewSystemProvider() *SystemProvider {
	return &SystemProvider{
		DiskPath: "/",
		prevCPU:  make(map[string]cpuCounters),
		openProcStat: func() (io.ReadCloser, error) {
			return os.Open("/proc/stat")
		},
		openProcMeminfo: func() (io.ReadCloser, error) {
			return os.Open("/proc/meminfo")
		},
		openProcLoadavg: func() (io.ReadCloser, error) {
			return os.Open("/proc/loadavg")
		},
		thermalRoot: THERMAL_ROOT,
		statfsFunc:  unix.Statfs,
	}
}

func (p *SystemProvider) Value(_ context.Context, metric string) (float64, error) {
	name := store.NormaliseMetric(metric)
	switch name {
	case store.CPU_METRIC, store.CPU_TOTAL_METRIC:
		return p.readCPU(name)
	case store.MEMORY_METRIC, store.MEMORY_USED_METRIC:
		return p.readMemory()
	case store.TEMPERATURE_METRIC:
		return p.readTemperature()
	case store.DISK_METRIC:
		return p.readDisk()
	case store.LOAD_METRIC:
		return p.readLoad()
	}
	return 0, fmt.Errorf("system metric %q: %w", metric, ErrUnsupportedMetric)
}

// readCPU returns busy percentage since the previous call for the same metric. The first call
// only seeds the counters and returns ErrNoReading.
func (p *SystemProvider) readCPU(metric string) (float64, error) {
	f, err := p.openProcStat()
	if err != nil {
		return 0, fmt.Errorf("open /proc/stat: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "cpu ") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 5 {
			return 0, fmt.Errorf("/proc/stat cpu line too short")
		}

		// Fields: cpu user nice system idle iowait irq softirq steal ...
		var total, idle uint64
		for i := 1; i < len(fields); i++ {
			val, err := strconv.ParseUint(fields[i], 10, 64)
			if err != nil {
				return 0, fmt.Errorf("parse /proc/stat field %d: %w", i, err)
			}
			total += val
			if i == 4 {
				idle = val
			}
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		prev, ok := p.prevCPU[metric]
		p.prevCPU[metric] = cpuCounters{idle: idle, total: total}
		if !ok || total < prev.total || idle < prev.idle {
			return 0, fmt.Errorf("cpu counters seeded: %w", ErrNoReading)
		}
		deltaTotal := total - prev.total
		deltaIdle := idle - prev.idle
		if deltaTotal == 0 {
			return 0, fmt.Errorf("cpu counters unchanged: %w", ErrNoReading)
		}
		return utils.Clamp((1.0-float64(deltaIdle)/float64(deltaTotal))*100.0, 0, 100), nil
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("read /proc/stat: %w", err)
	}
	return 0, fmt.Errorf("cpu line not found in /proc/stat")
}

// readMemory returns used memory in GB: MemTotal - MemAvailable.
func (p *SystemProvider) readMemory() (float64, error) {
	f, err := p.openProcMeminfo()
	if err != nil {
		return 0, fmt.Errorf("open /proc/meminfo: %w", err)
	}
	defer f.Close()

	var memTotal, memAvailable uint64
	var foundTotal, foundAvailable bool
	scanner := bufio.NewScanner(f)
	for scanner.Scan() && !(foundTotal && foundAvailable) {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "MemTotal:"):
			if memTotal, err = parseMemInfoLine(line); err != nil {
				return 0, fmt.Errorf("parse MemTotal: %w", err)
			}
			foundTotal = true
		case strings.HasPrefix(line, "MemAvailable:"):
			if memAvailable, err = parseMemInfoLine(line); err != nil {
				return 0, fmt.Errorf("parse MemAvailable: %w", err)
			}
			foundAvailable = true
		}
	}
	if !foundTotal || !foundAvailable {
		return 0, fmt.Errorf("MemTotal or MemAvailable not found in /proc/meminfo")
	}
	if memAvailable > memTotal {
		return 0, nil
	}
	return float64(memTotal-memAvailable) / kbPerGB, nil
}

// parseMemInfoLine extracts the numeric kB value from a line like "MemTotal:  16384000 kB".
func parseMemInfoLine(line string) (uint64, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("too few fields: %q", line)
	}
	return strconv.ParseUint(fields[1], 10, 64)
}

// readTemperature prefers the CPU package sensor and falls back to the first readable zone.
func (p *SystemProvider) readTemperature() (float64, error) {
	zones, err := filepath.Glob(filepath.Join(p.thermalRoot, "thermal_zone*"))
	if err != nil {
		return 0, err
	}
	if len(zones) == 0 {
		return 0, fmt.Errorf("no thermal zones under %s", p.thermalRoot)
	}

	fallback := ""
	for _, z := range zones {
		tbuf, err := os.ReadFile(filepath.Join(z, "type"))
		if err != nil {
			continue
		}
		if strings.TrimSpace(string(tbuf)) == CPU_THERMAL {
			return readMilliDegrees(filepath.Join(z, "temp"))
		}
		if fallback == "" {
			fallback = filepath.Join(z, "temp")
		}
	}
	if fallback == "" {
		return 0, fmt.Errorf("no readable thermal zone under %s", p.thermalRoot)
	}
	return readMilliDegrees(fallback)
}

// thermal_zone*/temp is in millidegrees Celsius
func readMilliDegrees(path string) (float64, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(buf)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", path, err)
	}
	return v / milliDegreesPer, nil
}

// readDisk reports used space the way df does, against blocks available to non-root users.
func (p *SystemProvider) readDisk() (float64, error) {
	var stat unix.Statfs_t
	if err := p.statfsFunc(p.DiskPath, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", p.DiskPath, err)
	}
	if stat.Blocks == 0 {
		return 0, fmt.Errorf("filesystem reports zero blocks")
	}
	used := stat.Blocks - stat.Bfree
	total := used + stat.Bavail
	if total == 0 {
		return 0, nil
	}
	return utils.Clamp(float64(used)/float64(total)*100.0, 0, 100), nil
}

// readLoad returns the 1 minute load average.
func (p *SystemProvider) readLoad() (float64, error) {
	f, err := p.openProcLoadavg()
	if err != nil {
		return 0, fmt.Errorf("open /proc/loadavg: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		return 0, fmt.Errorf("/proc/loadavg is empty")
	}
	fields := strings.Fields(scanner.Text())
	if len(fields) < 1 {
		return 0, fmt.Errorf("/proc/loadavg too few fields")
	}
	return strconv.ParseFloat(fields[0], 64)
}
