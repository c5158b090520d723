package filesystem

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/disk"

	"github.com/vertextoedge/map-bootstrap/internal/port"
)

// GetDiskUsage returns disk usage for the storage root
func (m *Manager) GetDiskUsage() (*port.DiskUsage, error) {
	stat, err := disk.Usage(m.rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get disk stats: %w", err)
	}

	return &port.DiskUsage{
		Total:   stat.Total,
		Used:    stat.Used,
		Free:    stat.Free,
		UsedPct: stat.UsedPercent,
	}, nil
}

// HasFreeSpace reports whether need bytes plus reserve fit on the disk
func (m *Manager) HasFreeSpace(need, reserve int64) (bool, *port.DiskUsage, error) {
	usage, err := m.GetDiskUsage()
	if err != nil {
		return false, nil, err
	}
	if need < 0 {
		need = 0
	}
	if reserve < 0 {
		reserve = 0
	}
	return usage.Free >= uint64(need)+uint64(reserve), usage, nil
}
