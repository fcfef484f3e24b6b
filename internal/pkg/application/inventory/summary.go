package inventory

import (
	"context"
	"math"
	"slices"

	"github.com/diwise/iot-inventory-admin/pkg/types"
)

const recentActivityLimit int = 5

// Summary gives the dashboard figures: entity counts, devices per status,
// share of devices online and the most recently active devices.
func (s *Store) Summary(ctx context.Context) types.Summary {
	st := s.snapshot()
	devices := st.devices.values()

	summary := types.Summary{
		Users:          st.users.len(),
		Groups:         st.groups.len(),
		Devices:        len(devices),
		RecentActivity: []types.Device{},
		GeneratedAt:    s.now(),
	}

	for _, d := range devices {
		switch d.Status {
		case types.StatusOnline:
			summary.Online++
		case types.StatusOffline:
			summary.Offline++
		case types.StatusPending:
			summary.Pending++
		}
	}

	if len(devices) > 0 {
		summary.OnlinePercentage = int(math.Round(float64(summary.Online) / float64(len(devices)) * 100))
	}

	slices.SortStableFunc(devices, func(a, b types.Device) int {
		return b.LastActive.Compare(a.LastActive)
	})

	for _, d := range devices[:min(recentActivityLimit, len(devices))] {
		summary.RecentActivity = append(summary.RecentActivity, d.Clone())
	}

	return summary
}
