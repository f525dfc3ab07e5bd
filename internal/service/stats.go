package service

import (
	"math/rand"
	"time"
)

// GPUStat is one simulated device in the fleet snapshot.
type GPUStat struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Temperature int    `json:"temperature"`
	Utilization int    `json:"utilization"`
	MemoryUsed  int    `json:"memoryUsed"`
	MemoryTotal int    `json:"memoryTotal"`
	PowerUsage  int    `json:"powerUsage"`
	Status      string `json:"status"`
}

// FleetStats is the simulated nvidia-smi style telemetry snapshot.
type FleetStats struct {
	Timestamp     string    `json:"timestamp"`
	GPUs          []GPUStat `json:"gpus"`
	TotalMemory   int       `json:"totalMemory"`
	UsedMemory    int       `json:"usedMemory"`
	ActiveUsers   int       `json:"activeUsers"`
	TotalSessions int       `json:"totalSessions"`
}

// SimulatedFleetStats fabricates a plausible two-device snapshot. There is
// no real fleet behind this service; the numbers only need to look alive.
func SimulatedFleetStats(activeSessions int) *FleetStats {
	return &FleetStats{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		GPUs: []GPUStat{
			{
				ID:          0,
				Name:        "NVIDIA RTX 4090",
				Temperature: rand.Intn(20) + 65,
				Utilization: rand.Intn(30) + 40,
				MemoryUsed:  rand.Intn(8) + 12,
				MemoryTotal: 24,
				PowerUsage:  rand.Intn(100) + 250,
				Status:      "Active",
			},
			{
				ID:          1,
				Name:        "NVIDIA RTX 4090",
				Temperature: rand.Intn(20) + 60,
				Utilization: rand.Intn(25) + 35,
				MemoryUsed:  rand.Intn(6) + 8,
				MemoryTotal: 24,
				PowerUsage:  rand.Intn(80) + 200,
				Status:      "Active",
			},
		},
		TotalMemory:   48,
		UsedMemory:    rand.Intn(20) + 20,
		ActiveUsers:   activeSessions,
		TotalSessions: rand.Intn(5) + 2,
	}
}
