package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"vitalwatch/internal/models"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
)

const (
	MB = 1024 * 1024
	GB = 1024 * 1024 * 1024
)

// LocalSource reads the same families as HTTPSource from this host
type LocalSource struct {
	diskPath string
	now      func() time.Time
}

// NewLocalSource creates a source reporting disk usage for diskPath
func NewLocalSource(diskPath string) *LocalSource {
	if diskPath == "" {
		diskPath = "/"
	}
	return &LocalSource{diskPath: diskPath, now: time.Now}
}

// FetchCPU returns CPU usage percentage
func (s *LocalSource) FetchCPU(ctx context.Context) (models.Reading, error) {
	percentage, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return models.Reading{}, &FetchError{Family: models.FamilyCPU, Cause: err}
	}
	if len(percentage) == 0 {
		return models.Reading{}, &FetchError{Family: models.FamilyCPU, Cause: fmt.Errorf("no cpu samples")}
	}

	coreCount, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		log.Printf("[SOURCE] Warning: Could not get CPU core count: %v", err)
		coreCount = 0
	}

	return models.Reading{
		Timestamp: s.now().UnixMilli(),
		Value:     percentage[0],
		Extra:     map[string]float64{"cpu_count": float64(coreCount)},
	}, nil
}

// FetchMemory returns memory usage percentage
func (s *LocalSource) FetchMemory(ctx context.Context) (models.Reading, error) {
	virtualMemory, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return models.Reading{}, &FetchError{Family: models.FamilyMemory, Cause: err}
	}

	return models.Reading{
		Timestamp: s.now().UnixMilli(),
		Value:     virtualMemory.UsedPercent,
		Extra: map[string]float64{
			"memory_available_mb": float64(virtualMemory.Available) / MB,
			"memory_total_mb":     float64(virtualMemory.Total) / MB,
		},
	}, nil
}

// FetchDisk returns disk usage percentage for the configured path
func (s *LocalSource) FetchDisk(ctx context.Context) (models.Reading, error) {
	usage, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		return models.Reading{}, &FetchError{Family: models.FamilyDisk, Cause: err}
	}

	return models.Reading{
		Timestamp: s.now().UnixMilli(),
		Value:     usage.UsedPercent,
		Extra: map[string]float64{
			"disk_free_gb":  float64(usage.Free) / GB,
			"disk_total_gb": float64(usage.Total) / GB,
		},
	}, nil
}

// FetchNetwork returns cumulative megabytes sent/received across all interfaces
func (s *LocalSource) FetchNetwork(ctx context.Context) (models.NetworkReading, error) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil {
		return models.NetworkReading{}, &FetchError{Family: models.FamilyNetwork, Cause: err}
	}
	if len(counters) == 0 {
		return models.NetworkReading{}, &FetchError{Family: models.FamilyNetwork, Cause: fmt.Errorf("no network counters")}
	}

	// pernic=false returns a single aggregated "all" entry
	total := counters[0]

	return models.NetworkReading{
		Timestamp:   s.now().UnixMilli(),
		BytesSentMB: float64(total.BytesSent) / MB,
		BytesRecvMB: float64(total.BytesRecv) / MB,
		Extra: map[string]float64{
			"packets_sent": float64(total.PacketsSent),
			"packets_recv": float64(total.PacketsRecv),
		},
	}, nil
}
