package models

// Family is one polled metric endpoint. Network feeds two series.
type Family string

const (
	FamilyCPU     Family = "cpu"
	FamilyMemory  Family = "memory"
	FamilyDisk    Family = "disk"
	FamilyNetwork Family = "network"
)

// AllFamilies lists the four polling sources
var AllFamilies = []Family{FamilyCPU, FamilyMemory, FamilyDisk, FamilyNetwork}

// CPUMetrics is the response body of the cpu endpoint
type CPUMetrics struct {
	Timestamp  string   `json:"timestamp"`
	CPUPercent *float64 `json:"cpu_percent"`
	CPUCount   int      `json:"cpu_count"`
	CPUFreq    *float64 `json:"cpu_freq"`
}

// MemoryMetrics is the response body of the memory endpoint
type MemoryMetrics struct {
	Timestamp         string   `json:"timestamp"`
	MemoryPercent     *float64 `json:"memory_percent"`
	MemoryAvailableMB float64  `json:"memory_available_mb"`
	MemoryTotalMB     float64  `json:"memory_total_mb"`
}

// DiskMetrics is the response body of the disk endpoint
type DiskMetrics struct {
	Timestamp   string   `json:"timestamp"`
	DiskPercent *float64 `json:"disk_percent"`
	DiskFreeGB  float64  `json:"disk_free_gb"`
	DiskTotalGB float64  `json:"disk_total_gb"`
}

// NetworkMetrics is the response body of the network endpoint.
// Byte counters are cumulative since host boot.
type NetworkMetrics struct {
	Timestamp   string   `json:"timestamp"`
	BytesSentMB *float64 `json:"bytes_sent_mb"`
	BytesRecvMB *float64 `json:"bytes_recv_mb"`
	PacketsSent uint64   `json:"packets_sent"`
	PacketsRecv uint64   `json:"packets_recv"`
}

// Reading is one normalized scalar sample from a source
type Reading struct {
	Timestamp int64              `json:"timestamp"` // epoch millis
	Value     float64            `json:"value"`
	Extra     map[string]float64 `json:"extra,omitempty"`
}

// NetworkReading carries the two cumulative network counters
type NetworkReading struct {
	Timestamp   int64              `json:"timestamp"`
	BytesSentMB float64            `json:"bytes_sent_mb"`
	BytesRecvMB float64            `json:"bytes_recv_mb"`
	Extra       map[string]float64 `json:"extra,omitempty"`
}
