package services

import (
	"context"
	"testing"
)

func TestLocalSourceSamplesHost(t *testing.T) {
	src := NewLocalSource("")
	ctx := context.Background()

	mem, err := src.FetchMemory(ctx)
	if err != nil {
		t.Skipf("memory stats unavailable: %v", err)
	}
	if mem.Value < 0 || mem.Value > 100 {
		t.Errorf("memory percent out of range: %v", mem.Value)
	}
	if mem.Timestamp <= 0 {
		t.Errorf("expected a timestamp, got %d", mem.Timestamp)
	}

	disk, err := src.FetchDisk(ctx)
	if err != nil {
		t.Skipf("disk stats unavailable: %v", err)
	}
	if disk.Value < 0 || disk.Value > 100 {
		t.Errorf("disk percent out of range: %v", disk.Value)
	}

	network, err := src.FetchNetwork(ctx)
	if err != nil {
		t.Skipf("network stats unavailable: %v", err)
	}
	if network.BytesSentMB < 0 || network.BytesRecvMB < 0 {
		t.Errorf("negative counters: %+v", network)
	}
}
