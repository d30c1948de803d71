package util

import (
	"runtime"
	"testing"
)

func TestLogicalCores(t *testing.T) {
	cores := LogicalCores()
	if cores <= 0 {
		t.Errorf("LogicalCores() = %d, want > 0", cores)
	}
	// Should match runtime.NumCPU()
	if cores != runtime.NumCPU() {
		t.Errorf("LogicalCores() = %d, want %d (runtime.NumCPU())", cores, runtime.NumCPU())
	}
}

func TestGetSystemInfo(t *testing.T) {
	info := GetSystemInfo()
	if info.NumCPU != LogicalCores() {
		t.Errorf("NumCPU = %d, want %d", info.NumCPU, LogicalCores())
	}
	if info.OS != runtime.GOOS || info.Arch != runtime.GOARCH {
		t.Errorf("platform = %s/%s", info.OS, info.Arch)
	}
}
