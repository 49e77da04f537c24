package system

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open-file limit. Every page worker holds the
// page raster plus several artifact files open at once; the default soft
// limit is too low for wide batches.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not read file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not raise file limit: %v", err)
	} else {
		log.Printf("[*] Open-file limit raised to %d", rLimit.Cur)
	}
}

// SuggestWorkers picks a worker count from available memory and CPU count.
// Each worker holds a full page raster plus three binarization buffers, so
// higher DPI means fewer concurrent pages. Returns at least 1.
func SuggestWorkers(dpi int) int {
	workers := runtime.NumCPU()

	vm, err := mem.VirtualMemory()
	if err != nil {
		log.Printf("[!] Could not read memory stats: %v", err)
		return workers
	}

	// Broadsheet page at the given DPI: roughly 13x21 inches, 4 bytes per
	// pixel for the raster plus three 1-byte binarization planes.
	pageBytes := uint64(13*dpi) * uint64(21*dpi) * 7
	if pageBytes == 0 {
		return workers
	}

	// Leave half of the available memory for everything else.
	byMemory := int(vm.Available / 2 / pageBytes)
	if byMemory < 1 {
		byMemory = 1
	}
	if byMemory < workers {
		workers = byMemory
	}
	if workers < 1 {
		workers = 1
	}
	return workers
}

// FindLatestPDF returns the most recently modified PDF in dir. The daily
// workflow drops each edition into a download folder; the newest file is the
// one to process.
func FindLatestPDF(dir string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time

	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(strings.ToLower(f.Name()), ".pdf") {
			info, err := f.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(latestTime) {
				latestTime = info.ModTime()
				latestFile = filepath.Join(dir, f.Name())
			}
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("no PDF files found in %s", dir)
	}

	return latestFile, nil
}
