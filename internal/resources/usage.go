// Package resources samples and formats the resource usage of launched
// process trees.
package resources

import (
	"context"
	"errors"
	"fmt"
	"time"

	units "github.com/docker/go-units"
	"github.com/shirou/gopsutil/v3/process"
)

// Usage is the aggregate footprint of a process and its descendants.
type Usage struct {
	RSS        uint64
	CPUPercent float64
	Processes  int
}

// Sample walks the process tree rooted at pid and sums its resident memory
// and CPU usage. Descendants that exit mid-walk are skipped.
func Sample(ctx context.Context, pid int) (Usage, error) {
	if pid <= 0 {
		return Usage{}, fmt.Errorf("invalid pid %d", pid)
	}
	root, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return Usage{}, fmt.Errorf("inspect pid %d: %w", pid, err)
	}

	var usage Usage
	visited := make(map[int32]struct{})
	collect(ctx, root, visited, &usage)
	if usage.Processes == 0 {
		return Usage{}, fmt.Errorf("inspect pid %d: process not readable", pid)
	}
	return usage, nil
}

func collect(ctx context.Context, p *process.Process, visited map[int32]struct{}, usage *Usage) {
	if _, seen := visited[p.Pid]; seen {
		return
	}
	visited[p.Pid] = struct{}{}

	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return
	}
	usage.Processes++
	usage.RSS += mem.RSS
	if cpu, err := p.CPUPercentWithContext(ctx); err == nil {
		usage.CPUPercent += cpu
	}

	children, err := p.ChildrenWithContext(ctx)
	if err != nil && !errors.Is(err, process.ErrorNoChildren) {
		return
	}
	for _, child := range children {
		collect(ctx, child, visited, usage)
	}
}

// FormatRSS renders a byte count for display, e.g. "12.3MiB".
func FormatRSS(bytes uint64) string {
	return units.BytesSize(float64(bytes))
}

// FormatAge renders how long ago start was, e.g. "3 minutes".
func FormatAge(start, now time.Time) string {
	if start.IsZero() {
		return "-"
	}
	d := now.Sub(start)
	if d < time.Second {
		return "just now"
	}
	return units.HumanDuration(d)
}
