package chunk

import (
	"fmt"

	"video2guide/internal/app/provider"
)

// Spec is one planned audio window. Consecutive windows overlap by the
// backend's configured overlap; the final window may be shorter.
type Spec struct {
	Index       int
	StartSec    float64
	DurationSec float64
}

// EndSec returns the exclusive end of the window.
func (s Spec) EndSec() float64 {
	return s.StartSec + s.DurationSec
}

const sizeSafetyMargin = 0.6 // keeps chunks under target size after compression

// Plan computes the ordered chunk windows for an audio file given a backend's
// upload limits. If the file already fits the backend limit the plan is a
// single window spanning the whole duration.
func Plan(totalDurationSec float64, fileSizeBytes int64, lim provider.Limits) ([]Spec, error) {
	if totalDurationSec <= 0 {
		return nil, fmt.Errorf("invalid audio duration: %.2fs", totalDurationSec)
	}

	fileSizeMB := float64(fileSizeBytes) / (1024 * 1024)
	if lim.Unlimited() || fileSizeMB <= lim.MaxFileSizeMB {
		return []Spec{{Index: 0, StartSec: 0, DurationSec: totalDurationSec}}, nil
	}

	mbPerSecond := fileSizeMB / totalDurationSec
	chunkDuration := lim.MaxChunkDurationSec
	if mbPerSecond > 0 {
		bySize := lim.TargetChunkSizeMB / mbPerSecond * sizeSafetyMargin
		if bySize < chunkDuration {
			chunkDuration = bySize
		}
	}
	if chunkDuration < lim.MinChunkDurationSec {
		chunkDuration = lim.MinChunkDurationSec
	}

	step := chunkDuration - lim.OverlapSec
	if step <= 0 {
		return nil, fmt.Errorf("invalid chunk limits: overlap %.1fs leaves no forward step for %.1fs chunks", lim.OverlapSec, chunkDuration)
	}

	var specs []Spec
	for i := 0; ; i++ {
		start := float64(i) * step
		if start >= totalDurationSec {
			break
		}
		duration := chunkDuration
		if start+duration > totalDurationSec {
			duration = totalDurationSec - start
		}
		// A trailing stub shorter than the minimum is already covered by the
		// previous window's overlap.
		if i > 0 && duration < lim.MinChunkDurationSec {
			break
		}
		specs = append(specs, Spec{Index: i, StartSec: start, DurationSec: duration})
	}
	return specs, nil
}
