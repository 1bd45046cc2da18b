package recoveryengine

import "context"

// SelectDevice implements the optional multi-device USB-selection
// refinement from spec.md §4.E: when several mount points are
// candidates, scan each for manifest+signature+at-least-one-backup and
// pick the one with the most backup slots filled, ties broken by scan
// order. The recovery engine does not parse manifest.json's contents
// for this — only its presence, per spec.md §6 ("advisory; the
// recovery engine does not parse them except optionally to pick among
// multiple devices").
func SelectDevice(ctx context.Context, candidates []UsbLike) (int, bool) {
	bestIdx := -1
	bestScore := -1
	for i, c := range candidates {
		if !c.FileExists(ctx, fileMani) || !c.FileExists(ctx, fileSig) {
			continue
		}
		score := 0
		if c.FileExists(ctx, fileA) {
			score++
		}
		if c.FileExists(ctx, fileB) {
			score++
		}
		if score == 0 {
			continue
		}
		if score > bestScore {
			bestScore = score
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return 0, false
	}
	return bestIdx, true
}

// UsbLike is the narrow slice of platform.USB SelectDevice needs,
// named separately so callers can pass heterogeneous mount points
// without constructing a full platform.USB for each during selection.
type UsbLike interface {
	FileExists(ctx context.Context, path string) bool
}
