package quantity

import "fmt"

const (
	kib = 1024
	mib = 1024 * kib
	gib = 1024 * mib
	tib = 1024 * gib
)

// FormatMillicores renders a millicore amount, switching to whole cores
// from 1000m upward.
func FormatMillicores(mc float64) string {
	if mc >= 1000 {
		cores := mc / 1000
		if cores == float64(int64(cores)) {
			return fmt.Sprintf("%d", int64(cores))
		}
		return fmt.Sprintf("%.1f", cores)
	}
	return fmt.Sprintf("%dm", int64(mc+0.5))
}

// FormatBytes renders a byte amount with the largest binary unit that
// keeps the value at or above one.
func FormatBytes(b float64) string {
	switch {
	case b >= tib:
		return fmt.Sprintf("%.1fTi", b/tib)
	case b >= gib:
		return fmt.Sprintf("%.1fGi", b/gib)
	case b >= mib:
		return fmt.Sprintf("%.0fMi", b/mib)
	case b >= kib:
		return fmt.Sprintf("%.0fKi", b/kib)
	default:
		return fmt.Sprintf("%.0fB", b)
	}
}

// FormatPercent renders a percentage. Values under 1% keep two decimal
// places so small non-zero allocations stay visible.
func FormatPercent(pct float64) string {
	if pct > 0 && pct < 1 {
		return fmt.Sprintf("%.2f%%", pct)
	}
	return fmt.Sprintf("%.1f%%", pct)
}
