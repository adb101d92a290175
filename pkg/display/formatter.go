package display

import (
	"fmt"
	"strings"
)

// BootRows formats the capability summary shown after startup.
func BootRows(axes, buttons int) []string {
	return []string{
		"DJ table ready",
		fmt.Sprintf("axes %d buttons %d", axes, buttons),
	}
}

// StateRows formats an input report for the display: axis values three per
// row, then the packed button bits as a 0/1 string.
func StateRows(report []byte, axisCount int) []string {
	if axisCount > len(report) {
		axisCount = len(report)
	}

	var rows []string
	var b strings.Builder
	for i := 0; i < axisCount; i++ {
		fmt.Fprintf(&b, "A%d:%3d ", i, report[i])
		if (i+1)%3 == 0 || i == axisCount-1 {
			rows = append(rows, strings.TrimRight(b.String(), " "))
			b.Reset()
		}
	}

	var bits strings.Builder
	bits.WriteString("B:")
	for _, packed := range report[axisCount:] {
		for bit := 0; bit < 8; bit++ {
			if packed&(1<<bit) != 0 {
				bits.WriteByte('1')
			} else {
				bits.WriteByte('0')
			}
		}
	}
	rows = append(rows, bits.String())

	return rows
}

// truncate limits a string to maxLen characters, adding ".." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 2 {
		return s[:maxLen]
	}
	return s[:maxLen-2] + ".."
}
