package joystick

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// BootInfoMarker identifies the boot-info line that carries the negotiated
// joystick capabilities. The line is written at boot by the descriptor
// builder and read back here, so the engine always matches what the host
// was told.
const BootInfoMarker = "JoystickXL"

// CapabilityConfig holds the negotiated joystick capabilities. It is
// immutable after construction and shared read-only by the report engine.
type CapabilityConfig struct {
	AxisCount    int
	ButtonCount  int
	ReportLength int
}

// ButtonBytes returns the number of bytes needed to pack all button bits.
func (c *CapabilityConfig) ButtonBytes() int {
	return (c.ButtonCount + 7) / 8
}

// ReportLength returns the report payload size for the given counts: one
// byte per axis plus the packed button bytes.
func ReportLength(axes, buttons int) int {
	return axes + (buttons+7)/8
}

// FormatBootInfo renders the boot-info line for the given counts. The third
// field is reserved and always zero. ParseBootInfo accepts the result.
func FormatBootInfo(axes, buttons int) string {
	return fmt.Sprintf("%s %d %d 0 %d", BootInfoMarker, axes, buttons, ReportLength(axes, buttons))
}

// ParseBootInfo scans r line by line for the boot-info marker and extracts
// the capability values from the first matching line.
//
// The scan is deliberately tolerant: every maximal run of digits on the
// matching line is taken as one value, in order of appearance, and anything
// else on the line is ignored. At least four values are required; the first
// is the axis count, the second the button count, the fourth the report
// length in bytes. The third is reserved and discarded.
func ParseBootInfo(r io.Reader) (*CapabilityConfig, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, BootInfoMarker) {
			continue
		}

		values := digitRuns(line)
		if len(values) < 4 {
			return nil, ErrBootInfoShort
		}
		if values[3] == 0 {
			return nil, ErrZeroReportLen
		}

		return &CapabilityConfig{
			AxisCount:    values[0],
			ButtonCount:  values[1],
			ReportLength: values[3],
		}, nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, ErrNoBootInfo
}

// digitRuns returns every maximal run of ASCII digits in s as an integer,
// in order of appearance.
func digitRuns(s string) []int {
	var values []int
	value := 0
	inRun := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			value = value*10 + int(c-'0')
			inRun = true
			continue
		}
		if inRun {
			values = append(values, value)
			value = 0
			inRun = false
		}
	}
	if inRun {
		values = append(values, value)
	}
	return values
}
