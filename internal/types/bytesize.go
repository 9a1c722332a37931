package types

import "fmt"

// ByteSize is a byte count.
type ByteSize int64

// HumanReadable formats the size with binary prefixes, e.g. "512 B",
// "1.5 KiB", "2.0 MiB".
func (b ByteSize) HumanReadable() string {
	v := int64(b)
	abs := v
	if abs < 0 {
		abs = -abs
		if abs < 0 {
			// math.MinInt64
			abs = 1<<63 - 1
		}
	}
	if abs < 1024 {
		return fmt.Sprintf("%d B", v)
	}

	// 0xfffcccccccccccc is the point where EiB takes over from PiB.
	const units = "KMGTPE"
	value := abs
	unit := 0
	for i := 40; i >= 0 && abs > 0xfffcccccccccccc>>i; i -= 10 {
		value >>= 10
		unit++
	}
	if v < 0 {
		value = -value
	}
	return fmt.Sprintf("%.1f %ciB", float64(value)/1024.0, units[unit])
}

func (b ByteSize) String() string {
	return b.HumanReadable()
}
