package treefs

import (
	"fmt"
	"strconv"
	"strings"
)

// sizeSuffixes maps the accepted size suffixes to their 1024^k
// multipliers. Suffixes are matched case-insensitively.
var sizeSuffixes = map[byte]uint64{
	'B': 1,
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
	'P': 1 << 50,
	'E': 1 << 60,
}

// ParseSize parses a non-negative byte count with an optional binary
// suffix ("512K", "1M", "2G"). Whitespace is trimmed and the suffix is
// case-insensitive. The result must fit in 63 bits so it survives on
// signed 64-bit metadata fields.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidSize)
	}

	mult := uint64(1)
	last := s[len(s)-1]
	if last < '0' || last > '9' {
		m, ok := sizeSuffixes[last&^0x20] // fold to upper case
		if !ok {
			return 0, fmt.Errorf("%w: unknown suffix %q", ErrInvalidSize, string(last))
		}
		mult = m
		s = strings.TrimSpace(s[:len(s)-1])
		if s == "" {
			return 0, fmt.Errorf("%w: missing value", ErrInvalidSize)
		}
	}

	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidSize, s)
	}

	if mult > 1 && n > maxFileSize/mult {
		return 0, fmt.Errorf("%w: %s%s overflows", ErrInvalidSize, s, string(last))
	}
	n *= mult
	if n > maxFileSize {
		return 0, fmt.Errorf("%w: %d exceeds 63 bits", ErrInvalidSize, n)
	}
	return n, nil
}

// maxFileSize is the largest size representable on signed 64-bit
// stat fields.
const maxFileSize = 1<<63 - 1

// humanizeUnits are the IEC binary units used by HumanizeBytes,
// largest first.
var humanizeUnits = []struct {
	factor uint64
	suffix string
}{
	{1 << 60, "EiB"},
	{1 << 50, "PiB"},
	{1 << 40, "TiB"},
	{1 << 30, "GiB"},
	{1 << 20, "MiB"},
	{1 << 10, "KiB"},
	{1, "B"},
}

// HumanizeBytes renders a byte count as an IEC binary value with two
// fractional digits, followed by the exact count in parentheses. The
// output is purely informational.
func HumanizeBytes(n uint64) string {
	factor, suffix := uint64(1), "B"
	for _, u := range humanizeUnits {
		if n >= u.factor {
			factor, suffix = u.factor, u.suffix
			break
		}
	}
	return fmt.Sprintf("%.2f %s (%d bytes)", float64(n)/float64(factor), suffix, n)
}
