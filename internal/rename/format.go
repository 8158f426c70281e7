package rename

import (
	"strconv"
	"strings"
)

// FormatNumber renders value using a '0'/'#' format. An empty format renders
// a plain decimal. Otherwise the minimum digit count is the number of format
// characters from the first '0' to the end, so "000" pads to three digits and
// "#" renders zero as an empty string.
func FormatNumber(value int, format string) string {
	if format == "" {
		return strconv.Itoa(value)
	}

	minDigits := 0
	if i := strings.IndexByte(format, '0'); i >= 0 {
		minDigits = len(format) - i
	}

	neg := value < 0
	abs := uint64(value)
	if neg {
		abs = uint64(-(int64(value)))
	}

	digits := strconv.FormatUint(abs, 10)
	if abs == 0 && minDigits == 0 {
		digits = ""
	}
	if pad := minDigits - len(digits); pad > 0 {
		digits = strings.Repeat("0", pad) + digits
	}
	if neg {
		return "-" + digits
	}
	return digits
}
