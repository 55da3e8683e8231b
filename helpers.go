package nitfmeta

import (
	"fmt"
	"strings"
	"unicode"
)

func printableString(s string) string {
	ss := strings.Map(func(r rune) rune {
		if unicode.IsGraphic(r) {
			return r
		}
		return -1
	}, s)

	return strings.TrimSpace(ss)
}

func isBlank(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != 0 {
			return false
		}
	}
	return true
}

// formatDate formats CCYYMMDD as CCYY/MM/DD.
func formatDate(b []byte) string {
	return fmt.Sprintf("%s/%s/%s", b[0:4], b[4:6], b[6:8])
}

// formatDateTime formats CCYYMMDDhhmmss as CCYY/MM/DD hh:mm:ss.
func formatDateTime(b []byte) string {
	return fmt.Sprintf("%s %s:%s:%s", formatDate(b[:8]), b[8:10], b[10:12], b[12:14])
}

func formatRGB(b []byte) string {
	return fmt.Sprintf("0x%02X%02X%02X", b[0], b[1], b[2])
}

func formatBinaryData(b []byte) string {
	return fmt.Sprintf("(Binary data %d bytes)", len(b))
}
