package expr

import (
	"fmt"
	"strings"
)

// SplitCheckText splits a compact check string of the form
// "TARGET PACKET ITEM <comparison>" into its fields. The comparison part
// may be empty ("TARGET PACKET ITEM" alone is a bare value print).
func SplitCheckText(text string) (target, packet, item, comparison string, err error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return "", "", "", "", fmt.Errorf("invalid check text %q: expected \"target packet item [comparison]\"", text)
	}
	return fields[0], fields[1], fields[2], strings.Join(fields[3:], " "), nil
}

// SplitItemText splits a compact item string of the form
// "TARGET PACKET ITEM" into exactly three fields.
func SplitItemText(text string) (target, packet, item string, err error) {
	fields := strings.Fields(text)
	if len(fields) != 3 {
		return "", "", "", fmt.Errorf("invalid item text %q: expected \"target packet item\"", text)
	}
	return fields[0], fields[1], fields[2], nil
}
