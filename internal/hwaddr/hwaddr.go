package hwaddr

import (
	"net"
	"strings"
)

// Canonical normalizes a raw hardware address so that different spellings of
// the same address ("aa-bb-cc-dd-ee-ff", "AABB.CCDD.EEFF") map to one store
// key. Input that does not parse as a hardware address is passed through
// trimmed and upper-cased; an unknown address then simply fails lookups
// instead of being rejected here.
func Canonical(raw string) string {
	s := strings.TrimSpace(raw)
	if hw, err := net.ParseMAC(s); err == nil {
		return strings.ToUpper(hw.String())
	}
	return strings.ToUpper(s)
}
