package email

import (
	"net/mail"
	"regexp"
	"strings"
)

var namedAddress = regexp.MustCompile(`^\s*"?(.*?)"?\s*<([^>]+)>\s*$`)

// ParseAddress splits a header value such as `"Jane Doe" <jane@x.com>` into
// display name and lower-cased address. Values that do not parse are
// returned as the address with an empty name.
func ParseAddress(raw string) (name, address string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if a, err := mail.ParseAddress(raw); err == nil {
		return a.Name, strings.ToLower(a.Address)
	}
	if m := namedAddress.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1]), strings.ToLower(strings.TrimSpace(m[2]))
	}
	return "", strings.ToLower(raw)
}

// ParseAddressList parses a comma separated header value into bare addresses.
func ParseAddressList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if list, err := mail.ParseAddressList(raw); err == nil {
		out := make([]string, 0, len(list))
		for _, a := range list {
			out = append(out, strings.ToLower(a.Address))
		}
		return out
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if _, addr := ParseAddress(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// NormalizeAddress lower-cases and trims an address used as a lookup key.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
