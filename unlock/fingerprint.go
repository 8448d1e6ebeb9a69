package unlock

import (
	"crypto/sha256"
	"encoding/base32"
	"net"
	"os"
	"sort"
	"strings"
)

// machineTokenLen is the length of a derived machine token. 10 base32
// characters of a SHA-256 digest is short enough to read over the phone
// and long enough to make collisions irrelevant at registration scale.
const machineTokenLen = 10

// LocalMachineIDs returns an ordered list of short alphanumeric tokens
// identifying this machine.
//
// The first token is the "main" ID: it is the one shown to the user and
// registered with the server. The remaining tokens are fallback candidates
// so that a match against any of them still counts as this machine, which
// avoids false negatives after hardware is added or removed.
//
// Derivation is best-effort: identifiers that cannot be read are simply
// skipped, and an empty list is a valid (if degenerate) result on hosts
// with no derivable identifiers. Tokens are stable across reboots.
//
// Set the DISTRHO_MACHINE_ID environment variable to override the whole
// list with a single fixed token, e.g. for containers with synthetic
// network interfaces.
func LocalMachineIDs() []string {
	if id := os.Getenv("DISTRHO_MACHINE_ID"); id != "" {
		return []string{normalizeToken(id)}
	}

	var ids []string

	// Machine ID first (Linux, best-effort): it survives NIC swaps, so it
	// makes the most stable "main" ID.
	if raw, err := os.ReadFile("/etc/machine-id"); err == nil {
		if s := strings.TrimSpace(string(raw)); s != "" {
			ids = append(ids, machineToken(s))
		}
	}

	// MAC addresses, sorted for determinism.
	for _, mac := range localMACAddresses() {
		ids = append(ids, machineToken(mac))
	}

	// Hostname as a last-resort fallback candidate.
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		ids = append(ids, machineToken(hostname))
	}

	return ids
}

// localMACAddresses returns sorted, non-loopback hardware MAC addresses.
func localMACAddresses() []string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil
	}
	var macs []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if mac := iface.HardwareAddr.String(); mac != "" {
			macs = append(macs, mac)
		}
	}
	sort.Strings(macs)
	return macs
}

// machineToken derives a short alphanumeric token from a raw hardware or
// network identifier. Users may need to type these, so they contain no
// punctuation and compare case-insensitively.
func machineToken(id string) string {
	sum := sha256.Sum256([]byte(id))
	return base32.StdEncoding.EncodeToString(sum[:])[:machineTokenLen]
}

// normalizeToken strips punctuation and upper-cases a token so that
// comparisons are case-insensitive exact matches.
func normalizeToken(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}

// matchesAnyMachineID reports whether any token in want matches any of the
// machine's own tokens, ignoring case and punctuation. An empty want list
// never matches; callers treat "no binding present" separately.
func matchesAnyMachineID(want, local []string) bool {
	for _, w := range want {
		nw := normalizeToken(w)
		if nw == "" {
			continue
		}
		for _, l := range local {
			if nw == normalizeToken(l) {
				return true
			}
		}
	}
	return false
}
