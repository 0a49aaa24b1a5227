package functions

import (
	"context"
	"net/netip"
	"strings"

	"github.com/sambeau/filterlang/pkg/filterlang/errors"
	"github.com/sambeau/filterlang/pkg/filterlang/evaluator"
	"github.com/sambeau/filterlang/pkg/filterlang/value"
)

func (l *Library) ipEntries() map[string]Entry {
	return map[string]Entry{
		"ip_in_range": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return ipInRanges(args[0].String(), strs(args[1:2]))
			},
			Arity:       "2",
			Description: "Whether an IP address lies in a range",
		},
		"ip_in_ranges": {
			Fn: func(_ context.Context, _ *evaluator.Environment, args []value.Value) (value.Value, error) {
				return ipInRanges(args[0].String(), strs(args[1:]))
			},
			Arity:       "2+",
			Description: "Whether an IP address lies in any of the ranges",
		},
	}
}

// ipRange is an inclusive address range.
type ipRange struct {
	lo, hi netip.Addr
}

func (r ipRange) contains(ip netip.Addr) bool {
	return ip.BitLen() == r.lo.BitLen() && r.lo.Compare(ip) <= 0 && ip.Compare(r.hi) <= 0
}

// parseRange accepts CIDR notation, "lo-hi" and single addresses.
func parseRange(s string) (ipRange, bool) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, "/") {
		p, err := netip.ParsePrefix(s)
		if err != nil {
			return ipRange{}, false
		}
		p = p.Masked()
		return ipRange{lo: p.Addr(), hi: lastAddr(p)}, true
	}
	if lo, hi, ok := strings.Cut(s, "-"); ok {
		a, errA := netip.ParseAddr(strings.TrimSpace(lo))
		b, errB := netip.ParseAddr(strings.TrimSpace(hi))
		if errA != nil || errB != nil || a.BitLen() != b.BitLen() || b.Less(a) {
			return ipRange{}, false
		}
		return ipRange{lo: a.Unmap(), hi: b.Unmap()}, true
	}
	a, err := netip.ParseAddr(s)
	if err != nil {
		return ipRange{}, false
	}
	a = a.Unmap()
	return ipRange{lo: a, hi: a}, true
}

// lastAddr returns the highest address in a masked prefix.
func lastAddr(p netip.Prefix) netip.Addr {
	b := p.Addr().AsSlice()
	bits := p.Bits()
	for i := range b {
		for bit := 0; bit < 8; bit++ {
			if i*8+bit >= bits {
				b[i] |= 0x80 >> bit
			}
		}
	}
	addr, _ := netip.AddrFromSlice(b)
	return addr
}

// ipInRanges reports whether ip lies in any range. An invalid address is in
// no range; an invalid range is an error.
func ipInRanges(ip string, ranges []string) (value.Value, error) {
	parsed := make([]ipRange, len(ranges))
	for i, r := range ranges {
		rng, ok := parseRange(r)
		if !ok {
			return value.Undef(), errors.New("TYPE-0002", map[string]any{"Value": r})
		}
		parsed[i] = rng
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return value.NewBool(false), nil
	}
	addr = addr.Unmap()
	for _, rng := range parsed {
		if rng.contains(addr) {
			return value.NewBool(true), nil
		}
	}
	return value.NewBool(false), nil
}
