package core

import (
	"fmt"

	"golang.org/x/net/ipv4"
)

const (
	echoCode        = 0
	icmpProtocol    = 1
	icmpNetwork     = "ip4:icmp"
	maxDatagramSize = 1500
)

// icmpErrorDescriptions maps well-known (type, code) pairs to human readable text.
var icmpErrorDescriptions = map[ipv4.ICMPType]map[int]string{
	ipv4.ICMPTypeDestinationUnreachable: {
		0: "Destination network unreachable",
		1: "Destination host unreachable",
		2: "Destination protocol unreachable",
		3: "Destination port unreachable",
		4: "Fragmentation needed and DF set",
		5: "Source route failed",
	},
	ipv4.ICMPTypeTimeExceeded: {
		0: "Time exceeded in transit",
		1: "Fragment reassembly time exceeded",
	},
}

// icmpTypeNames names the types whose unknown codes still get a specific description.
var icmpTypeNames = map[ipv4.ICMPType]string{
	ipv4.ICMPTypeDestinationUnreachable: "Destination unreachable",
	ipv4.ICMPTypeTimeExceeded:           "Time exceeded",
}

// Describe returns a human readable description of an ICMP (type, code) pair. It never fails.
func Describe(typ ipv4.ICMPType, code int) string {
	if desc, ok := icmpErrorDescriptions[typ][code]; ok {
		return desc
	}

	if name, ok := icmpTypeNames[typ]; ok {
		return fmt.Sprintf("%s (unknown code %d)", name, code)
	}

	return fmt.Sprintf("ICMP error (type %d code %d)", int(typ), code)
}
