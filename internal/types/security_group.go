package types

import (
	"fmt"
	"net"
	"strings"
)

// Protocols accepted in security group rules
const (
	ProtocolTCP    = "tcp"
	ProtocolUDP    = "udp"
	ProtocolICMP   = "icmp"
	ProtocolICMPv6 = "icmpv6"
	ProtocolAll    = "-1"
)

// SecurityGroupRule is one ingress rule: a protocol, a port range and the source CIDRs
type SecurityGroupRule struct {
	Protocol string   `json:"protocol"`
	FromPort int32    `json:"from_port"`
	ToPort   int32    `json:"to_port"`
	CIDRs    []string `json:"cidrs"`
}

// NormalizedProtocol lowercases the protocol and maps "all" to -1
func (r SecurityGroupRule) NormalizedProtocol() string {
	p := strings.ToLower(strings.TrimSpace(r.Protocol))
	if p == "all" {
		return ProtocolAll
	}
	return p
}

// Validate checks the protocol, the port range and every CIDR
func (r SecurityGroupRule) Validate() error {
	switch r.NormalizedProtocol() {
	case ProtocolTCP, ProtocolUDP:
		if r.FromPort < 0 || r.ToPort > 65535 {
			return fmt.Errorf("ports must be between 0 and 65535")
		}
		if r.FromPort > r.ToPort {
			return fmt.Errorf("from_port (%d) must be less than or equal to to_port (%d)", r.FromPort, r.ToPort)
		}
	case ProtocolICMP, ProtocolICMPv6:
		// from_port is the ICMP type and to_port the code, -1 meaning any
		if r.FromPort < -1 || r.FromPort > 255 || r.ToPort < -1 || r.ToPort > 255 {
			return fmt.Errorf("icmp type and code must be between -1 and 255")
		}
	case ProtocolAll:
	case "":
		return fmt.Errorf("protocol is required")
	default:
		return fmt.Errorf("unsupported protocol %q", r.Protocol)
	}

	if len(r.CIDRs) == 0 {
		return fmt.Errorf("at least one cidr is required")
	}
	for _, cidr := range r.CIDRs {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			return fmt.Errorf("invalid cidr %q: %w", cidr, err)
		}
	}
	return nil
}

// IsIPv6CIDR reports whether cidr is an IPv6 range
func IsIPv6CIDR(cidr string) bool {
	ip, _, err := net.ParseCIDR(cidr)
	return err == nil && ip.To4() == nil
}
