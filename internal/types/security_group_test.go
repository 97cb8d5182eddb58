package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecurityGroupRule_Validate(t *testing.T) {
	tests := []struct {
		name    string
		rule    SecurityGroupRule
		wantErr string
	}{
		{
			name: "ssh from anywhere",
			rule: SecurityGroupRule{Protocol: "tcp", FromPort: 22, ToPort: 22, CIDRs: []string{"0.0.0.0/0"}},
		},
		{
			name: "udp range with ipv6",
			rule: SecurityGroupRule{Protocol: "UDP", FromPort: 1000, ToPort: 2000, CIDRs: []string{"10.0.0.0/8", "::/0"}},
		},
		{
			name: "all traffic",
			rule: SecurityGroupRule{Protocol: "all", CIDRs: []string{"10.0.0.0/16"}},
		},
		{
			name: "icmp any",
			rule: SecurityGroupRule{Protocol: "icmp", FromPort: -1, ToPort: -1, CIDRs: []string{"0.0.0.0/0"}},
		},
		{
			name:    "missing protocol",
			rule:    SecurityGroupRule{FromPort: 22, ToPort: 22, CIDRs: []string{"0.0.0.0/0"}},
			wantErr: "protocol is required",
		},
		{
			name:    "unknown protocol",
			rule:    SecurityGroupRule{Protocol: "sctp", CIDRs: []string{"0.0.0.0/0"}},
			wantErr: "unsupported protocol",
		},
		{
			name:    "reversed ports",
			rule:    SecurityGroupRule{Protocol: "tcp", FromPort: 443, ToPort: 80, CIDRs: []string{"0.0.0.0/0"}},
			wantErr: "must be less than or equal to to_port",
		},
		{
			name:    "port out of range",
			rule:    SecurityGroupRule{Protocol: "tcp", FromPort: 1, ToPort: 70000, CIDRs: []string{"0.0.0.0/0"}},
			wantErr: "between 0 and 65535",
		},
		{
			name:    "icmp type out of range",
			rule:    SecurityGroupRule{Protocol: "icmp", FromPort: 300, ToPort: -1, CIDRs: []string{"0.0.0.0/0"}},
			wantErr: "icmp type and code",
		},
		{
			name:    "no cidrs",
			rule:    SecurityGroupRule{Protocol: "tcp", FromPort: 22, ToPort: 22},
			wantErr: "at least one cidr",
		},
		{
			name:    "bad cidr",
			rule:    SecurityGroupRule{Protocol: "tcp", FromPort: 22, ToPort: 22, CIDRs: []string{"0.0.0.0"}},
			wantErr: "invalid cidr",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSecurityGroupRule_NormalizedProtocol(t *testing.T) {
	assert.Equal(t, "-1", SecurityGroupRule{Protocol: "ALL"}.NormalizedProtocol())
	assert.Equal(t, "tcp", SecurityGroupRule{Protocol: " TCP "}.NormalizedProtocol())
}

func TestIsIPv6CIDR(t *testing.T) {
	assert.True(t, IsIPv6CIDR("::/0"))
	assert.True(t, IsIPv6CIDR("2001:db8::/32"))
	assert.False(t, IsIPv6CIDR("0.0.0.0/0"))
	assert.False(t, IsIPv6CIDR("garbage"))
}
