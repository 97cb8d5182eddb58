// Package types holds the request and response bodies of the instance API
package types

import (
	"errors"
	"fmt"
	"strings"
)

// Instance states reported back to callers
const (
	StatusRunning    = "running"
	StatusTerminated = "terminated"
)

// maxKeyNameLength is the EC2 limit for key pair names
const maxKeyNameLength = 255

// maxGroupNameLength is the EC2 limit for security group names
const maxGroupNameLength = 255

// CreateInstanceRequest is the body of POST /create-instance
type CreateInstanceRequest struct {
	// AMI to launch; the configured default when empty
	AMIID string `json:"ami_id,omitempty"`
	// Minimum number of instances to launch; 1 when zero
	MinCount int32 `json:"min_count,omitempty"`
	// Maximum number of instances to launch; min_count (or 1) when zero
	MaxCount int32 `json:"max_count,omitempty"`
	// Instance type; the configured default when empty
	InstanceType string `json:"instance_type,omitempty"`

	CreateKeyPair bool   `json:"create_key_pair"`
	KeyName       string `json:"key_name,omitempty"`

	CreateSecurityGroup      bool                `json:"create_security_group"`
	SecurityGroupName        string              `json:"security_group_name,omitempty"`
	SecurityGroupDescription string              `json:"security_group_description,omitempty"`
	SecurityGroupRules       []SecurityGroupRule `json:"security_group_rules,omitempty"`
}

// ApplyDefaults fills the fields a caller may omit
func (r *CreateInstanceRequest) ApplyDefaults(defaultAMI, defaultInstanceType string) {
	if r.AMIID == "" {
		r.AMIID = defaultAMI
	}
	if r.InstanceType == "" {
		r.InstanceType = defaultInstanceType
	}
	if r.MinCount == 0 {
		r.MinCount = 1
	}
	if r.MaxCount == 0 {
		r.MaxCount = r.MinCount
	}
	if r.CreateSecurityGroup && r.SecurityGroupDescription == "" && r.SecurityGroupName != "" {
		r.SecurityGroupDescription = "Security group " + r.SecurityGroupName
	}
}

// Validate checks the request after defaults have been applied
func (r *CreateInstanceRequest) Validate() error {
	if r.AMIID == "" {
		return fmt.Errorf("ami_id is required")
	}
	if r.MinCount < 1 {
		return fmt.Errorf("min_count must be at least 1")
	}
	if r.MaxCount < r.MinCount {
		return fmt.Errorf("max_count (%d) must be greater than or equal to min_count (%d)", r.MaxCount, r.MinCount)
	}
	if r.InstanceType == "" {
		return fmt.Errorf("instance_type is required")
	}

	if r.CreateKeyPair {
		if err := ValidateKeyName(r.KeyName); err != nil {
			return fmt.Errorf("invalid key_name: %w", err)
		}
	}

	if r.CreateSecurityGroup {
		if r.SecurityGroupName == "" {
			return fmt.Errorf("security_group_name is required when create_security_group is true")
		}
		if len(r.SecurityGroupName) > maxGroupNameLength {
			return fmt.Errorf("security_group_name must be at most %d characters", maxGroupNameLength)
		}
		if strings.HasPrefix(strings.ToLower(r.SecurityGroupName), "sg-") {
			return fmt.Errorf("security_group_name cannot start with sg-")
		}
		for i, rule := range r.SecurityGroupRules {
			if err := rule.Validate(); err != nil {
				return fmt.Errorf("invalid security_group_rules[%d]: %w", i, err)
			}
		}
	}

	return nil
}

// ValidateKeyName checks a key pair name, which is also used as a local file name
func ValidateKeyName(name string) error {
	if name == "" {
		return errors.New("key name cannot be empty")
	}
	if len(name) > maxKeyNameLength {
		return fmt.Errorf("key name must be at most %d characters", maxKeyNameLength)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("key name %q cannot contain path separators", name)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("key name %q is reserved", name)
	}
	return nil
}

// TerminateInstanceRequest is the body of DELETE /terminate-instance
type TerminateInstanceRequest struct {
	InstanceIDs []string `json:"instance_ids"`
}

// Validate checks that at least one non-empty instance id is given
func (r *TerminateInstanceRequest) Validate() error {
	if len(r.InstanceIDs) == 0 {
		return fmt.Errorf("instance_ids must contain at least one instance id")
	}
	for i, id := range r.InstanceIDs {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("instance_ids[%d] is empty", i)
		}
	}
	return nil
}

// InstanceResponse is returned by both instance endpoints
type InstanceResponse struct {
	InstanceIDs []string `json:"instance_ids"`
	Status      string   `json:"status"`
}
