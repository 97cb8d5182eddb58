package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/celestiaorg/ec2api/internal/compute"
	"github.com/celestiaorg/ec2api/internal/logger"
	"github.com/celestiaorg/ec2api/internal/types"
)

const codeGroupDuplicate = "InvalidGroup.Duplicate"

// SecurityGroup manages security groups and their attachment to instances
type SecurityGroup struct {
	client    compute.EC2API
	describer *Describer
}

// NewSecurityGroupService creates a security group service. Instances are looked up through describer.
func NewSecurityGroupService(client compute.EC2API, describer *Describer) *SecurityGroup {
	return &SecurityGroup{client: client, describer: describer}
}

// EnsureSecurityGroup returns the id of the group called name, creating it when absent.
// The description of an existing group is left as is.
func (s *SecurityGroup) EnsureSecurityGroup(ctx context.Context, name, description string) (string, error) {
	group, err := s.findByName(ctx, name)
	if err != nil {
		return "", err
	}
	if group != nil {
		logger.InfoWithFields("Security group already exists, reusing it", logger.Fields{
			"group_name": name,
			"group_id":   aws.ToString(group.GroupId),
		})
		return aws.ToString(group.GroupId), nil
	}

	out, err := s.client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(name),
		Description: aws.String(description),
	})
	if err != nil {
		if compute.APIErrorCode(err) == codeGroupDuplicate {
			// Lost a create race with another request
			group, findErr := s.findByName(ctx, name)
			if findErr == nil && group != nil {
				return aws.ToString(group.GroupId), nil
			}
		}
		return "", fmt.Errorf("failed to create security group %s: %w", name, compute.Classify("CreateSecurityGroup", err))
	}

	groupID := aws.ToString(out.GroupId)
	logger.InfoWithFields("Created security group", logger.Fields{"group_name": name, "group_id": groupID})
	return groupID, nil
}

// AuthorizeIngress adds perms to the group's ingress rules. When every requested CIDR is already
// granted nothing is submitted and the group's current permissions are returned; otherwise the
// ungranted CIDRs are authorized in one call and perms is returned.
func (s *SecurityGroup) AuthorizeIngress(ctx context.Context, groupID string, perms []ec2types.IpPermission) ([]ec2types.IpPermission, error) {
	out, err := s.client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{{Name: aws.String("group-id"), Values: []string{groupID}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe security group %s: %w", groupID, compute.Classify("DescribeSecurityGroups", err))
	}

	var group *ec2types.SecurityGroup
	for i := range out.SecurityGroups {
		if aws.ToString(out.SecurityGroups[i].GroupId) == groupID {
			group = &out.SecurityGroups[i]
			break
		}
	}
	if group == nil {
		return nil, compute.NewError("AuthorizeSecurityGroupIngress", compute.KindClient,
			fmt.Errorf("%w: %s", ErrSecurityGroupNotFound, groupID))
	}

	missing := missingPermissions(group.IpPermissions, perms)
	if len(missing) == 0 {
		logger.InfoWithFields("Ingress rules already authorized", logger.Fields{"group_id": groupID})
		return group.IpPermissions, nil
	}

	_, err = s.client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
		GroupId:       aws.String(groupID),
		IpPermissions: missing,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to authorize ingress on %s: %w", groupID, compute.Classify("AuthorizeSecurityGroupIngress", err))
	}

	logger.InfoWithFields("Authorized ingress rules", logger.Fields{"group_id": groupID, "rules": len(missing)})
	return perms, nil
}

// AttachSecurityGroup adds groupID to the instance's security groups. The instance's group list
// is replaced as a whole; nothing is submitted when the group is already attached.
func (s *SecurityGroup) AttachSecurityGroup(ctx context.Context, groupID, instanceID string) error {
	out, err := s.describer.DescribeInstances(ctx, []string{instanceID})
	if err != nil {
		return err
	}

	var current []string
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			if aws.ToString(inst.InstanceId) != instanceID {
				continue
			}
			for _, g := range inst.SecurityGroups {
				current = append(current, aws.ToString(g.GroupId))
			}
		}
	}

	for _, id := range current {
		if id == groupID {
			logger.DebugWithFields("Security group already attached", logger.Fields{"group_id": groupID, "instance_id": instanceID})
			return nil
		}
	}

	_, err = s.client.ModifyInstanceAttribute(ctx, &ec2.ModifyInstanceAttributeInput{
		InstanceId: aws.String(instanceID),
		Groups:     append(current, groupID),
	})
	if err != nil {
		return fmt.Errorf("failed to attach security group %s to %s: %w", groupID, instanceID, compute.Classify("ModifyInstanceAttribute", err))
	}

	logger.InfoWithFields("Attached security group", logger.Fields{"group_id": groupID, "instance_id": instanceID})
	return nil
}

func (s *SecurityGroup) findByName(ctx context.Context, name string) (*ec2types.SecurityGroup, error) {
	out, err := s.client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{{Name: aws.String("group-name"), Values: []string{name}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list security groups: %w", compute.Classify("DescribeSecurityGroups", err))
	}
	for i := range out.SecurityGroups {
		if aws.ToString(out.SecurityGroups[i].GroupName) == name {
			return &out.SecurityGroups[i], nil
		}
	}
	return nil, nil
}

// RulesToPermissions converts request rules into EC2 permissions. IPv6 CIDRs go to Ipv6Ranges.
func RulesToPermissions(rules []types.SecurityGroupRule) []ec2types.IpPermission {
	perms := make([]ec2types.IpPermission, 0, len(rules))
	for _, rule := range rules {
		protocol := rule.NormalizedProtocol()
		perm := ec2types.IpPermission{IpProtocol: aws.String(protocol)}
		if protocol != types.ProtocolAll {
			perm.FromPort = aws.Int32(rule.FromPort)
			perm.ToPort = aws.Int32(rule.ToPort)
		}
		for _, cidr := range rule.CIDRs {
			if types.IsIPv6CIDR(cidr) {
				perm.Ipv6Ranges = append(perm.Ipv6Ranges, ec2types.Ipv6Range{CidrIpv6: aws.String(cidr)})
			} else {
				perm.IpRanges = append(perm.IpRanges, ec2types.IpRange{CidrIp: aws.String(cidr)})
			}
		}
		perms = append(perms, perm)
	}
	return perms
}

// missingPermissions returns, for each requested permission, a copy holding only the CIDRs not
// yet granted by an existing permission with the same protocol and ports. Fully granted
// permissions are left out.
func missingPermissions(existing, requested []ec2types.IpPermission) []ec2types.IpPermission {
	granted := append([]ec2types.IpPermission(nil), existing...)
	var missing []ec2types.IpPermission
	for _, req := range requested {
		have := make(cidrSet)
		for _, ex := range granted {
			if samePorts(ex, req) {
				have.add(cidrsOf(ex))
			}
		}

		perm := req
		perm.IpRanges = nil
		perm.Ipv6Ranges = nil
		for _, r := range req.IpRanges {
			if _, ok := have[aws.ToString(r.CidrIp)]; !ok {
				perm.IpRanges = append(perm.IpRanges, r)
			}
		}
		for _, r := range req.Ipv6Ranges {
			if _, ok := have[aws.ToString(r.CidrIpv6)]; !ok {
				perm.Ipv6Ranges = append(perm.Ipv6Ranges, r)
			}
		}
		if len(perm.IpRanges) == 0 && len(perm.Ipv6Ranges) == 0 {
			continue
		}
		missing = append(missing, perm)
		granted = append(granted, perm)
	}
	return missing
}

func samePorts(a, b ec2types.IpPermission) bool {
	if aws.ToString(a.IpProtocol) != aws.ToString(b.IpProtocol) {
		return false
	}
	if aws.ToString(a.IpProtocol) == types.ProtocolAll {
		return true
	}
	return aws.ToInt32(a.FromPort) == aws.ToInt32(b.FromPort) && aws.ToInt32(a.ToPort) == aws.ToInt32(b.ToPort)
}

type cidrSet map[string]struct{}

func cidrsOf(p ec2types.IpPermission) cidrSet {
	set := make(cidrSet, len(p.IpRanges)+len(p.Ipv6Ranges))
	for _, r := range p.IpRanges {
		set[aws.ToString(r.CidrIp)] = struct{}{}
	}
	for _, r := range p.Ipv6Ranges {
		set[aws.ToString(r.CidrIpv6)] = struct{}{}
	}
	return set
}

func (s cidrSet) add(other cidrSet) {
	for cidr := range other {
		s[cidr] = struct{}{}
	}
}
