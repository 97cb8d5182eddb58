package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/celestiaorg/ec2api/internal/compute"
)

// EC2 operation names, used for call counting and fault injection
const (
	OpRunInstances                  = "RunInstances"
	OpTerminateInstances            = "TerminateInstances"
	OpDescribeInstances             = "DescribeInstances"
	OpDescribeKeyPairs              = "DescribeKeyPairs"
	OpCreateKeyPair                 = "CreateKeyPair"
	OpDescribeSecurityGroups        = "DescribeSecurityGroups"
	OpCreateSecurityGroup           = "CreateSecurityGroup"
	OpAuthorizeSecurityGroupIngress = "AuthorizeSecurityGroupIngress"
	OpModifyInstanceAttribute       = "ModifyInstanceAttribute"
)

// MockEC2Client is an in-memory EC2 account. Launched instances are running immediately and
// terminated instances are terminated immediately, so the SDK waiters succeed on their first poll.
type MockEC2Client struct {
	mu sync.Mutex

	keyPairs       map[string]types.KeyPairInfo
	securityGroups map[string]*types.SecurityGroup
	instances      map[string]*types.Instance
	launchOrder    []string

	calls  map[string]int
	faults map[string][]error

	// describeMisses is the number of upcoming DescribeInstances calls that return no
	// reservations, mimicking eventual consistency right after launch
	describeMisses int

	seq int
}

var _ compute.EC2API = (*MockEC2Client)(nil)

// NewMockEC2Client creates an empty mock account
func NewMockEC2Client() *MockEC2Client {
	return &MockEC2Client{
		keyPairs:       make(map[string]types.KeyPairInfo),
		securityGroups: make(map[string]*types.SecurityGroup),
		instances:      make(map[string]*types.Instance),
		calls:          make(map[string]int),
		faults:         make(map[string][]error),
	}
}

// FailNext queues errors returned by the next calls of op, one per call
func (m *MockEC2Client) FailNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = append(m.faults[op], errs...)
}

// FailAlways makes every call of op return err, up to a generous bound
func (m *MockEC2Client) FailAlways(op string, err error) {
	errs := make([]error, 1000)
	for i := range errs {
		errs[i] = err
	}
	m.FailNext(op, errs...)
}

// FailAll makes every operation return err
func (m *MockEC2Client) FailAll(err error) {
	for _, op := range []string{
		OpRunInstances, OpTerminateInstances, OpDescribeInstances,
		OpDescribeKeyPairs, OpCreateKeyPair,
		OpDescribeSecurityGroups, OpCreateSecurityGroup, OpAuthorizeSecurityGroupIngress,
		OpModifyInstanceAttribute,
	} {
		m.FailAlways(op, err)
	}
}

// DelayDescribe makes the next n DescribeInstances calls return empty results
func (m *MockEC2Client) DelayDescribe(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.describeMisses = n
}

// Calls returns how many times op was invoked
func (m *MockEC2Client) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// AddKeyPair seeds an existing key pair
func (m *MockEC2Client) AddKeyPair(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.keyPairs[name] = types.KeyPairInfo{
		KeyName:   aws.String(name),
		KeyPairId: aws.String(fmt.Sprintf("key-%017d", m.seq)),
	}
}

// AddSecurityGroup seeds an existing security group and returns its id
func (m *MockEC2Client) AddSecurityGroup(name, description string, perms ...types.IpPermission) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.addGroupLocked(name, description, perms)
}

// SecurityGroup returns a copy of the group with the given id
func (m *MockEC2Client) SecurityGroup(id string) (types.SecurityGroup, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.securityGroups[id]
	if !ok {
		return types.SecurityGroup{}, false
	}
	return copyGroup(g), true
}

// SecurityGroupCount returns the number of groups in the account
func (m *MockEC2Client) SecurityGroupCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.securityGroups)
}

// Instance returns a copy of the instance with the given id
func (m *MockEC2Client) Instance(id string) (types.Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return types.Instance{}, false
	}
	return copyInstance(inst), true
}

// InstanceGroupIDs returns the security group ids attached to an instance
func (m *MockEC2Client) InstanceGroupIDs(id string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(inst.SecurityGroups))
	for _, g := range inst.SecurityGroups {
		ids = append(ids, aws.ToString(g.GroupId))
	}
	return ids
}

// enter records a call and pops a queued fault, if any. Callers hold m.mu.
func (m *MockEC2Client) enter(op string) error {
	m.calls[op]++
	if queued := m.faults[op]; len(queued) > 0 {
		err := queued[0]
		m.faults[op] = queued[1:]
		return err
	}
	return nil
}

// RunInstances launches MaxCount instances in the running state
func (m *MockEC2Client) RunInstances(_ context.Context, params *ec2.RunInstancesInput, _ ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpRunInstances); err != nil {
		return nil, err
	}

	if aws.ToString(params.ImageId) == "" {
		return nil, APIError(CodeMissingParameter, "The request must contain the parameter ImageId")
	}
	minCount, maxCount := aws.ToInt32(params.MinCount), aws.ToInt32(params.MaxCount)
	if minCount < 1 || maxCount < minCount {
		return nil, APIError(CodeInvalidParameter, fmt.Sprintf("invalid count bounds min=%d max=%d", minCount, maxCount))
	}
	if name := aws.ToString(params.KeyName); name != "" {
		if _, ok := m.keyPairs[name]; !ok {
			return nil, APIError("InvalidKeyPair.NotFound", fmt.Sprintf("The key pair '%s' does not exist", name))
		}
	}

	out := &ec2.RunInstancesOutput{}
	for i := int32(0); i < maxCount; i++ {
		m.seq++
		id := fmt.Sprintf("i-%017d", m.seq)
		inst := &types.Instance{
			InstanceId:   aws.String(id),
			ImageId:      params.ImageId,
			InstanceType: params.InstanceType,
			KeyName:      params.KeyName,
			State: &types.InstanceState{
				Name: types.InstanceStateNameRunning,
				Code: aws.Int32(16),
			},
			SecurityGroups: []types.GroupIdentifier{{
				GroupId:   aws.String(DefaultVPCGroupID),
				GroupName: aws.String("default"),
			}},
		}
		m.instances[id] = inst
		m.launchOrder = append(m.launchOrder, id)
		out.Instances = append(out.Instances, copyInstance(inst))
	}
	return out, nil
}

// TerminateInstances moves the instances to the terminated state
func (m *MockEC2Client) TerminateInstances(_ context.Context, params *ec2.TerminateInstancesInput, _ ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpTerminateInstances); err != nil {
		return nil, err
	}

	if err := m.checkInstancesLocked(params.InstanceIds); err != nil {
		return nil, err
	}

	out := &ec2.TerminateInstancesOutput{}
	for _, id := range params.InstanceIds {
		inst := m.instances[id]
		previous := *inst.State
		inst.State = &types.InstanceState{Name: types.InstanceStateNameTerminated, Code: aws.Int32(48)}
		out.TerminatingInstances = append(out.TerminatingInstances, types.InstanceStateChange{
			InstanceId:    aws.String(id),
			PreviousState: &previous,
			CurrentState:  inst.State,
		})
	}
	return out, nil
}

// DescribeInstances returns the requested instances in a single reservation
func (m *MockEC2Client) DescribeInstances(_ context.Context, params *ec2.DescribeInstancesInput, _ ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDescribeInstances); err != nil {
		return nil, err
	}

	if m.describeMisses > 0 {
		m.describeMisses--
		return &ec2.DescribeInstancesOutput{}, nil
	}

	ids := params.InstanceIds
	if len(ids) == 0 {
		ids = m.launchOrder
	}
	if err := m.checkInstancesLocked(ids); err != nil {
		return nil, err
	}

	reservation := types.Reservation{ReservationId: aws.String("r-00000000000000001")}
	for _, id := range ids {
		reservation.Instances = append(reservation.Instances, copyInstance(m.instances[id]))
	}
	out := &ec2.DescribeInstancesOutput{}
	if len(reservation.Instances) > 0 {
		out.Reservations = []types.Reservation{reservation}
	}
	return out, nil
}

// DescribeKeyPairs lists every key pair in the account
func (m *MockEC2Client) DescribeKeyPairs(_ context.Context, _ *ec2.DescribeKeyPairsInput, _ ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDescribeKeyPairs); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(m.keyPairs))
	for name := range m.keyPairs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &ec2.DescribeKeyPairsOutput{}
	for _, name := range names {
		out.KeyPairs = append(out.KeyPairs, m.keyPairs[name])
	}
	return out, nil
}

// CreateKeyPair creates a key pair and returns mock private key material
func (m *MockEC2Client) CreateKeyPair(_ context.Context, params *ec2.CreateKeyPairInput, _ ...func(*ec2.Options)) (*ec2.CreateKeyPairOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateKeyPair); err != nil {
		return nil, err
	}

	name := aws.ToString(params.KeyName)
	if name == "" {
		return nil, APIError(CodeMissingParameter, "The request must contain the parameter KeyName")
	}
	if _, ok := m.keyPairs[name]; ok {
		return nil, APIError(CodeKeyPairDuplicate, fmt.Sprintf("The keypair '%s' already exists.", name))
	}

	m.seq++
	info := types.KeyPairInfo{
		KeyName:   aws.String(name),
		KeyPairId: aws.String(fmt.Sprintf("key-%017d", m.seq)),
	}
	m.keyPairs[name] = info

	return &ec2.CreateKeyPairOutput{
		KeyName:     info.KeyName,
		KeyPairId:   info.KeyPairId,
		KeyMaterial: aws.String(DefaultKeyMaterial),
	}, nil
}

// DescribeSecurityGroups supports the group-id and group-name filters and the GroupIds parameter
func (m *MockEC2Client) DescribeSecurityGroups(_ context.Context, params *ec2.DescribeSecurityGroupsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpDescribeSecurityGroups); err != nil {
		return nil, err
	}

	for _, id := range params.GroupIds {
		if _, ok := m.securityGroups[id]; !ok {
			return nil, APIError(CodeGroupNotFound, fmt.Sprintf("The security group '%s' does not exist", id))
		}
	}

	ids := make([]string, 0, len(m.securityGroups))
	for id := range m.securityGroups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := &ec2.DescribeSecurityGroupsOutput{}
	for _, id := range ids {
		g := m.securityGroups[id]
		if len(params.GroupIds) > 0 && !contains(params.GroupIds, id) {
			continue
		}
		if !matchesFilters(g, params.Filters) {
			continue
		}
		out.SecurityGroups = append(out.SecurityGroups, copyGroup(g))
	}
	return out, nil
}

// CreateSecurityGroup creates an empty group; names are unique per account
func (m *MockEC2Client) CreateSecurityGroup(_ context.Context, params *ec2.CreateSecurityGroupInput, _ ...func(*ec2.Options)) (*ec2.CreateSecurityGroupOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpCreateSecurityGroup); err != nil {
		return nil, err
	}

	name := aws.ToString(params.GroupName)
	if name == "" || aws.ToString(params.Description) == "" {
		return nil, APIError(CodeMissingParameter, "GroupName and GroupDescription are required")
	}
	for _, g := range m.securityGroups {
		if aws.ToString(g.GroupName) == name {
			return nil, APIError(CodeGroupDuplicate, fmt.Sprintf("The security group '%s' already exists", name))
		}
	}

	id := m.addGroupLocked(name, aws.ToString(params.Description), nil)
	return &ec2.CreateSecurityGroupOutput{GroupId: aws.String(id)}, nil
}

// AuthorizeSecurityGroupIngress appends rules, rejecting exact duplicates like EC2 does
func (m *MockEC2Client) AuthorizeSecurityGroupIngress(_ context.Context, params *ec2.AuthorizeSecurityGroupIngressInput, _ ...func(*ec2.Options)) (*ec2.AuthorizeSecurityGroupIngressOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpAuthorizeSecurityGroupIngress); err != nil {
		return nil, err
	}

	id := aws.ToString(params.GroupId)
	g, ok := m.securityGroups[id]
	if !ok {
		return nil, APIError(CodeGroupNotFound, fmt.Sprintf("The security group '%s' does not exist", id))
	}
	if len(params.IpPermissions) == 0 {
		return nil, APIError(CodeMissingParameter, "The request must contain the parameter IpPermissions")
	}

	for _, requested := range params.IpPermissions {
		for _, existing := range g.IpPermissions {
			if samePortRange(requested, existing) && sharesRange(requested, existing) {
				return nil, APIError(CodePermissionDup, "the specified rule already exists")
			}
		}
	}
	g.IpPermissions = append(g.IpPermissions, params.IpPermissions...)
	return &ec2.AuthorizeSecurityGroupIngressOutput{Return: aws.Bool(true)}, nil
}

// ModifyInstanceAttribute supports replacing the instance's security groups
func (m *MockEC2Client) ModifyInstanceAttribute(_ context.Context, params *ec2.ModifyInstanceAttributeInput, _ ...func(*ec2.Options)) (*ec2.ModifyInstanceAttributeOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(OpModifyInstanceAttribute); err != nil {
		return nil, err
	}

	id := aws.ToString(params.InstanceId)
	if err := m.checkInstancesLocked([]string{id}); err != nil {
		return nil, err
	}
	if len(params.Groups) == 0 {
		return nil, APIError(CodeMissingParameter, "only security group replacement is supported by the mock")
	}

	groups := make([]types.GroupIdentifier, 0, len(params.Groups))
	for _, gid := range params.Groups {
		g, ok := m.securityGroups[gid]
		if !ok && gid != DefaultVPCGroupID {
			return nil, APIError(CodeGroupNotFound, fmt.Sprintf("The security group '%s' does not exist", gid))
		}
		name := "default"
		if ok {
			name = aws.ToString(g.GroupName)
		}
		groups = append(groups, types.GroupIdentifier{GroupId: aws.String(gid), GroupName: aws.String(name)})
	}
	m.instances[id].SecurityGroups = groups
	return &ec2.ModifyInstanceAttributeOutput{}, nil
}

func (m *MockEC2Client) addGroupLocked(name, description string, perms []types.IpPermission) string {
	m.seq++
	id := fmt.Sprintf("sg-%017d", m.seq)
	m.securityGroups[id] = &types.SecurityGroup{
		GroupId:       aws.String(id),
		GroupName:     aws.String(name),
		Description:   aws.String(description),
		IpPermissions: append([]types.IpPermission(nil), perms...),
	}
	return id
}

func (m *MockEC2Client) checkInstancesLocked(ids []string) error {
	for _, id := range ids {
		if _, ok := m.instances[id]; !ok {
			return APIError(CodeInstanceNotFound, fmt.Sprintf("The instance ID '%s' does not exist", id))
		}
	}
	return nil
}

func matchesFilters(g *types.SecurityGroup, filters []types.Filter) bool {
	for _, f := range filters {
		var value string
		switch aws.ToString(f.Name) {
		case "group-name":
			value = aws.ToString(g.GroupName)
		case "group-id":
			value = aws.ToString(g.GroupId)
		default:
			continue
		}
		if !contains(f.Values, value) {
			return false
		}
	}
	return true
}

func samePortRange(a, b types.IpPermission) bool {
	return aws.ToString(a.IpProtocol) == aws.ToString(b.IpProtocol) &&
		aws.ToInt32(a.FromPort) == aws.ToInt32(b.FromPort) &&
		aws.ToInt32(a.ToPort) == aws.ToInt32(b.ToPort)
}

func sharesRange(a, b types.IpPermission) bool {
	for _, ra := range a.IpRanges {
		for _, rb := range b.IpRanges {
			if aws.ToString(ra.CidrIp) == aws.ToString(rb.CidrIp) {
				return true
			}
		}
	}
	for _, ra := range a.Ipv6Ranges {
		for _, rb := range b.Ipv6Ranges {
			if aws.ToString(ra.CidrIpv6) == aws.ToString(rb.CidrIpv6) {
				return true
			}
		}
	}
	return false
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func copyInstance(inst *types.Instance) types.Instance {
	c := *inst
	if inst.State != nil {
		state := *inst.State
		c.State = &state
	}
	c.SecurityGroups = append([]types.GroupIdentifier(nil), inst.SecurityGroups...)
	return c
}

func copyGroup(g *types.SecurityGroup) types.SecurityGroup {
	c := *g
	c.IpPermissions = append([]types.IpPermission(nil), g.IpPermissions...)
	return c
}
