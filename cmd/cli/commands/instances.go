package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/ec2api/internal/types"
)

// Instance flag names
const (
	flagFile              = "file"
	flagAMI               = "ami"
	flagMinCount          = "min-count"
	flagMaxCount          = "max-count"
	flagInstanceType      = "instance-type"
	flagKeyName           = "key-name"
	flagSecurityGroup     = "security-group"
	flagSecurityGroupDesc = "security-group-description"
	flagInstanceIDs       = "ids"
)

// GetInstancesCmd returns the instances command
func GetInstancesCmd() *cobra.Command {
	instancesCmd := &cobra.Command{
		Use:   "instances",
		Short: "Manage EC2 instances",
	}
	instancesCmd.AddCommand(newCreateInstancesCmd())
	instancesCmd.AddCommand(newTerminateInstancesCmd())
	return instancesCmd
}

func newCreateInstancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Launch instances and wait until they are running",
		Long: `Launch instances and wait until they are running.

The request can be given as a JSON file with --file; any flag that is set overrides the
matching field of the file. Omitted fields use the server defaults.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := buildCreateRequest(cmd)
			if err != nil {
				return err
			}

			resp, err := apiClient.CreateInstance(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("error creating instances: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringP(flagFile, "f", "", "JSON file containing the create request")
	cmd.Flags().String(flagAMI, "", "AMI to launch")
	cmd.Flags().Int32(flagMinCount, 0, "Minimum number of instances to launch")
	cmd.Flags().Int32(flagMaxCount, 0, "Maximum number of instances to launch")
	cmd.Flags().StringP(flagInstanceType, "t", "", "Instance type")
	cmd.Flags().StringP(flagKeyName, "k", "", "Create or reuse this key pair and launch with it")
	cmd.Flags().String(flagSecurityGroup, "", "Create or reuse this security group and attach it")
	cmd.Flags().String(flagSecurityGroupDesc, "", "Description for a newly created security group")
	return cmd
}

func newTerminateInstancesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "terminate",
		Short: "Terminate instances and wait until they are gone",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := cmd.Flags().GetStringSlice(flagInstanceIDs)
			if err != nil {
				return fmt.Errorf("error getting %s flag: %w", flagInstanceIDs, err)
			}

			req := types.TerminateInstanceRequest{InstanceIDs: ids}
			if err := req.Validate(); err != nil {
				return err
			}

			resp, err := apiClient.TerminateInstance(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("error terminating instances: %w", err)
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringSliceP(flagInstanceIDs, "i", nil, "Comma separated instance IDs to terminate")
	_ = cmd.MarkFlagRequired(flagInstanceIDs)
	return cmd
}

// buildCreateRequest reads the optional request file and applies the flags on top
func buildCreateRequest(cmd *cobra.Command) (types.CreateInstanceRequest, error) {
	var req types.CreateInstanceRequest
	flags := cmd.Flags()

	if path, _ := flags.GetString(flagFile); path != "" {
		if err := validateFilePath(path); err != nil {
			return req, fmt.Errorf("error validating file path: %w", err)
		}
		// #nosec G304 -- file path is validated before use
		data, err := os.ReadFile(path)
		if err != nil {
			return req, fmt.Errorf("error reading JSON file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("error parsing JSON file: %w", err)
		}
	}

	if flags.Changed(flagAMI) {
		req.AMIID, _ = flags.GetString(flagAMI)
	}
	if flags.Changed(flagMinCount) {
		req.MinCount, _ = flags.GetInt32(flagMinCount)
	}
	if flags.Changed(flagMaxCount) {
		req.MaxCount, _ = flags.GetInt32(flagMaxCount)
	}
	if flags.Changed(flagInstanceType) {
		req.InstanceType, _ = flags.GetString(flagInstanceType)
	}
	if flags.Changed(flagKeyName) {
		req.KeyName, _ = flags.GetString(flagKeyName)
		req.CreateKeyPair = req.KeyName != ""
	}
	if flags.Changed(flagSecurityGroup) {
		req.SecurityGroupName, _ = flags.GetString(flagSecurityGroup)
		req.CreateSecurityGroup = req.SecurityGroupName != ""
	}
	if flags.Changed(flagSecurityGroupDesc) {
		req.SecurityGroupDescription, _ = flags.GetString(flagSecurityGroupDesc)
	}

	return req, nil
}

// validateFilePath checks that the file exists and contains no directory traversal
func validateFilePath(path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file does not exist: %w", err)
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains invalid characters")
	}
	return nil
}

func printJSON(w io.Writer, v interface{}) error {
	prettyJSON, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting response: %w", err)
	}
	_, err = fmt.Fprintln(w, string(prettyJSON))
	return err
}
