package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/celestiaorg/ec2api/pkg/api/v1/client"
	"github.com/celestiaorg/ec2api/pkg/api/v1/routes"
)

// flag names
const (
	flagServerAddress = "server-address"
	flagProfile       = "profile"
	flagRegion        = "region"
	flagTimeout       = "timeout"
)

// environment variable names
const (
	envServerAddress = "EC2API_SERVER_ADDRESS"
)

var (
	// apiClient is the shared API client instance
	apiClient client.Client
	// serverAddress holds the target API server address. Flag parsing sets this.
	serverAddress string
)

// initClient initializes the API client
func initClient(cmd *cobra.Command) error {
	opts := client.DefaultOptions()
	opts.BaseURL = serverAddress

	profile, err := cmd.Flags().GetString(flagProfile)
	if err != nil {
		return err
	}
	region, err := cmd.Flags().GetString(flagRegion)
	if err != nil {
		return err
	}
	timeout, err := cmd.Flags().GetDuration(flagTimeout)
	if err != nil {
		return err
	}
	opts.Profile = profile
	opts.Region = region
	if timeout > 0 {
		opts.Timeout = timeout
	}

	apiClient, err = client.NewClient(opts)
	return err
}

func init() {
	// PersistentPreRunE handles the env var override
	RootCmd.PersistentFlags().StringVarP(&serverAddress, flagServerAddress, "s", routes.DefaultBaseURL, "Address of the ec2api server (env: EC2API_SERVER_ADDRESS)")
	RootCmd.PersistentFlags().StringP(flagProfile, "p", "", "AWS profile the server should use")
	RootCmd.PersistentFlags().StringP(flagRegion, "r", "", "AWS region the server should use")
	RootCmd.PersistentFlags().Duration(flagTimeout, client.DefaultTimeout, "Request timeout")

	RootCmd.AddCommand(GetInstancesCmd())
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "ec2api",
	Short: "ec2api CLI - A command line interface for the ec2api server",
	Long: `ec2api CLI creates and terminates EC2 instances through the ec2api server.
Complete documentation is available at https://github.com/celestiaorg/ec2api`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		if !cmd.Flags().Changed(flagServerAddress) {
			if envAddr := os.Getenv(envServerAddress); envAddr != "" {
				serverAddress = envAddr
			}
		}

		// Flag > Env Var > Default
		if serverAddress == "" {
			return fmt.Errorf("server address cannot be empty")
		}
		return initClient(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}
