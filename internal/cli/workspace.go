package cli

import (
	"github.com/spf13/cobra"
)

// NewWorkspaceCmd создаёт группу команд для workspace'ов.
func NewWorkspaceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
	}

	cmd.AddCommand(
		newWorkspaceDeprovisionCmd(clientFn, outputFn),
		newWorkspacePurgeCmd(clientFn, outputFn),
	)

	return cmd
}

func newWorkspaceDeprovisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "deprovision WORKSPACE_ID",
		Short: "Schedule removal of all workspace resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeprovisionWorkspace(args[0]); err != nil {
				return err
			}
			out.Success("Workspace teardown scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newWorkspacePurgeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge WORKSPACE_ID",
		Short: "Delete workspace task log and volume bindings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.PurgeWorkspaceRecords(args[0]); err != nil {
				return err
			}
			out.Success("Workspace records purged")
			return nil
		},
	}

	return cmd
}

// NewOrgCmd создаёт группу команд для организаций.
func NewOrgCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}

	cmd.AddCommand(
		newOrgDeprovisionCmd(clientFn, outputFn),
	)

	return cmd
}

func newOrgDeprovisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "deprovision ORG_ID",
		Short: "Schedule removal of all organization resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeprovisionOrganization(args[0]); err != nil {
				return err
			}
			out.Success("Organization teardown scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}
