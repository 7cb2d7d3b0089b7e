package cli

import (
	"github.com/spf13/cobra"
)

// NewServiceCmd создаёт группу команд для управляемых сервисов.
func NewServiceCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage workspace services",
	}

	cmd.AddCommand(
		newServiceProvisionCmd(clientFn, outputFn),
		newServiceDeprovisionCmd(clientFn, outputFn),
	)

	return cmd
}

func newServiceProvisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags []string
	var watch bool

	cmd := &cobra.Command{
		Use:   "provision WORKSPACE_ID NAME",
		Short: "Schedule service provisioning",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			err := client.ProvisionService(args[0], ServiceRequest{
				Name:  args[1],
				Flags: flags,
			})
			if err != nil {
				return err
			}
			out.Success("Service provisioning scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().StringSliceVar(&flags, "flag", nil, "Service flags (repeatable)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newServiceDeprovisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "deprovision WORKSPACE_ID NAME",
		Short: "Schedule service removal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeprovisionService(args[0], args[1]); err != nil {
				return err
			}
			out.Success("Service removal scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

// NewAppCmd создаёт группу команд для приложений.
func NewAppCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Manage workspace applications",
	}

	cmd.AddCommand(
		newAppProvisionCmd(clientFn, outputFn),
		newAppDeprovisionCmd(clientFn, outputFn),
	)

	return cmd
}

func newAppProvisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var flags []string
	var watch bool

	cmd := &cobra.Command{
		Use:   "provision WORKSPACE_ID NAME",
		Short: "Schedule application provisioning",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			err := client.ProvisionApplication(args[0], ServiceRequest{
				Name:  args[1],
				Flags: flags,
			})
			if err != nil {
				return err
			}
			out.Success("Application provisioning scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().StringSliceVar(&flags, "flag", nil, "Application flags (repeatable)")
	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newAppDeprovisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "deprovision WORKSPACE_ID NAME",
		Short: "Schedule application removal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeprovisionApplication(args[0], args[1]); err != nil {
				return err
			}
			out.Success("Application removal scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

// NewRouteCmd создаёт группу команд для HTTP-маршрутов.
func NewRouteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Manage workspace routes",
	}

	cmd.AddCommand(
		newRouteProvisionCmd(clientFn, outputFn),
		newRouteDeprovisionCmd(clientFn, outputFn),
	)

	return cmd
}

func newRouteProvisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "provision WORKSPACE_ID DOMAIN",
		Short: "Schedule route provisioning",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			err := client.ProvisionRoute(args[0], RouteRequest{Domain: args[1]})
			if err != nil {
				return err
			}
			out.Success("Route provisioning scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newRouteDeprovisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "deprovision WORKSPACE_ID DOMAIN",
		Short: "Schedule route removal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeprovisionRoute(args[0], args[1]); err != nil {
				return err
			}
			out.Success("Route removal scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

// NewImageCmd создаёт группу команд для образов.
func NewImageCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "image",
		Short: "Manage deployed images",
	}

	cmd.AddCommand(
		newImageDeployCmd(clientFn, outputFn),
		newImageDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newImageDeployCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "deploy WORKSPACE_ID IMAGE",
		Short: "Schedule image deployment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			err := client.DeployImage(args[0], ImageRequest{Image: args[1]})
			if err != nil {
				return err
			}
			out.Success("Image deployment scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newImageDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "delete WORKSPACE_ID IMAGE",
		Short: "Schedule image removal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			err := client.DeleteImage(args[0], ImageRequest{Image: args[1]})
			if err != nil {
				return err
			}
			out.Success("Image removal scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}
