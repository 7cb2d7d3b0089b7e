package cli

import (
	"github.com/spf13/cobra"
)

// NewPVCCmd создаёт группу команд для синхронных PVC-операций.
func NewPVCCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pvc",
		Short: "Manage persistent volume claims",
	}

	cmd.AddCommand(
		newPVCCreateCmd(clientFn, outputFn),
		newPVCDeleteCmd(clientFn, outputFn),
	)

	return cmd
}

func newPVCCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var namespace string
	var volume string
	var size string

	cmd := &cobra.Command{
		Use:   "create WORKSPACE_ID NAME",
		Short: "Create a persistent volume and claim",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			mountPath, err := client.CreatePVC(args[0], CreatePVCRequest{
				Namespace:  namespace,
				Name:       args[1],
				VolumeName: volume,
				PVCSize:    size,
			})
			if err != nil {
				return err
			}

			out.Success("PVC created")
			out.Raw(mountPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "default", "Target namespace")
	cmd.Flags().StringVar(&volume, "volume", "", "Backing volume name (defaults to claim name)")
	cmd.Flags().StringVar(&size, "size", "1Gi", "Claim size")

	return cmd
}

func newPVCDeleteCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "delete WORKSPACE_ID NAME",
		Short: "Delete a claim and its volume",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeletePVC(args[0], args[1], namespace); err != nil {
				return err
			}
			out.Success("PVC deleted")
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "default", "Target namespace")

	return cmd
}

// NewVolumeCmd создаёт группу команд для асинхронных операций с томами.
func NewVolumeCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "volume",
		Short: "Manage workspace volumes",
	}

	cmd.AddCommand(
		newVolumeProvisionCmd(clientFn, outputFn),
		newVolumeDeprovisionCmd(clientFn, outputFn),
		newVolumeBindCmd(clientFn, outputFn),
		newVolumeUnbindCmd(clientFn, outputFn),
	)

	return cmd
}

func newVolumeProvisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var size string
	var watch bool

	cmd := &cobra.Command{
		Use:   "provision WORKSPACE_ID NAME",
		Short: "Schedule volume provisioning",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			err := client.ProvisionVolume(args[0], ProvisionVolumeRequest{
				Name: args[1],
				Size: size,
			})
			if err != nil {
				return err
			}
			out.Success("Volume provisioning scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().StringVar(&size, "size", "1Gi", "Volume size")
	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newVolumeDeprovisionCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "deprovision WORKSPACE_ID NAME",
		Short: "Schedule volume removal",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.DeprovisionVolume(args[0], args[1]); err != nil {
				return err
			}
			out.Success("Volume removal scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newVolumeBindCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "bind WORKSPACE_ID NAME TARGET",
		Short: "Schedule volume binding to a consumer",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			err := client.BindVolume(args[0], args[1], BindVolumeRequest{Target: args[2]})
			if err != nil {
				return err
			}
			out.Success("Volume binding scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newVolumeUnbindCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "unbind WORKSPACE_ID NAME TARGET",
		Short: "Schedule volume unbinding",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			err := client.UnbindVolume(args[0], args[1], BindVolumeRequest{Target: args[2]})
			if err != nil {
				return err
			}
			out.Success("Volume unbinding scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}
