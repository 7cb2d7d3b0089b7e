package cli

import (
	"github.com/spf13/cobra"
)

// NewClusterCmd создаёт группу команд для управления кластерами.
func NewClusterCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Manage workspace Kubernetes clusters",
	}

	cmd.AddCommand(
		newClusterCreateCmd(clientFn, outputFn),
		newClusterUpdateCmd(clientFn, outputFn),
		newClusterStateCmd(clientFn, outputFn),
		newClusterKubeconfigCmd(clientFn, outputFn),
	)

	return cmd
}

func newClusterCreateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var nodes int
	var watch bool

	cmd := &cobra.Command{
		Use:   "create WORKSPACE_ID",
		Short: "Schedule cluster provisioning",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.CreateCluster(args[0], ClusterRequest{Nodes: nodes}); err != nil {
				return err
			}
			out.Success("Cluster provisioning scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().IntVar(&nodes, "nodes", 1, "Number of cluster nodes")
	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newClusterUpdateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var nodes int
	var watch bool

	cmd := &cobra.Command{
		Use:   "update WORKSPACE_ID",
		Short: "Schedule cluster reconfiguration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			if err := client.UpdateCluster(args[0], ClusterRequest{Nodes: nodes}); err != nil {
				return err
			}
			out.Success("Cluster update scheduled")
			return followEvents(cmd, client, out, watch)
		},
	}

	cmd.Flags().IntVar(&nodes, "nodes", 1, "Number of cluster nodes")
	cmd.Flags().BoolVar(&watch, "watch", false, "Stream task events until completion")

	return cmd
}

func newClusterStateCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "state WORKSPACE_ID",
		Short: "Show cluster state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			state, err := client.GetState(args[0])
			if err != nil {
				return err
			}

			out.JSON(state)
			return nil
		},
	}

	return cmd
}

func newClusterKubeconfigCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kubeconfig WORKSPACE_ID",
		Short: "Print cluster kubeconfig",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			data, err := client.GetKubeconfig(args[0])
			if err != nil {
				return err
			}

			if config, ok := data["kubeconfig"].(string); ok {
				out.Raw(config)
				return nil
			}
			out.JSON(data)
			return nil
		},
	}

	return cmd
}
