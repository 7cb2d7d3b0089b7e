package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewTaskCmd создаёт группу команд для журнала задач.
func NewTaskCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Inspect workspace task log",
	}

	cmd.AddCommand(
		newTaskListCmd(clientFn, outputFn),
	)

	return cmd
}

func newTaskListCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	var steps bool

	cmd := &cobra.Command{
		Use:   "list WORKSPACE_ID",
		Short: "List recent workspace tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			tasks, err := client.ListTasks(args[0])
			if err != nil {
				return err
			}

			headers := []string{"TASK_ID", "TYPE", "STATUS", "DETAILS", "CREATED"}
			rows := make([][]string, 0, len(tasks))
			for _, t := range tasks {
				rows = append(rows, []string{t.TaskID, t.Type, t.Status, t.Details, t.CreatedAt})
				if !steps {
					continue
				}
				for _, s := range t.Steps {
					rows = append(rows, []string{"", stepLine(s), "", "", s.TS})
				}
			}

			out.Print(headers, rows, tasks)
			return nil
		},
	}

	cmd.Flags().BoolVar(&steps, "steps", false, "Include step log entries")

	return cmd
}

func stepLine(s StepResponse) string {
	line := fmt.Sprintf("%s %s", s.Kind, s.Step)
	if len(s.Flags) > 0 {
		line += " [" + strings.Join(s.Flags, ",") + "]"
	}
	return line
}
