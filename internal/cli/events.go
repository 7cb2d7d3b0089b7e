package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewEventsCmd создаёт команду просмотра событий сессии.
func NewEventsCmd(clientFn func() *Client, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events [SESSION_ID]",
		Short: "Stream task events for a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := clientFn()
			out := outputFn()

			session := client.SessionID()
			if len(args) > 0 {
				session = args[0]
			}
			return streamEvents(cmd, client, out, session)
		},
	}

	return cmd
}

// followEvents подписывается на события собственной сессии после
// постановки задачи. Сервер закрывает поток финальным событием.
func followEvents(cmd *cobra.Command, client *Client, out *Output, watch bool) error {
	if !watch {
		return nil
	}
	return streamEvents(cmd, client, out, client.SessionID())
}

// Финальное событие задачи сервер не пересылает: сессия закрывается,
// и закрытие потока означает завершение.
func streamEvents(cmd *cobra.Command, client *Client, out *Output, session string) error {
	err := client.StreamEvents(cmd.Context(), session, func(event map[string]any) {
		if failed, _ := event["error"].(bool); failed {
			out.Error(eventLine(event))
			return
		}
		out.Success(eventLine(event))
	})
	if err != nil {
		return err
	}
	out.Success("Task finished")
	return nil
}

func eventLine(event map[string]any) string {
	step, _ := event["step"].(string)
	if msg, ok := event["message"].(string); ok {
		return fmt.Sprintf("%s: %s", step, msg)
	}
	return step
}
