// Kontur CLI — инструмент командной строки для управления
// workspace'ами через HTTP API.
//
// Использование:
//
//	kontur [--api-url URL] [--account ID] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	task       Журнал задач workspace'а
//	cluster    Управление кластерами
//	pvc        Синхронные операции с PVC
//	volume     Асинхронные операции с томами
//	service    Управляемые сервисы
//	app        Приложения
//	route      HTTP-маршруты
//	image      Образы
//	workspace  Workspace'ы
//	org        Организации
//	events     События сессии
package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shaiso/Kontur/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var account string
	var session string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "kontur",
		Short:         "Kontur CLI — workspace provisioning tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().StringVar(&account, "account", os.Getenv("KONTUR_ACCOUNT"), "Account ID")
	rootCmd.PersistentFlags().StringVar(&session, "session", "", "Session ID (defaults to a new one per invocation)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client {
		if session == "" {
			session = uuid.NewString()
		}
		return cli.NewClient(apiURL, account, session)
	}
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTaskCmd(clientFn, outputFn),
		cli.NewClusterCmd(clientFn, outputFn),
		cli.NewPVCCmd(clientFn, outputFn),
		cli.NewVolumeCmd(clientFn, outputFn),
		cli.NewServiceCmd(clientFn, outputFn),
		cli.NewAppCmd(clientFn, outputFn),
		cli.NewRouteCmd(clientFn, outputFn),
		cli.NewImageCmd(clientFn, outputFn),
		cli.NewWorkspaceCmd(clientFn, outputFn),
		cli.NewOrgCmd(clientFn, outputFn),
		cli.NewEventsCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
