package cmd

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var userID string

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant from the terminal",
		Long:  "With a message argument, runs one turn and prints the reply. Without arguments, starts an interactive session.",
		RunE: func(cmd *cobra.Command, args []string) error {
			initLogging()

			rt, err := buildRuntime(terminalApproval)
			if err != nil {
				return err
			}

			ctx := context.Background()
			if len(args) > 0 {
				response, err := rt.router.Run(ctx, "cli", userID, strings.Join(args, " "))
				if err != nil {
					return err
				}
				fmt.Println(response)
				return nil
			}

			return runREPL(ctx, rt, userID)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user id for the session key")
	return cmd
}

func runREPL(ctx context.Context, rt *runtime, userID string) error {
	fmt.Println("openclaw — type a message, or 'exit' to quit")
	if def := rt.router.DefaultAgent(); def != nil {
		fmt.Printf("talking to %s (agents: %s)\n\n", def.Name, strings.Join(rt.router.AgentNames(), ", "))
	}

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		response, err := rt.router.Run(ctx, "cli", userID, line)
		if err != nil {
			slog.Error("turn failed", "error", err)
			continue
		}
		fmt.Println(response)
		fmt.Println()
	}
}

// terminalApproval prompts on stdin for shell command approval.
func terminalApproval(command string) bool {
	fmt.Printf("\nAgent wants to run: %s\nAllow? [y/N] ", command)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
