package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/openclaw/internal/channels"
	"github.com/nextlevelbuilder/openclaw/internal/session"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Inspect stored conversation sessions",
	}
	cmd.AddCommand(sessionsListCmd(), sessionsShowCmd(), sessionsDeleteCmd())
	return cmd
}

func openSessionStore() (*session.Store, error) {
	cfg, err := loadConfigQuiet()
	if err != nil {
		return nil, err
	}
	return session.NewStore(cfg.SessionsDir())
}

func sessionsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			keys, err := store.List()
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Println("no sessions")
				return nil
			}
			for _, key := range keys {
				count, _ := store.Count(key)
				fmt.Printf("%s  (%d messages)\n", key, count)
			}
			return nil
		},
	}
}

func sessionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <key>",
		Short: "Print a session transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			msgs, err := store.Load(args[0])
			if err != nil {
				return err
			}
			for _, msg := range msgs {
				switch {
				case len(msg.ToolCalls) > 0:
					names := make([]string, 0, len(msg.ToolCalls))
					for _, tc := range msg.ToolCalls {
						names = append(names, tc.Function.Name)
					}
					fmt.Printf("[%s] calls: %s\n", msg.Role, strings.Join(names, ", "))
					if msg.Content != "" {
						fmt.Printf("      %s\n", msg.Content)
					}
				case msg.Role == "tool":
					fmt.Printf("[tool %s] %s\n", msg.ToolCallID, channels.Truncate(msg.Content, 200))
				default:
					fmt.Printf("[%s] %s\n", msg.Role, msg.Content)
				}
			}
			return nil
		},
	}
}

func sessionsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSessionStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Printf("deleted %s\n", args[0])
			return nil
		},
	}
}
