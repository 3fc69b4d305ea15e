package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

var errNoUser = errors.New("a user id is required: pass --user or set FAMHUB_USER")

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			body, err := a.api.Health(cmd.Context())
			if err != nil {
				return err
			}
			if body["status"] == "ok" {
				fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Text("health.ok", map[string]any{"URL": a.baseURL}))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Text("health.degraded", map[string]any{
				"URL":    a.baseURL,
				"Detail": failedChecks(body),
			}))
			return errors.New("server degraded")
		},
	}
}

// failedChecks lists the non-ok entries of a health body's checks map.
func failedChecks(body map[string]any) string {
	checks, _ := body["checks"].(map[string]any)
	var bad []string
	for name, v := range checks {
		if s, _ := v.(string); s != "ok" {
			bad = append(bad, fmt.Sprintf("%s=%v", name, v))
		}
	}
	sort.Strings(bad)
	return strings.Join(bad, ", ")
}

func newHeartbeatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "heartbeat",
		Short: "Mark this user online once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			if err := a.api.Heartbeat(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Text("presence.heartbeat", map[string]any{"User": a.userID}))
			return nil
		},
	}
}

func newOnlineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "online",
		Short: "List online users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			ids, err := a.api.Online(cmd.Context())
			if err != nil {
				return err
			}
			others := make([]string, 0, len(ids))
			for _, id := range ids {
				if id != a.userID {
					others = append(others, id)
				}
			}
			if len(others) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Text("presence.nobody", nil))
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Text("presence.online", map[string]any{
				"Count": len(others),
				"Users": strings.Join(others, ", "),
			}))
			return nil
		},
	}
}

func newPlayersCmd(a *app) *cobra.Command {
	var game string
	cmd := &cobra.Command{
		Use:   "players",
		Short: "List other players and their coins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireUser(); err != nil {
				return err
			}
			players, err := a.api.Players(cmd.Context(), game)
			if err != nil {
				return err
			}
			if len(players) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Text("players.none", nil))
				return nil
			}
			for _, p := range players {
				fmt.Fprintln(cmd.OutOrStdout(), a.msgs.Text("players.entry", map[string]any{
					"ID": p.ID, "Name": p.Name, "Coins": p.Coins,
				}))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&game, "game", "tictactoe", "game kind whose roster to list")
	return cmd
}
