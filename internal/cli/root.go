// Package cli implements the famctl command tree.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/park285/famhub/internal/apiclient"
	"github.com/park285/famhub/internal/media/pion"
	"github.com/park285/famhub/internal/msgcat"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	cfg       *viper.Viper
	configDir string

	baseURL  string
	userID   string
	userName string
	timeout  time.Duration
	stun     []string

	api  *apiclient.Client
	msgs *msgcat.Catalog
	in   io.Reader
}

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	a := &app{cfg: viper.New(), in: os.Stdin}
	rootCmd := &cobra.Command{
		Use:           "famctl",
		Short:         "famctl talks to a famhub server: presence, voice calls and games",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	f := rootCmd.PersistentFlags()
	f.StringVar(&a.configDir, "config-dir", defaultConfigDir(), "directory holding famctl.toml")
	f.String(keyURL, "http://localhost:5000", "server base URL (FAMHUB_URL)")
	f.String(keyUser, "", "user id sent as X-User-Id (FAMHUB_USER)")
	f.String(keyName, "", "display name sent as X-User-Name (FAMHUB_NAME)")
	f.String(keyMessages, "", "directory of YAML message overrides (FAMHUB_MESSAGES)")
	f.StringSlice(keySTUN, pion.DefaultConfig().ICEServers, "ICE server URLs (FAMHUB_STUN)")
	f.Duration(keyTimeout, 8*time.Second, "per-request timeout")

	rootCmd.AddCommand(
		newConfigCmd(a),
		newHealthCmd(a),
		newHeartbeatCmd(a),
		newOnlineCmd(a),
		newPlayersCmd(a),
		newCallCmd(a),
		newListenCmd(a),
		newPlayCmd(a),
	)
	return rootCmd
}

// init resolves settings with flag > env > profile file > default
// precedence and builds the API client.
func (a *app) init(cmd *cobra.Command) error {
	if err := loadProfile(a.cfg, a.configDir, cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	a.baseURL = a.cfg.GetString(keyURL)
	a.userID = strings.TrimSpace(a.cfg.GetString(keyUser))
	a.userName = strings.TrimSpace(a.cfg.GetString(keyName))
	a.timeout = a.cfg.GetDuration(keyTimeout)
	a.stun = a.cfg.GetStringSlice(keySTUN)

	msgs, err := msgcat.New(a.cfg.GetString(keyMessages))
	if err != nil {
		return err
	}
	a.msgs = msgs
	a.api = apiclient.New(a.baseURL,
		apiclient.WithUser(a.userID, a.userName),
		apiclient.WithTimeout(a.timeout),
	)
	return nil
}

func (a *app) requireUser() error {
	if a.userID == "" {
		return errNoUser
	}
	return nil
}

func defaultConfigDir() string {
	if v := strings.TrimSpace(os.Getenv("FAMHUB_CONFIG_DIR")); v != "" {
		return v
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "famhub")
}
