package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	profileName     = "famctl"
	profileType     = "toml"
	profileFileMode = 0o600
	profileDirMode  = 0o700
	profileTemp     = ".famctl-*.toml.tmp"

	keyURL      = "url"
	keyUser     = "user"
	keyName     = "name"
	keyMessages = "messages"
	keySTUN     = "stun"
	keyTimeout  = "timeout"
)

// profile is the on-disk famctl.toml.
type profile struct {
	URL      string   `toml:"url,omitempty"`
	User     string   `toml:"user,omitempty"`
	Name     string   `toml:"name,omitempty"`
	Messages string   `toml:"messages,omitempty"`
	STUN     []string `toml:"stun,omitempty"`
	Timeout  string   `toml:"timeout,omitempty"`
}

func loadProfile(v *viper.Viper, dir string, flags *pflag.FlagSet) error {
	v.SetConfigName(profileName)
	v.SetConfigType(profileType)
	v.AddConfigPath(dir)
	v.SetEnvPrefix("FAMHUB")
	v.AutomaticEnv()

	for _, key := range []string{keyURL, keyUser, keyName, keyMessages, keySTUN, keyTimeout} {
		if fl := flags.Lookup(key); fl != nil {
			if err := v.BindPFlag(key, fl); err != nil {
				return fmt.Errorf("bind flag %s: %w", key, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read profile: %w", err)
		}
	}
	return nil
}

func profilePath(dir string) string {
	return filepath.Join(dir, profileName+"."+profileType)
}

func readProfile(path string) (profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return profile{}, nil
		}
		return profile{}, fmt.Errorf("read profile: %w", err)
	}
	var p profile
	if err := toml.Unmarshal(data, &p); err != nil {
		return profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

// writeProfile replaces the file atomically.
func writeProfile(path string, p profile) error {
	if err := os.MkdirAll(filepath.Dir(path), profileDirMode); err != nil {
		return fmt.Errorf("create profile directory: %w", err)
	}
	data, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), profileTemp)
	if err != nil {
		return fmt.Errorf("create temp profile: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp profile: %w", err)
	}
	if err := tmp.Chmod(profileFileMode); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp profile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp profile: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace profile: %w", err)
	}
	cleanup = false
	return nil
}

func (p *profile) set(key, value string) error {
	value = strings.TrimSpace(value)
	switch key {
	case keyURL:
		p.URL = value
	case keyUser:
		p.User = value
	case keyName:
		p.Name = value
	case keyMessages:
		p.Messages = value
	case keySTUN:
		p.STUN = nil
		for _, s := range strings.Split(value, ",") {
			if s = strings.TrimSpace(s); s != "" {
				p.STUN = append(p.STUN, s)
			}
		}
	case keyTimeout:
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		p.Timeout = value
	default:
		return fmt.Errorf("unknown key %q (want one of %s)", key, strings.Join(profileKeys(), ", "))
	}
	return nil
}

func profileKeys() []string {
	keys := []string{keyURL, keyUser, keyName, keyMessages, keySTUN, keyTimeout}
	sort.Strings(keys)
	return keys
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the famctl profile",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective settings",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				data, err := toml.Marshal(profile{
					URL:      a.baseURL,
					User:     a.userID,
					Name:     a.userName,
					Messages: a.cfg.GetString(keyMessages),
					STUN:     a.stun,
					Timeout:  a.timeout.String(),
				})
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(data)
				return err
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a setting in famctl.toml",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := profilePath(a.configDir)
				p, err := readProfile(path)
				if err != nil {
					return err
				}
				if err := p.set(args[0], args[1]); err != nil {
					return err
				}
				if err := writeProfile(path, p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %s (%s)\n", args[0], args[1], path)
				return nil
			},
		},
	)
	return cmd
}
