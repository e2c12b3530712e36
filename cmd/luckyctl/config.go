package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/playperu/luckydraw/internal/client"
)

type Config struct {
	server  string
	timeout time.Duration
	verbose bool

	member        string
	password      string
	box           int
	adminPassword string
	pin           string
	confirm       string
	output        string
}

func (c *Config) validate() error {
	if c.server == "" {
		return errors.New("--server is required")
	}
	if c.timeout <= 0 {
		return fmt.Errorf("invalid timeout (must be positive): %s", c.timeout)
	}
	return nil
}

func (c *Config) client() (*client.Client, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return client.New(c.server, &http.Client{Timeout: c.timeout})
}

func (c *Config) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// bindEnv lets every flag in fs be set from LUCKYCTL_<FLAG> as well.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LUCKYCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "luckyctl",
		Short:   "Play and administer a lucky-draw game from the command line.",
		Args:    cobra.NoArgs,
		Version: releaseVersion,
		// Flags() holds the chosen command's own and inherited flags once
		// parsed, so env values are applied here rather than up front.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			bindEnv(v, cmd.Flags())
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "lucky-draw server url (env: LUCKYCTL_SERVER)")
	pfs.DurationVar(&cfg.timeout, "timeout", 10*time.Second, "per-request timeout (env: LUCKYCTL_TIMEOUT)")
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: LUCKYCTL_VERBOSE)")

	cmd.AddCommand(
		newStateCmd(cfg),
		newPlayCmd(cfg),
		newWatchCmd(cfg),
		newAdminCmd(cfg),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("luckyctl v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
