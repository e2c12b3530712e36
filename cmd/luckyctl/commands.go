package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/luckydraw/internal/client"
	"github.com/playperu/luckydraw/internal/luckydraw"
)

func newStateCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the current game state as JSON.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			s, err := c.State(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), s)
		},
	}
}

func newPlayCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Log in as a member and open one box.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.member == "" || cfg.password == "" {
				return errors.New("--member and --password are required")
			}
			c, err := cfg.client()
			if err != nil {
				return err
			}
			ctrl := client.NewController(c, cfg.logger(cmd))
			ctx := cmd.Context()

			if err := ctrl.Login(ctx, cfg.member, cfg.password); err != nil {
				return fmt.Errorf("login: %w", err)
			}

			boxID := cfg.box
			if boxID == 0 {
				boxID = firstClosedBox(ctrl.State())
				if boxID == 0 {
					return errors.New("no boxes left to open")
				}
			}

			if _, err := ctrl.Draw(ctx, boxID); err != nil {
				return fmt.Errorf("draw box %d: %w", boxID, err)
			}
			if reward, ok := ctrl.TakeWin(); ok {
				fmt.Fprintf(cmd.OutOrStdout(), "%s opened box %d and won %d\n", cfg.member, boxID, reward)
			}
			return nil
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.member, "member", "m", "", "member name (env: LUCKYCTL_MEMBER)")
	fs.StringVarP(&cfg.password, "password", "p", "", "member password (env: LUCKYCTL_PASSWORD)")
	fs.IntVarP(&cfg.box, "box", "b", 0, "box to open, 0 picks the first closed box (env: LUCKYCTL_BOX)")
	return cmd
}

func firstClosedBox(s luckydraw.GameState) int {
	for _, b := range s.Boxes {
		if b.OpenedBy == nil {
			return b.ID
		}
	}
	return 0
}

func newWatchCmd(cfg *Config) *cobra.Command {
	var poll bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow draws and resets live until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := cfg.client()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if poll {
				return watchPoll(cmd, cfg, c, out)
			}

			events := make(chan client.Event, 16)
			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				defer close(events)
				return c.Watch(gctx, func(ev client.Event) {
					select {
					case events <- ev:
					case <-gctx.Done():
					}
				})
			})
			g.Go(func() error {
				for ev := range events {
					printEvent(out, ev)
				}
				return nil
			})
			return g.Wait()
		},
	}

	cmd.Flags().BoolVar(&poll, "poll", false, "poll /api/state instead of using the websocket (env: LUCKYCTL_POLL)")
	return cmd
}

func printEvent(w io.Writer, ev client.Event) {
	ts := time.Now().Format(time.TimeOnly)
	switch ev.Type {
	case "draw":
		fmt.Fprintf(w, "%s  %s opened box %d: %d (%d draws)\n", ts, ev.Member, ev.BoxID, ev.Reward, ev.State.DrawCount())
	case "reset":
		fmt.Fprintf(w, "%s  session reset\n", ts)
	default:
		fmt.Fprintf(w, "%s  %d boxes, %d draws so far\n", ts, len(ev.State.Boxes), ev.State.DrawCount())
	}
}

// watchPoll prints each newly logged draw, using the server's suggested
// refresh interval.
func watchPoll(cmd *cobra.Command, cfg *Config, c *client.Client, out io.Writer) error {
	ctx := cmd.Context()
	conf, err := c.Config(ctx)
	if err != nil {
		return err
	}
	ctrl := client.NewController(c, cfg.logger(cmd))
	if err := ctrl.Refresh(ctx); err != nil {
		return err
	}

	seen := ctrl.State().DrawCount()
	printEvent(out, client.Event{Type: "state", State: ctrl.State()})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Poll(gctx, conf.PollInterval()) })
	g.Go(func() error {
		ticker := time.NewTicker(conf.PollInterval())
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
			}
			s := ctrl.State()
			if s.DrawCount() < seen {
				printEvent(out, client.Event{Type: "reset", State: s})
				seen = 0
			}
			for _, e := range s.DrawLogs[seen:] {
				printEvent(out, client.Event{Type: "draw", Member: e.Member, BoxID: e.BoxID, Reward: e.Reward, State: s})
			}
			seen = s.DrawCount()
		}
	})
	return g.Wait()
}

func newAdminCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administer the current session.",
		Args:  cobra.NoArgs,
	}
	cmd.PersistentFlags().StringVar(&cfg.adminPassword, "admin-password", "", "admin password (env: LUCKYCTL_ADMIN_PASSWORD)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "stats",
			Short: "Print session statistics and the draw log.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := adminClient(cmd, cfg)
				if err != nil {
					return err
				}
				st, err := c.Stats(cmd.Context())
				if err != nil {
					return err
				}
				return printStats(cmd.OutOrStdout(), st)
			},
		},
		newExportCmd(cfg),
		newResetCmd(cfg),
	)
	return cmd
}

func newExportCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download the results as CSV.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := adminClient(cmd, cfg)
			if err != nil {
				return err
			}
			if cfg.output == "" || cfg.output == "-" {
				return c.Export(cmd.Context(), cmd.OutOrStdout())
			}

			f, err := os.Create(cfg.output)
			if err != nil {
				return err
			}
			if err := c.Export(cmd.Context(), f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", cfg.output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfg.output, "out", "o", "", "output file, - or empty for stdout (env: LUCKYCTL_OUT)")
	return cmd
}

func newResetCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Start a fresh session. Erases every result.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := adminClient(cmd, cfg)
			if err != nil {
				return err
			}
			s, err := c.Reset(cmd.Context(), cfg.pin, cfg.confirm)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session reset, %d boxes ready\n", len(s.Boxes))
			return nil
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&cfg.pin, "pin", "", "reset PIN (env: LUCKYCTL_PIN)")
	fs.StringVar(&cfg.confirm, "confirm", "", fmt.Sprintf("type %q to confirm (env: LUCKYCTL_CONFIRM)", luckydraw.ConfirmWord))
	return cmd
}

func adminClient(cmd *cobra.Command, cfg *Config) (*client.Client, error) {
	if cfg.adminPassword == "" {
		return nil, errors.New("--admin-password is required")
	}
	c, err := cfg.client()
	if err != nil {
		return nil, err
	}
	if err := c.AdminLogin(cmd.Context(), cfg.adminPassword); err != nil {
		return nil, fmt.Errorf("admin login: %w", err)
	}
	return c, nil
}

func printStats(w io.Writer, st client.Stats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "members\t%d\n", st.Stats.Members)
	fmt.Fprintf(tw, "played\t%d\n", st.Stats.Played)
	fmt.Fprintf(tw, "boxes opened\t%d (%d left)\n", st.Stats.OpenedBoxes, st.Stats.RemainingBoxes)
	fmt.Fprintf(tw, "draws\t%d / %d\n", st.Stats.Draws, st.Stats.MaxDraws)
	fmt.Fprintf(tw, "total paid\t%d\n", st.Stats.TotalPaid)
	if len(st.Log) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "time\tmember\tbox\treward")
		for _, e := range st.Log {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", e.Timestamp.Local().Format(time.DateTime), e.Member, e.BoxID, e.Reward)
		}
	}
	return tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
