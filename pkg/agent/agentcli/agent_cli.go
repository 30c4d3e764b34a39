package agentcli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/nplastio/zmkipc/pkg/agent"
	"github.com/nplastio/zmkipc/pkg/wire"
	"github.com/spf13/cobra"
)

func Main(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) error {
	dir, err := os.UserConfigDir()
	if err != nil {
		return err
	}
	cmd := NewRootCmd(filepath.Join(dir, "zmkipc"))
	cmd.SetArgs(args)
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	return cmd.ExecuteContext(ctx)
}

type agentProvider func() *agent.Agent

func NewRootCmd(dataDir string) *cobra.Command {
	cfg := agent.DefaultConfig(dataDir)
	rootCmd := &cobra.Command{
		Use:   "zmkipc-bridge",
		Short: "ZMK IPC bridge",
		Long:  `zmkipc-bridge hosts the kscan ingress and HID-event egress sockets for a simulated ZMK firmware peer.`,
	}
	var a *agent.Agent
	provider := func() *agent.Agent {
		return a
	}
	rootCmd.PersistentFlags().StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&cfg.KeymapConfig, "keymap-config", cfg.KeymapConfig, "keymap config file")
	rootCmd.PersistentFlags().StringVar(&cfg.KscanSocket, "kscan-socket", cfg.KscanSocket, "kscan ingress socket path")
	rootCmd.PersistentFlags().StringVar(&cfg.ObserverSocket, "observer-socket", cfg.ObserverSocket, "event observer socket path")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "inject-key" || cmd.Name() == "watch-events" {
			// These talk to a running bridge as plain socket clients; they
			// never open the data directory or its badger db.
			return nil
		}
		var err error
		a, err = agent.NewAgent(cfg)
		return err
	}
	rootCmd.AddCommand(NewRun(provider))
	rootCmd.AddCommand(NewHistory(provider))
	rootCmd.AddCommand(NewInjectKey(&cfg))
	rootCmd.AddCommand(NewWatchEvents(&cfg))
	return rootCmd
}

func NewRun(provider agentProvider) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bridge",
		Long:  `Run starts the kscan ingress server, the event observer broadcaster, and the simulated firmware host, and blocks until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return provider().Run(cmd.Context())
		},
	}
}

func NewHistory(provider agentProvider) *cobra.Command {
	limit := 20
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent ingress/egress events",
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := provider().RecentHistory(limit)
			if err != nil {
				return err
			}
			jsonB, err := json.MarshalIndent(events, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(jsonB))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", limit, "maximum number of events to show")
	return cmd
}

// NewInjectKey builds the "sample injector" client: it dials the ingress
// socket directly and sends a single key event, independent of whatever
// process owns that socket.
func NewInjectKey(cfg *agent.Config) *cobra.Command {
	var row, col uint32
	var position int
	var release bool
	cmd := &cobra.Command{
		Use:   "inject-key",
		Short: "Send a single key event to a running bridge's ingress socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := net.DialTimeout("unix", cfg.KscanSocket, 2*time.Second)
			if err != nil {
				return fmt.Errorf("dial kscan socket: %w", err)
			}
			defer conn.Close()

			action := wire.ActionPress
			if release {
				action = wire.ActionRelease
			}
			ev := &wire.KeyEvent{Action: action}
			if position >= 0 {
				pos := uint32(position)
				ev.Position = &pos
			} else {
				ev.KeyPos = &wire.KeyPosition{Row: row, Col: col}
			}

			payload, err := wire.Marshal(&wire.ClientMessage{KeyEvent: ev})
			if err != nil {
				return err
			}
			return wire.FrameSend(conn, payload)
		},
	}
	cmd.Flags().Uint32Var(&row, "row", 0, "matrix row (ignored if --position is set)")
	cmd.Flags().Uint32Var(&col, "col", 0, "matrix column (ignored if --position is set)")
	cmd.Flags().IntVar(&position, "position", -1, "linear matrix position; overrides --row/--col")
	cmd.Flags().BoolVar(&release, "release", false, "send a release instead of a press")
	return cmd
}

// NewWatchEvents builds the "sample observer" client: it dials the
// egress socket directly and prints every decoded event until the
// connection closes or the command is interrupted.
func NewWatchEvents(cfg *agent.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "watch-events",
		Short: "Stream decoded events from a running bridge's observer socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := net.DialTimeout("unix", cfg.ObserverSocket, 2*time.Second)
			if err != nil {
				return fmt.Errorf("dial observer socket: %w", err)
			}
			defer conn.Close()

			go func() {
				<-cmd.Context().Done()
				conn.Close()
			}()

			out := cmd.OutOrStdout()
			for {
				ev, err := wire.FrameRecv(conn, wire.MaxZmkEventSize, wire.UnmarshalZmkEvent)
				if err != nil {
					if cmd.Context().Err() != nil {
						return nil
					}
					return err
				}
				jsonB, err := json.Marshal(ev)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(jsonB))
			}
		},
	}
}
