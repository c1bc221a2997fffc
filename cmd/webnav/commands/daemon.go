package commands

import (
	"fmt"
	"os"

	daemonlib "github.com/sevlyar/go-daemon"
	"github.com/spf13/cobra"

	"github.com/webnav-ai/webnav/internal/daemoncmd"
)

func newDaemonCmd() *cobra.Command {
	var session, backend, userDataDir string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Start the low-level scripted/manual browsing command daemon",
		Long: `daemon hosts the command-socket server that webnav ctl talks to for
scripted, selector-addressed browsing — the teacher's original low-level
surface, kept alongside the outline-driven agent loop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonForeground(session, backend, userDataDir)
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "default", "session name")
	cmd.Flags().StringVarP(&backend, "backend", "b", "chromedp", "browser backend")
	cmd.Flags().StringVar(&userDataDir, "user-data-dir", "", "Chrome profile directory to reuse")
	cmd.AddCommand(newDaemonStopCmd())
	return cmd
}

// runDaemonForeground daemonizes the current process via go-daemon, exactly
// as the teacher's handleDaemon does, then runs the command server until
// stopped.
func runDaemonForeground(session, backend, userDataDir string) error {
	ctx := &daemonlib.Context{
		PidFileName: daemoncmd.GetPIDFile(session),
		PidFilePerm: 0644,
		Umask:       027,
		Args:        os.Args,
	}

	child, err := ctx.Reborn()
	if err != nil {
		return fmt.Errorf("daemonize: %w", err)
	}
	if child != nil {
		return nil
	}
	defer func() { _ = ctx.Release() }()

	if err := daemoncmd.SaveSessionBackend(session, backend); err != nil {
		return err
	}

	d := daemoncmd.NewDaemonFull(session, backend, userDataDir)
	if err := d.Start(); err != nil {
		os.Exit(1)
	}
	d.Wait()
	return nil
}

func newDaemonStopCmd() *cobra.Command {
	var session string
	var all bool

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop a running daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				sessions, err := daemoncmd.ListRunningSessions()
				if err != nil {
					return err
				}
				for _, s := range sessions {
					fmt.Printf("stopping %s... ", s)
					if err := daemoncmd.StopDaemon(s); err != nil {
						fmt.Printf("failed: %v\n", err)
						continue
					}
					fmt.Println("done")
				}
				return nil
			}
			if !daemoncmd.IsDaemonRunning(session) {
				return fmt.Errorf("daemon not running for session %q", session)
			}
			return daemoncmd.StopDaemon(session)
		},
	}
	cmd.Flags().StringVarP(&session, "session", "s", "default", "session name")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "stop every running session")
	return cmd
}
