package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/webnav-ai/webnav/internal/daemoncmd"
)

func newCtlCmd() *cobra.Command {
	var session, backend string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "ctl <action> [args...]",
		Short: "Send one scripted command to the browsing daemon",
		Long: `ctl talks to the daemon started by "webnav daemon", auto-starting it
if it isn't already running, adapted from the teacher's command dispatch
(cmd/agent-browser-go/main.go).

Actions: open|goto|navigate <url>, click <selector>, fill <selector> <text>,
hover <selector>, press <key>, scroll [up|down] [amount], snapshot,
eval <js>, get text|title|url [selector], back, forward, reload, close.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureDaemonRunning(session, backend); err != nil {
				return err
			}

			client := daemoncmd.NewClient(session)
			if err := client.Connect(); err != nil {
				return fmt.Errorf("connect to daemon: %w", err)
			}
			defer client.Close()

			command, err := buildCommand(args[0], args[1:])
			if err != nil {
				return err
			}

			resp, err := client.Send(command)
			if err != nil {
				return fmt.Errorf("send command: %w", err)
			}

			if jsonOutput {
				data, _ := json.Marshal(resp)
				fmt.Println(string(data))
			} else {
				printCtlResponse(resp)
			}
			if !resp.Success {
				return fmt.Errorf("%s", resp.Error)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "default", "session name")
	cmd.Flags().StringVarP(&backend, "backend", "b", "chromedp", "browser backend")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the raw daemon response as JSON")
	return cmd
}

func ensureDaemonRunning(session, backend string) error {
	if daemoncmd.IsDaemonRunning(session) {
		return nil
	}
	exe, err := os.Executable()
	if err != nil {
		return err
	}
	c := exec.Command(exe, "daemon", "--session", session, "--backend", backend)
	if err := c.Start(); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}
	if err := c.Process.Release(); err != nil {
		return err
	}
	time.Sleep(200 * time.Millisecond)
	return nil
}

func buildCommand(action string, args []string) (daemoncmd.Command, error) {
	id := uuid.NewString()
	base := daemoncmd.BaseCommand{ID: id, Action: action}

	switch action {
	case "open", "goto", "navigate":
		if len(args) < 1 {
			return nil, fmt.Errorf("%s requires a URL", action)
		}
		base.Action = "navigate"
		return &daemoncmd.NavigateCommand{BaseCommand: base, URL: args[0]}, nil

	case "click":
		if len(args) < 1 {
			return nil, fmt.Errorf("click requires a selector")
		}
		return &daemoncmd.ClickCommand{BaseCommand: base, Selector: args[0]}, nil

	case "fill":
		if len(args) < 2 {
			return nil, fmt.Errorf("fill requires a selector and value")
		}
		return &daemoncmd.FillCommand{BaseCommand: base, Selector: args[0], Value: args[1]}, nil

	case "hover":
		if len(args) < 1 {
			return nil, fmt.Errorf("hover requires a selector")
		}
		return &daemoncmd.HoverCommand{BaseCommand: base, Selector: args[0]}, nil

	case "press":
		if len(args) < 1 {
			return nil, fmt.Errorf("press requires a key")
		}
		var selector string
		if len(args) > 1 {
			selector = args[1]
		}
		return &daemoncmd.PressCommand{BaseCommand: base, Key: args[0], Selector: selector}, nil

	case "scroll":
		direction, amount := "down", 600
		if len(args) > 0 {
			direction = args[0]
		}
		if len(args) > 1 {
			if n, err := strconv.Atoi(args[1]); err == nil {
				amount = n
			}
		}
		return &daemoncmd.ScrollCommand{BaseCommand: base, Direction: direction, Amount: amount}, nil

	case "snapshot":
		return &daemoncmd.SnapshotCommand{BaseCommand: base}, nil

	case "eval":
		if len(args) < 1 {
			return nil, fmt.Errorf("eval requires a script")
		}
		base.Action = "evaluate"
		return &daemoncmd.EvaluateCommand{BaseCommand: base, Script: args[0]}, nil

	case "get":
		if len(args) < 1 {
			return nil, fmt.Errorf("get requires a subcommand (text, title, url)")
		}
		switch args[0] {
		case "text":
			if len(args) < 2 {
				return nil, fmt.Errorf("get text requires a selector")
			}
			base.Action = "gettext"
			return &daemoncmd.GetTextCommand{BaseCommand: base, Selector: args[1]}, nil
		case "title":
			base.Action = "title"
			return &daemoncmd.TitleCommand{BaseCommand: base}, nil
		case "url":
			base.Action = "url"
			return &daemoncmd.URLCommand{BaseCommand: base}, nil
		default:
			return nil, fmt.Errorf("unknown get subcommand: %s", args[0])
		}

	case "back":
		return &daemoncmd.BackCommand{BaseCommand: base}, nil
	case "forward":
		return &daemoncmd.ForwardCommand{BaseCommand: base}, nil
	case "reload":
		return &daemoncmd.ReloadCommand{BaseCommand: base}, nil
	case "close", "quit", "exit":
		base.Action = "close"
		return &daemoncmd.CloseCommand{BaseCommand: base}, nil

	default:
		return nil, fmt.Errorf("unknown action: %s", action)
	}
}

func printCtlResponse(resp daemoncmd.Response) {
	if !resp.Success {
		fmt.Println("Error:", resp.Error)
		return
	}
	if len(resp.Data) == 0 || string(resp.Data) == "null" {
		fmt.Println("OK")
		return
	}
	var data map[string]any
	if err := json.Unmarshal(resp.Data, &data); err == nil {
		for _, key := range []string{"outline", "snapshot", "text", "html", "value", "url", "title"} {
			if v, ok := data[key]; ok {
				fmt.Println(v)
				return
			}
		}
	}
	fmt.Println(string(resp.Data))
}
