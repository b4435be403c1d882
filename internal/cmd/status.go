package cmd

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	timeago "github.com/caarlos0/timea.go"
	"github.com/spf13/cobra"

	"github.com/strayline/corral/internal/errs"
	"github.com/strayline/corral/internal/mcp"
	"github.com/strayline/corral/internal/present"
)

func newStatusCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the health of the configured MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			drainStdin()

			cfg := &rt.cfg
			if len(cfg.Servers) == 0 {
				fmt.Println("No servers configured.")
				return nil
			}

			manager := mcp.NewManager(cfg.Servers, mcp.Options{
				ConnectTimeout: cfg.ConnectTimeout.Std(),
				HealthTimeout:  cfg.HealthTimeout.Std(),
				CallTimeout:    cfg.CallTimeout.Std(),
				Logger:         newLogger(cfg),
			})
			// A total wipeout still has statuses worth showing.
			if err := manager.Initialize(cmd.Context()); err != nil && !errors.Is(err, mcp.ErrNoServers) {
				return errs.Error{Err: err, Reason: "Could not reach the tool servers."}
			}
			defer manager.Disconnect()

			statuses := manager.Status(cmd.Context())
			styles := present.StdoutStyles()
			for _, name := range slices.Sorted(maps.Keys(statuses)) {
				s := statuses[name]
				mark := styles.Unhealthy.Render("●")
				detail := "disconnected"
				if s.Connected {
					mark = styles.Healthy.Render("●")
					detail = fmt.Sprintf("%d tools", s.ToolCount)
				}
				line := fmt.Sprintf("%s %s  %s", mark, styles.AppName.Render(name), detail)
				if !s.LastCheck.IsZero() {
					line += styles.Timeago.Render("  checked " + timeago.Of(s.LastCheck))
				}
				if s.ErrorCount > 0 {
					line += styles.Unhealthy.Render(fmt.Sprintf("  %d errors", s.ErrorCount))
				}
				fmt.Println(line)
			}
			return nil
		},
	}
}
