package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/strayline/corral/internal/errs"
	"github.com/strayline/corral/internal/mcp"
	"github.com/strayline/corral/internal/present"
)

func newToolsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List tools discovered across the configured MCP servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if rt.cfgErr != nil {
				return rt.cfgErr
			}
			drainStdin()

			manager, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer manager.Disconnect()

			tools := manager.Tools()
			if len(tools) == 0 {
				fmt.Println("No tools available.")
				return nil
			}
			for _, tool := range tools {
				_, _ = fmt.Fprint(os.Stdout, present.StdoutStyles().Timeago.Render(tool.Server+" > "))
				_, _ = fmt.Fprintln(os.Stdout, tool.Name)
				if tool.Description != "" {
					_, _ = fmt.Fprintln(os.Stdout, "  "+present.StdoutStyles().Comment.Render(tool.Description))
				}
			}
			return nil
		},
	}
}

// connect opens tool server connections for a one-off command.
func (rt *runtime) connect(ctx context.Context) (*mcp.Manager, error) {
	cfg := &rt.cfg
	manager := mcp.NewManager(cfg.Servers, mcp.Options{
		ConnectTimeout: cfg.ConnectTimeout.Std(),
		HealthTimeout:  cfg.HealthTimeout.Std(),
		CallTimeout:    cfg.CallTimeout.Std(),
		Logger:         newLogger(cfg),
	})
	if err := manager.Initialize(ctx); err != nil {
		return nil, errs.Error{Err: err, Reason: "Could not connect to any tool server."}
	}
	return manager, nil
}
