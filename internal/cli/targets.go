package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crucible/internal/app"
)

type targetsOptions struct {
	Repo string
}

func newTargetsCommand() *cobra.Command {
	opts := targetsOptions{}
	cmd := &cobra.Command{
		Use:   "targets",
		Short: "Print candidate microarchitecture targets for the host",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTargets(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Repo, "repo", "", "Package repository path")
	_ = viper.BindPFlag("repo", cmd.Flags().Lookup("repo"))
	return cmd
}

func runTargets(ctx context.Context, cmd *cobra.Command, opts targetsOptions) error {
	service := newAppService()
	result, err := service.Targets(ctx, app.TargetsRequest{
		RepoPath: resolveString(cmd, opts.Repo, "repo", "repo"),
	})
	if err != nil {
		return err
	}
	for _, target := range result.Targets {
		fmt.Println(target)
	}
	return nil
}
