package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crucible/internal/app"
)

type solveOptions struct {
	Roots []string
	Repo  string
	Store string
	Tests bool
}

func newSolveCommand() *cobra.Command {
	opts := solveOptions{}
	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Select one version per required package",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSolve(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.Roots, "root", nil, "Root spec (repeatable)")
	cmd.Flags().StringVar(&opts.Repo, "repo", "", "Package repository path")
	cmd.Flags().StringVar(&opts.Store, "store", "", "Install store snapshot path")
	cmd.Flags().BoolVar(&opts.Tests, "tests", false, "Include test dependencies")
	_ = viper.BindPFlag("roots", cmd.Flags().Lookup("root"))
	_ = viper.BindPFlag("repo", cmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("store", cmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("tests", cmd.Flags().Lookup("tests"))
	return cmd
}

func runSolve(ctx context.Context, cmd *cobra.Command, opts solveOptions) error {
	service := newAppService()
	result, err := service.Solve(ctx, app.SolveRequest{
		SetupRequest: app.SetupRequest{
			Roots:     resolveStrings(cmd, opts.Roots, "roots", "root"),
			RepoPath:  resolveString(cmd, opts.Repo, "repo", "repo"),
			StorePath: resolveString(cmd, opts.Store, "store", "store"),
			Tests:     resolveBool(cmd, opts.Tests, "tests", "tests"),
		},
	})
	if err != nil {
		return err
	}
	names := make([]string, 0, len(result.Selected))
	for name := range result.Selected {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s@%s\n", name, result.Selected[name])
	}
	return nil
}
