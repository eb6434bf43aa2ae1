package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crucible/internal/app"
)

type duplicatesOptions struct {
	Roots []string
	Repo  string
	Store string
	Tests bool
}

func newDuplicatesCommand() *cobra.Command {
	opts := duplicatesOptions{}
	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Print per-package instance limits for root specs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDuplicates(cmd.Context(), cmd, opts)
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

func runDuplicates(ctx context.Context, cmd *cobra.Command, opts duplicatesOptions) error {
	service := newAppService()
	result, err := service.Setup(ctx, app.SetupRequest{
		Roots:     resolveStrings(cmd, opts.Roots, "roots", "root"),
		RepoPath:  resolveString(cmd, opts.Repo, "repo", "repo"),
		StorePath: resolveString(cmd, opts.Store, "store", "store"),
		Tests:     resolveBool(cmd, opts.Tests, "tests", "tests"),
	})
	if err != nil {
		return err
	}
	input := result.Input
	names := make([]string, 0, len(input.MaxDupes))
	for name := range input.MaxDupes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		line := fmt.Sprintf("%s max=%d", name, input.MaxDupes[name])
		if _, ok := input.LinkRun[name]; ok {
			line += " link-run"
		}
		if _, ok := input.MultipleUnificationSets[name]; ok {
			line += " multiple-unification"
		}
		fmt.Println(line)
	}
	return nil
}
