package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crucible/internal/app"
)

type universeOptions struct {
	Roots []string
	Repo  string
	Store string
	Tests bool
}

func newUniverseCommand() *cobra.Command {
	opts := universeOptions{}
	cmd := &cobra.Command{
		Use:   "universe",
		Short: "Print the possible dependency universe for root specs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runUniverse(cmd.Context(), cmd, opts)
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

func runUniverse(ctx context.Context, cmd *cobra.Command, opts universeOptions) error {
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
	graph := result.Input.Graph
	for _, name := range graph.SortedReals() {
		targets := graph.EdgesFrom(name)
		if len(targets) == 0 {
			fmt.Printf("%s\n", name)
			continue
		}
		fmt.Printf("%s -> %s\n", name, strings.Join(targets, " "))
	}
	for _, name := range graph.SortedVirtuals() {
		fmt.Printf("virtual %s\n", name)
	}
	return nil
}

func resolveString(cmd *cobra.Command, value string, key string, flagName string) string {
	if cmd == nil {
		if value != "" {
			return value
		}
		return viper.GetString(key)
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetString(key)
}

func resolveStrings(cmd *cobra.Command, values []string, key string, flagName string) []string {
	if cmd == nil {
		if len(values) > 0 {
			return values
		}
		return viper.GetStringSlice(key)
	}
	if flagChanged(cmd, flagName) {
		return values
	}
	return viper.GetStringSlice(key)
}

func resolveBool(cmd *cobra.Command, value bool, key string, flagName string) bool {
	if cmd == nil {
		return value
	}
	if flagChanged(cmd, flagName) {
		return value
	}
	return viper.GetBool(key)
}

func flagChanged(cmd *cobra.Command, name string) bool {
	if cmd == nil || strings.TrimSpace(name) == "" {
		return false
	}
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag.Changed
	}
	return false
}
