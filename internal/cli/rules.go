package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crucible/internal/app"
)

type rulesOptions struct {
	Repo    string
	Package string
}

func newRulesCommand() *cobra.Command {
	opts := rulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print normalized requirement rules for a package or virtual",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRules(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Repo, "repo", "", "Package repository path")
	cmd.Flags().StringVar(&opts.Package, "package", "", "Package or virtual name")
	_ = viper.BindPFlag("repo", cmd.Flags().Lookup("repo"))
	_ = viper.BindPFlag("package", cmd.Flags().Lookup("package"))
	return cmd
}

func runRules(ctx context.Context, cmd *cobra.Command, opts rulesOptions) error {
	service := newAppService()
	result, err := service.Rules(ctx, app.RulesRequest{
		RepoPath: resolveString(cmd, opts.Repo, "repo", "repo"),
		PkgName:  resolveString(cmd, opts.Package, "package", "package"),
	})
	if err != nil {
		return err
	}
	for _, rule := range result.Rules {
		members := make([]string, 0, len(rule.Requirements))
		for _, member := range rule.Requirements {
			rendered := member.String()
			if rendered == "" {
				rendered = "@:"
			}
			members = append(members, rendered)
		}
		line := fmt.Sprintf("%s %s/%s: %s", rule.PkgName, rule.Kind, rule.Policy, strings.Join(members, " | "))
		if !rule.Condition.IsEmpty() {
			line += " when " + rule.Condition.String()
		}
		if rule.Message != "" {
			line += " (" + rule.Message + ")"
		}
		fmt.Println(line)
	}
	return nil
}
