package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"crucible/internal/app"
)

type expandOptions struct {
	File        string
	List        string
	Constraints bool
}

func newExpandCommand() *cobra.Command {
	opts := expandOptions{}
	cmd := &cobra.Command{
		Use:   "expand",
		Short: "Expand a named spec list into concrete specs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runExpand(cmd.Context(), cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.File, "file", "", "Spec list document path")
	cmd.Flags().StringVar(&opts.List, "list", "", "Spec list name")
	cmd.Flags().BoolVar(&opts.Constraints, "constraints", false, "Print conjunctive constraint groups instead of specs")
	_ = viper.BindPFlag("file", cmd.Flags().Lookup("file"))
	_ = viper.BindPFlag("list", cmd.Flags().Lookup("list"))
	_ = viper.BindPFlag("constraints", cmd.Flags().Lookup("constraints"))
	return cmd
}

func runExpand(ctx context.Context, cmd *cobra.Command, opts expandOptions) error {
	service := newAppService()
	result, err := service.Expand(ctx, app.ExpandRequest{
		SpecListPath: resolveString(cmd, opts.File, "file", "file"),
		ListName:     resolveString(cmd, opts.List, "list", "list"),
	})
	if err != nil {
		return err
	}
	if resolveBool(cmd, opts.Constraints, "constraints", "constraints") {
		for _, group := range result.Constraints {
			parts := make([]string, 0, len(group))
			for _, spec := range group {
				parts = append(parts, spec.String())
			}
			fmt.Println(strings.Join(parts, " "))
		}
		return nil
	}
	for _, spec := range result.Specs {
		fmt.Println(spec.String())
	}
	return nil
}
