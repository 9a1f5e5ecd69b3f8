package cmd

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/agentic-research/protocli/api"
	"github.com/agentic-research/protocli/internal/console"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X .../cmd.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "protocli",
		Short: "protocli: compile a tree of *.proto files with protoc",
		Long: `protocli walks a directory, finds every *.proto file and runs protoc on
each of them, mirroring the directory layout in the output folder.`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return api.Errorf(api.KindArgument, "Please select a valid option")
		},
	}
	root.AddCommand(newBuildCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the protocli version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("protocli " + version)
		},
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, os.Args[1:], os.Stdout)
}

func run(ctx context.Context, args []string, out io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(out)

	err := root.ExecuteContext(ctx)
	if err != nil && !reported(err) {
		console.New(out).Error(err)
	}
	return api.ExitCode(err)
}

// reported reports whether err is a build verdict the console already printed.
func reported(err error) bool {
	var e *api.Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == api.KindNoInput || e.Kind == api.KindInvocation
}
