package cmd

import (
	"os"
	"path/filepath"

	"github.com/agentic-research/protocli/api"
	"github.com/agentic-research/protocli/internal/config"
	"github.com/agentic-research/protocli/internal/console"
	"github.com/agentic-research/protocli/internal/orchestrator"
	"github.com/agentic-research/protocli/internal/platform"
	"github.com/spf13/cobra"
)

const buildExample = `  protocli build
  protocli build --output=gen --lang=go --format_go=true ./protos
  protocli build --namespace=Acme.Api --file_extension=.g.cs --output=gen C:/src/protos
  protocli build '--namespace="Acme Api"' --output=gen ./protos`

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [--key=value ...] [directory]",
		Short: "Compile every *.proto file below a directory",
		Long: `Compile every *.proto file below directory (default: the current directory).
Options use the form --key=value; only the last argument may be a bare path.
A value containing spaces must keep its double quotes inside the token, so
quote the whole token for the shell: '--namespace="Acme Api"'.

--namespace switches the output to PascalCase folders (my_thing -> MyThing).
Without --output the PascalCase folders are created inside the source tree,
next to the original ones; pass --output or --layout=mirror to avoid that.

Options may also be set in protocli.hcl or protocli.yaml in the target directory.`,
		Example: buildExample,
		// Tokens are validated by config.ParseBuildArgs so that malformed
		// input is rejected before anything touches the disk.
		DisableFlagParsing: true,
		RunE:               runBuild,
	}
	config.RegisterFlags(cmd.Flags())
	return cmd
}

func runBuild(cmd *cobra.Command, tokens []string) error {
	if config.IsHelp(tokens) {
		return cmd.Help()
	}

	rootArg, err := config.ParseBuildArgs(cmd.Flags(), tokens)
	if err != nil {
		return api.Wrap(api.KindArgument, err, "invalid arguments (see --help)")
	}

	root, err := workingRoot(rootArg)
	if err != nil {
		return err
	}

	cfgPath, _ := cmd.Flags().GetString(config.KeyConfig)
	file, err := config.LoadFile(cfgPath, root)
	if err != nil {
		return api.Wrap(api.KindEnvironment, err, "load config")
	}
	opts, err := config.Resolve(cmd.Flags(), file)
	if err != nil {
		return api.Wrap(api.KindArgument, err, "invalid arguments (see --help)")
	}

	compiler, err := platform.ResolveCompiler(opts.Compiler)
	if err != nil {
		return api.Wrap(api.KindEnvironment, err, "locate protoc")
	}

	con := console.New(cmd.OutOrStdout())
	o := &orchestrator.Orchestrator{Compiler: compiler, Progress: con.Progress}
	res, err := o.RunBuild(cmd.Context(), root, opts)
	if res.Root != "" {
		con.Outcome(res)
	}
	if err != nil {
		return err
	}
	return res.Err()
}

// workingRoot resolves the directory argument, defaulting to the current
// directory. It must name an existing directory.
func workingRoot(arg string) (string, error) {
	if arg == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", api.Wrap(api.KindEnvironment, err, "current directory")
		}
		return wd, nil
	}
	abs, err := filepath.Abs(filepath.FromSlash(arg))
	if err != nil {
		return "", api.Wrap(api.KindEnvironment, err, "directory not found")
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", api.Errorf(api.KindEnvironment, "directory not found: %s", arg)
	}
	return abs, nil
}
