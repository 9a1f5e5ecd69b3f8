// Package report writes a JSON summary of a build run.
package report

import (
	"fmt"
	"os"
	"time"

	"github.com/agentic-research/protocli/api"
	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"
)

// Build converts res into a generic JSON tree.
func Build(res api.Result, opts api.BuildOptions) map[string]any {
	invocations := make([]any, 0, len(res.Invocations))
	for _, inv := range res.Invocations {
		args := make([]any, len(inv.Args))
		for i, a := range inv.Args {
			args[i] = a
		}
		entry := map[string]any{
			"seq":        int64(inv.Seq),
			"file":       inv.File,
			"output_dir": inv.OutputDir,
			"args":       args,
			"command":    inv.Command,
			"exit_code":  int64(inv.ExitCode),
			"timed_out":  inv.TimedOut,
			"succeeded":  inv.Succeeded(),
			"duration_s": inv.Duration.Seconds(),
		}
		if !inv.Succeeded() && len(inv.Output) > 0 {
			entry["output"] = string(inv.Output)
		}
		invocations = append(invocations, entry)
	}

	return map[string]any{
		"root":        res.Root,
		"output_root": opts.Output(res.Root),
		"lang":        opts.Lang(),
		"namespace":   opts.Namespace,
		"pascal":      opts.Pascal(),
		"outcome":     res.Outcome.String(),
		"started":     res.Started.UTC().Format(time.RFC3339Nano),
		"elapsed_s":   res.Elapsed.Seconds(),
		"files":       int64(len(res.Invocations)),
		"failed":      int64(len(res.Failed())),
		"formatted":   int64(res.Formatted),
		"invocations": invocations,
	}
}

// Marshal renders the report as indented JSON with sorted keys.
func Marshal(res api.Result, opts api.BuildOptions) string {
	return oj.JSON(Build(res, opts), &ojg.Options{Indent: 2, Sort: true})
}

// Write renders the report to path.
func Write(path string, res api.Result, opts api.BuildOptions) error {
	if err := os.WriteFile(path, []byte(Marshal(res, opts)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}
