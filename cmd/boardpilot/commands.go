package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"boardpilot/internal/executor"
	"boardpilot/internal/interpret"
	"boardpilot/internal/types"
)

var (
	// run flags
	runYes           bool
	runDryRun        bool
	runTransactional bool

	// batch flags
	batchTargets []string
	batchToken   string

	// token flags
	tokenTargets []string
)

var interpretCmd = &cobra.Command{
	Use:   "interpret <instruction>",
	Short: "Interpret an instruction without executing anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		snap, err := p.gather(ctx)
		if err != nil {
			return err
		}

		interps := p.interpreter.DetectMultiple(ctx, args[0], snap)
		for _, in := range interps {
			if err := printJSON(struct {
				*types.Interpretation
				Gate interpret.Action `json:"gate"`
			}{in, interpret.Gate(in.Confidence)}); err != nil {
				return err
			}
		}
		return nil
	},
}

var runCmd = &cobra.Command{
	Use:   "run <instruction>",
	Short: "Interpret, validate, and execute an instruction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		snap, err := p.gather(ctx)
		if err != nil {
			return err
		}

		interps := p.interpreter.DetectMultiple(ctx, args[0], snap)
		var ops []*types.ApiOperation

		for _, in := range interps {
			switch gate := interpret.Gate(in.Confidence); gate {
			case interpret.ActionReject:
				return fmt.Errorf("could not understand %q (confidence %d); please rephrase", in.SourceText, in.Confidence)
			case interpret.ActionClarify:
				fmt.Printf("Need more detail for %q:\n", in.SourceText)
				for _, q := range in.ClarifyingQuestions {
					fmt.Printf("  - %s\n", q)
				}
				return fmt.Errorf("instruction too ambiguous to run (confidence %d)", in.Confidence)
			case interpret.ActionConfirm:
				if !runYes {
					_ = printJSON(in)
					return fmt.Errorf("confidence %d needs confirmation; re-run with --yes to proceed", in.Confidence)
				}
			case interpret.ActionAutoExecute:
			}

			op := p.mapper.Map(in, snap)
			result := p.validator.Validate(ctx, op, snap)
			for _, w := range result.Warnings {
				fmt.Printf("warning: %s\n", w.Message)
			}
			if !result.Valid {
				_ = printJSON(result)
				return fmt.Errorf("validation failed for %q", in.SourceText)
			}
			if !result.CanProceed() && !runYes {
				_ = printJSON(result)
				return fmt.Errorf("blocking warnings present; re-run with --yes to proceed")
			}
			ops = append(ops, op)
		}

		if runDryRun {
			fmt.Println("dry run; the following operations were validated but not executed:")
			return printJSON(ops)
		}

		seq := p.executor.ExecuteSequence(ctx, ops, executor.ExecContext{Snapshot: snap}, runTransactional)
		if err := printJSON(seq); err != nil {
			return err
		}
		if !seq.Succeeded() {
			return fmt.Errorf("execution failed")
		}
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch <instruction>",
	Short: "Apply one instruction to many target items in paced windows",
	Long: `Interprets the instruction once, builds the operation template, and
fans it out over the target items in fixed-size concurrent windows.

Destructive batches (bulk delete) need a confirmation token; compute it
with "boardpilot token" and pass it via --token.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(batchTargets) == 0 {
			return fmt.Errorf("at least one target is required (--targets)")
		}
		ctx := cmd.Context()
		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		snap, err := p.gather(ctx)
		if err != nil {
			return err
		}

		in := p.interpreter.Interpret(ctx, args[0], snap)
		if gate := interpret.Gate(in.Confidence); gate == interpret.ActionReject || gate == interpret.ActionClarify {
			return fmt.Errorf("could not understand %q well enough for a batch run (confidence %d)", args[0], in.Confidence)
		}

		// The template needs a placeholder target so mapping can complete;
		// the coordinator substitutes the real ID per target.
		if in.Parameters == nil {
			in.Parameters = map[string]any{}
		}
		if !types.HasParameter(in.Parameters, "itemId") {
			in.Parameters["itemId"] = batchTargets[0]
		}
		template := p.mapper.Map(in, snap)
		result := p.validator.Validate(ctx, template, snap)
		if !result.Valid {
			_ = printJSON(result)
			return fmt.Errorf("template validation failed")
		}

		report := p.batch.ExecuteBatch(ctx, batchTargets, template,
			executor.ExecContext{Snapshot: snap}, executor.BatchOptions{ConfirmToken: batchToken})
		if err := printJSON(report); err != nil {
			return err
		}
		if report.Failed > 0 {
			return fmt.Errorf("%d of %d targets failed", report.Failed, report.Total)
		}
		return nil
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Compute the confirmation token for a destructive batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(tokenTargets) == 0 {
			return fmt.Errorf("at least one target is required (--targets)")
		}
		fmt.Println(executor.ConfirmationToken(tokenTargets))
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the context snapshot cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show snapshot cache counters after a warm gather",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		// Gather twice: the second hit shows the cache working.
		if _, err := p.gather(ctx); err != nil {
			return err
		}
		if _, err := p.gather(ctx); err != nil {
			return err
		}
		return printJSON(p.assembler.CacheStats())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear [pattern]",
	Short: "Clear cached snapshots whose key contains the pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := buildPipeline(ctx)
		if err != nil {
			return err
		}
		if _, err := p.gather(ctx); err != nil {
			return err
		}
		pattern := ""
		if len(args) == 1 {
			pattern = args[0]
		}
		removed := p.assembler.ClearCache(pattern)
		fmt.Printf("removed %d cached snapshot(s)\n", removed)
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "proceed without interactive confirmation")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "stop after validation; execute nothing")
	runCmd.Flags().BoolVar(&runTransactional, "transactional", false, "roll back earlier steps if a later step fails")

	batchCmd.Flags().StringSliceVar(&batchTargets, "targets", nil, "comma-separated target item IDs")
	batchCmd.Flags().StringVar(&batchToken, "token", "", "confirmation token for destructive batches")

	tokenCmd.Flags().StringSliceVar(&tokenTargets, "targets", nil, "comma-separated target item IDs")

	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
