package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"k8s.io/utils/clock"

	"docstatus/internal/checker/handler"
	"docstatus/internal/checker/models"
	"docstatus/internal/checker/service"
	"docstatus/internal/checker/waiter"
	"docstatus/internal/platform/config"
)

func checkCmd(load loader) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "check <document>",
		Short: "Look up a single document",
		Long: `Look up a single document and print its status.

` + handler.UsageExamples,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			return runCheck(cmd.Context(), cfg, log, strings.Join(args, " "), timeout, cmd.OutOrStdout(), clock.RealClock{})
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall time to wait for the result")
	return cmd
}

func runCheck(ctx context.Context, cfg config.Config, log *slog.Logger, input string, timeout time.Duration, out io.Writer, clk clock.WithTickerAndDelayedExecution, opts ...service.Option) error {
	ref, ok := models.ParseDocumentID(input)
	if !ok {
		return fmt.Errorf("document %q was not recognized. %s", input, handler.UsageExamples)
	}

	waiters := waiter.New(log)
	reqID := models.RequestID(uuid.NewString())
	results, cancel, err := waiters.Register(reqID)
	if err != nil {
		return err
	}
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	opts = append([]service.Option{service.WithLogger(log), service.WithClock(clk)}, opts...)
	svc, err := service.New(ctx, serviceConfig(cfg), waiters, opts...)
	if err != nil {
		return fmt.Errorf("start checker: %w", err)
	}
	defer func() {
		if err := svc.Dispose(context.WithoutCancel(ctx)); err != nil {
			log.Warn("dispose checker", "error", err)
		}
	}()

	svc.Query(ctx, reqID, ref)

	select {
	case res := <-results:
		if res.Err != nil {
			return errors.New(handler.DescribeError(res.Err, cfg.Checker.TargetURL))
		}
		_, err := fmt.Fprintln(out, handler.Summary(clk.Now(), res.Status))
		return err
	case <-ctx.Done():
		return errors.New(handler.DescribeError(models.NewQueryError(models.ErrorTimeout, ctx.Err().Error()), cfg.Checker.TargetURL))
	}
}
