package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"examslots/pkg/countdown"
	"examslots/pkg/model"

	"github.com/spf13/cobra"
)

type slotFlags struct {
	examiner    string
	bookingTime string
}

func (f *slotFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.examiner, "examiner", "", "examiner profile id")
	cmd.Flags().StringVar(&f.bookingTime, "time", "", "booking time, RFC 3339")
	_ = cmd.MarkFlagRequired("examiner")
	_ = cmd.MarkFlagRequired("time")
}

func reserveCmd(opts *options) *cobra.Command {
	var (
		slot        slotFlags
		examination string
		claimant    string
		watch       bool
	)

	cmd := &cobra.Command{
		Use:   "reserve",
		Short: "Hold a slot for an examination",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := opts.client().Reserve(cmd.Context(), model.ReserveSlotRequest{
				ExaminerProfileID: slot.examiner,
				BookingTime:       slot.bookingTime,
				ExaminationID:     examination,
				ClaimantID:        claimant,
			})
			if err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("%s (%s)", out.Message, out.Reason)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s, expires at %s\n", out.Message, formatUnix(*out.ExpiresAt))
			if !watch {
				return nil
			}
			return runCountdown(cmd.Context(), w, *out.ExpiresAt, countdown.DefaultTickInterval)
		},
	}

	slot.register(cmd)
	cmd.Flags().StringVar(&examination, "examination", "", "examination id")
	cmd.Flags().StringVar(&claimant, "claimant", "", "claimant id")
	cmd.Flags().BoolVar(&watch, "watch", false, "count down the reservation after it is made")
	_ = cmd.MarkFlagRequired("examination")
	_ = cmd.MarkFlagRequired("claimant")
	return cmd
}

func releaseCmd(opts *options) *cobra.Command {
	var (
		slot        slotFlags
		examination string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release a slot held by an examination",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := opts.client().Release(cmd.Context(), model.ReleaseSlotRequest{
				ExaminerProfileID: slot.examiner,
				BookingTime:       slot.bookingTime,
				ExaminationID:     examination,
			})
			if err != nil {
				return err
			}
			if !out.Success {
				return fmt.Errorf("%s (%s)", out.Message, out.Reason)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}

	slot.register(cmd)
	cmd.Flags().StringVar(&examination, "examination", "", "examination id")
	_ = cmd.MarkFlagRequired("examination")
	return cmd
}

func checkCmd(opts *options) *cobra.Command {
	var slot slotFlags

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show the live reservation on a slot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := opts.client().Check(cmd.Context(), slot.examiner, slot.bookingTime)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if res == nil {
				fmt.Fprintln(w, "free")
				return nil
			}
			fmt.Fprintf(w, "held by examination %s (claimant %s) until %s\n",
				res.ExaminationID, res.ClaimantID, formatUnix(res.ExpiresAt))
			return nil
		},
	}

	slot.register(cmd)
	return cmd
}

func availabilityCmd(opts *options) *cobra.Command {
	var slot slotFlags

	cmd := &cobra.Command{
		Use:   "availability",
		Short: "Ask whether a slot can be reserved",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := opts.client().Availability(cmd.Context(), slot.examiner, slot.bookingTime)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out.Available {
				fmt.Fprintln(w, "available")
				return nil
			}
			fmt.Fprintf(w, "reserved by examination %s", out.ReservedBy)
			if out.ExpiresAt != nil {
				fmt.Fprintf(w, " until %s", formatUnix(*out.ExpiresAt))
			}
			fmt.Fprintln(w)
			return nil
		},
	}

	slot.register(cmd)
	return cmd
}

func reservedCmd(opts *options) *cobra.Command {
	var (
		examiner string
		exclude  string
	)

	cmd := &cobra.Command{
		Use:   "reserved",
		Short: "List an examiner's reserved booking times",
		RunE: func(cmd *cobra.Command, _ []string) error {
			times, err := opts.client().ReservedSlots(cmd.Context(), examiner, exclude)
			if err != nil {
				return err
			}
			for _, t := range times {
				fmt.Fprintln(cmd.OutOrStdout(), t)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&examiner, "examiner", "", "examiner profile id")
	cmd.Flags().StringVar(&exclude, "exclude-examination", "", "leave out slots held by this examination")
	_ = cmd.MarkFlagRequired("examiner")
	return cmd
}

func watchCmd() *cobra.Command {
	var (
		expiresAt int64
		interval  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Count down to a reservation expiry given in unix seconds",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCountdown(cmd.Context(), cmd.OutOrStdout(), expiresAt, interval)
		},
	}

	cmd.Flags().Int64Var(&expiresAt, "expires-at", 0, "reservation expiry, unix seconds")
	cmd.Flags().DurationVar(&interval, "tick", countdown.DefaultTickInterval, "tick interval")
	_ = cmd.MarkFlagRequired("expires-at")
	return cmd
}

// runCountdown ticks the timer and prints the remaining time until expiry
// or interrupt. Status changes are announced by the timer callbacks.
func runCountdown(ctx context.Context, w io.Writer, expiresAt int64, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timer := countdown.NewFromUnix(expiresAt,
		countdown.OnWarning(func() { fmt.Fprintln(w, "warning: two minutes left") }),
		countdown.OnCritical(func() { fmt.Fprintln(w, "critical: one minute left") }),
		countdown.OnExpire(func() { fmt.Fprintln(w, "reservation expired") }),
	)

	if interval <= 0 {
		interval = countdown.DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !timer.IsExpired() {
		select {
		case <-ctx.Done():
			fmt.Fprintf(w, "stopped with %s left\n", timer.FormattedTime())
			return nil
		case <-ticker.C:
			timer.Tick()
			fmt.Fprintf(w, "%s  %-8s %5.1f%%\n", timer.FormattedTime(), timer.Status(), timer.Progress())
		}
	}
	return nil
}

func formatUnix(sec int64) string {
	return time.Unix(sec, 0).UTC().Format(time.RFC3339)
}
