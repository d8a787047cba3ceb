package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/lazypower/lumine/internal/review"
	"github.com/lazypower/lumine/internal/srs"
	"github.com/lazypower/lumine/internal/store"
)

var (
	studyUser    string
	dueLimit     int
	responseTime time.Duration
)

var (
	bold  = color.New(color.Bold)
	faint = color.New(color.Faint)
	green = color.New(color.FgGreen)
	red   = color.New(color.FgRed)
	amber = color.New(color.FgYellow)
)

var dueCmd = &cobra.Command{
	Use:   "due",
	Short: "List notes due for review, most overdue first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReviews(cmd, func(ctx context.Context, svc *review.Service) error {
			notes, err := svc.Due(ctx, studyUser, dueLimit)
			if err != nil {
				return err
			}
			printDue(cmd.OutOrStdout(), notes, time.Now())
			return nil
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show review statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withReviews(cmd, func(ctx context.Context, svc *review.Service) error {
			st, err := svc.Stats(ctx, studyUser)
			if err != nil {
				return err
			}
			printStats(cmd.OutOrStdout(), st)
			return nil
		})
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review <note-id> <quality>",
	Short: "Grade a note from 0 (blackout) to 5 (perfect recall)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		quality, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("quality must be a number from 0 to 5: %w", err)
		}
		return withReviews(cmd, func(ctx context.Context, svc *review.Service) error {
			res, err := svc.Submit(ctx, studyUser, review.Request{
				NoteID:         args[0],
				Quality:        quality,
				ResponseTimeMs: responseTime.Milliseconds(),
			})
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res, time.Now())
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{dueCmd, statsCmd, reviewCmd} {
		c.Flags().StringVar(&studyUser, "user", "", "user id")
		c.MarkFlagRequired("user")
	}
	dueCmd.Flags().IntVar(&dueLimit, "limit", 0, "show at most this many notes")
	reviewCmd.Flags().DurationVar(&responseTime, "time", 0, "how long recall took")
}

func withReviews(cmd *cobra.Command, fn func(context.Context, *review.Service) error) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()
	svc, err := newReviewService(db)
	if err != nil {
		return err
	}
	return fn(cmd.Context(), svc)
}

func printDue(w io.Writer, notes []store.Note, now time.Time) {
	if len(notes) == 0 {
		green.Fprintln(w, "Nothing due. Come back later.")
		return
	}
	bold.Fprintf(w, "%d %s due\n", len(notes), plural(len(notes), "note", "notes"))
	for _, n := range notes {
		due := *n.SR.NextReviewAt
		when := humanize.RelTime(due, now, "overdue", "from now")
		if now.Sub(due) < time.Minute {
			when = "due now"
		}
		fmt.Fprintf(w, "  %s  %s  ", faint.Sprint(n.ID), n.Title)
		if now.Sub(due) > 24*time.Hour {
			red.Fprintln(w, when)
		} else {
			amber.Fprintln(w, when)
		}
	}
}

func printStats(w io.Writer, st srs.Stats) {
	bold.Fprintln(w, "Review statistics")
	fmt.Fprintf(w, "  due today      %s\n", humanize.Comma(int64(st.DueToday)))
	fmt.Fprintf(w, "  reviewed today %s\n", humanize.Comma(int64(st.ReviewsToday)))
	fmt.Fprintf(w, "  streak         %d %s\n", st.Streak, plural(st.Streak, "day", "days"))
	fmt.Fprintf(w, "  scheduled      %s\n", humanize.Comma(int64(st.TotalEnabled)))
	fmt.Fprintf(w, "  total reviews  %s\n", humanize.Comma(int64(st.TotalReviews)))
	if !st.HasAccuracy {
		faint.Fprintln(w, "  accuracy       no reviews yet")
		return
	}
	acc := green
	if st.Accuracy < 70 {
		acc = red
	}
	fmt.Fprintf(w, "  accuracy       %s\n", acc.Sprintf("%s%%", humanize.FtoaWithDigits(st.Accuracy, 1)))
	fmt.Fprintf(w, "  avg response   %s\n", time.Duration(st.AverageResponseTime*float64(time.Millisecond)).Round(100*time.Millisecond))
}

func printResult(w io.Writer, res *review.Result, now time.Time) {
	n := res.Note
	if res.Duplicate {
		amber.Fprintln(w, "Already recorded; showing the earlier result.")
	}
	passed := res.Event.Quality >= srs.PassThreshold
	if passed {
		green.Fprintf(w, "✓ %s\n", n.Title)
	} else {
		red.Fprintf(w, "✗ %s\n", n.Title)
	}
	fmt.Fprintf(w, "  next review  %s (%s)\n",
		humanize.RelTime(*n.SR.NextReviewAt, now, "ago", "from now"),
		n.SR.NextReviewAt.Format("Mon Jan 2"))
	fmt.Fprintf(w, "  interval     %d %s\n", n.SR.IntervalDays, plural(n.SR.IntervalDays, "day", "days"))
	fmt.Fprintf(w, "  ease         %.2f (difficulty %d/5)\n", n.SR.EaseFactor, res.DifficultyLabel)
	fmt.Fprintf(w, "  streak       %d %s\n", res.Streak.Count, plural(res.Streak.Count, "day", "days"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
