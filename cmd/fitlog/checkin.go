package main

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/fitlog/internal/http"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

func newCheckinCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Add, list and remove check-ins",
	}
	cmd.AddCommand(newCheckinAddCmd(opts), newCheckinListCmd(opts), newCheckinRmCmd(opts))
	return cmd
}

func newCheckinAddCmd(opts *options) *cobra.Command {
	var req httpapi.CreateCheckinRequest
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Log a workout",
		Long: `Log a workout for a day.

Examples:
  # 30 minutes of running today
  fitlog checkin add --type 跑步 --duration 30

  # Yoga on a given day with a note
  fitlog checkin add --date 2024-03-15 --type 瑜伽 --duration 45 --note "morning"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Date == "" {
				req.Date = model.DateOf(time.Now()).String()
			}
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			var resp httpapi.CheckinResponse
			if _, err := c.do(http.MethodPost, "/api/checkins", req, &resp, true); err != nil {
				return err
			}
			cmd.Printf("Logged %s %s, %d min (id %s)\n", resp.Checkin.Date, resp.Checkin.ExerciseType, resp.Checkin.Duration, resp.Checkin.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Date, "date", "", "day as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&req.ExerciseType, "type", "", "exercise type")
	cmd.Flags().IntVar(&req.Duration, "duration", 0, "duration in minutes")
	cmd.Flags().StringVar(&req.Note, "note", "", "optional note")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("duration")
	return cmd
}

// monthQuery builds ?year&month, leaving either out when zero so the server
// picks the current month.
func monthQuery(year, month int) string {
	q := url.Values{}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	if month != 0 {
		q.Set("month", strconv.Itoa(month))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func newCheckinListCmd(opts *options) *cobra.Command {
	var (
		year, month int
		date        string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List check-ins for a month or a day",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			path := "/api/checkins" + monthQuery(year, month)
			if date != "" {
				path = "/api/checkins?" + url.Values{"date": {date}}.Encode()
			}

			var resp httpapi.CheckinsResponse
			if _, err := c.do(http.MethodGet, path, nil, &resp, true); err != nil {
				return err
			}
			if len(resp.Checkins) == 0 {
				cmd.Println("No check-ins")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DATE\tTYPE\tMIN\tNOTE\tID")
			for _, r := range resp.Checkins {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", r.Date, r.ExerciseType, r.Duration, r.Note, r.ID)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	cmd.Flags().StringVar(&date, "date", "", "list a single day (YYYY-MM-DD)")
	cmd.MarkFlagsMutuallyExclusive("date", "year")
	cmd.MarkFlagsMutuallyExclusive("date", "month")
	return cmd
}

func newCheckinRmCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a check-in",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			if _, err := c.do(http.MethodDelete, "/api/checkins/"+url.PathEscape(args[0]), nil, nil, true); err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}
