package main

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/fitlog/internal/http"
	"github.com/fyrsmithlabs/fitlog/internal/progress"
)

const barWidth = 20

// calendarStyles holds the styles for one output. Colors degrade to plain
// text when the writer is not a terminal.
type calendarStyles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	checked lipgloss.Style
	today   lipgloss.Style
}

func newCalendarStyles(w io.Writer) calendarStyles {
	r := lipgloss.NewRenderer(w)
	return calendarStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("51")),
		header:  r.NewStyle().Foreground(lipgloss.Color("245")),
		checked: r.NewStyle().Foreground(lipgloss.Color("46")),
		today:   r.NewStyle().Bold(true).Underline(true),
	}
}

func newCalendarCmd(opts *options) *cobra.Command {
	var year, month int
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show the month calendar with progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			var cal httpapi.CalendarResponse
			if _, err := c.do(http.MethodGet, "/api/calendar"+monthQuery(year, month), nil, &cal, true); err != nil {
				return err
			}
			renderCalendar(cmd.OutOrStdout(), &cal)
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "year (default current)")
	cmd.Flags().IntVar(&month, "month", 0, "month 1-12 (default current)")
	return cmd
}

// renderCalendar prints the grid. Days with check-ins are marked with *
// and today with >.
func renderCalendar(w io.Writer, cal *httpapi.CalendarResponse) {
	st := newCalendarStyles(w)
	fmt.Fprintln(w, st.title.Render(fmt.Sprintf("%s %d", cal.Month, cal.Year)))
	fmt.Fprintln(w, st.header.Render(" Su   Mo   Tu   We   Th   Fr   Sa"))

	for _, week := range cal.Grid.Weeks() {
		cells := make([]string, 0, len(week))
		for _, cell := range week {
			if !cell.InMonth {
				cells = append(cells, "    ")
				continue
			}
			mark := " "
			if cell.Count > 0 {
				mark = "*"
			}
			lead := " "
			if cell.IsToday {
				lead = ">"
			}
			text := fmt.Sprintf("%s%2d%s", lead, cell.Date.Day, mark)
			switch {
			case cell.IsToday:
				text = st.today.Render(text)
			case cell.Count > 0:
				text = st.checked.Render(text)
			}
			cells = append(cells, text)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(cells, " "), " "))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Week   %s %d/%d\n", bar(cal.Progress.Weekly), cal.Progress.Weekly.Count, cal.WeeklyGoal)
	fmt.Fprintf(w, "Month  %s %d/%d\n", bar(cal.Progress.Monthly), cal.Progress.Monthly.Count, cal.Progress.Monthly.Denominator)
}

// bar draws a fixed-width progress bar for p.
func bar(p progress.Percent) string {
	filled := int(p.Display / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return fmt.Sprintf("[%s%s] %3d%%", strings.Repeat("#", filled), strings.Repeat("-", barWidth-filled), p.Rounded())
}
