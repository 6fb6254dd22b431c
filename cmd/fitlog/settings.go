package main

import (
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	httpapi "github.com/fyrsmithlabs/fitlog/internal/http"
	"github.com/fyrsmithlabs/fitlog/internal/model"
)

func newSettingsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change exercise types and the weekly goal",
	}
	cmd.AddCommand(newSettingsShowCmd(opts), newSettingsSetCmd(opts))
	return cmd
}

func fetchSettings(c *client) (*model.UserSettings, error) {
	var s model.UserSettings
	if _, err := c.do(http.MethodGet, "/api/settings", nil, &s, true); err != nil {
		return nil, err
	}
	return &s, nil
}

func newSettingsShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			s, err := fetchSettings(c)
			if err != nil {
				return err
			}
			cmd.Printf("Exercise types: %s\n", strings.Join(s.ExerciseTypes, ", "))
			cmd.Printf("Weekly goal:    %d\n", s.WeeklyGoal)
			return nil
		},
	}
}

func newSettingsSetCmd(opts *options) *cobra.Command {
	var (
		types []string
		goal  int
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace settings",
		Long: `Replace settings. Flags that are not given keep their current value.

Examples:
  fitlog settings set --goal 4
  fitlog settings set --types 跑步,游泳,cycling`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newClient(opts)
			if err != nil {
				return err
			}
			current, err := fetchSettings(c)
			if err != nil {
				return err
			}

			req := httpapi.UpdateSettingsRequest{ExerciseTypes: current.ExerciseTypes, WeeklyGoal: current.WeeklyGoal}
			if cmd.Flags().Changed("types") {
				req.ExerciseTypes = types
			}
			if cmd.Flags().Changed("goal") {
				req.WeeklyGoal = goal
			}
			if _, err := c.do(http.MethodPost, "/api/settings", req, nil, true); err != nil {
				return err
			}
			cmd.Println("Settings saved")
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&types, "types", nil, "comma separated exercise types")
	cmd.Flags().IntVar(&goal, "goal", 0, "weekly check-in goal")
	return cmd
}
