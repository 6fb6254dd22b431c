package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/auth"
	"github.com/fyrsmithlabs/fitlog/internal/calendar"
	"github.com/fyrsmithlabs/fitlog/internal/checkin"
	httpapi "github.com/fyrsmithlabs/fitlog/internal/http"
	"github.com/fyrsmithlabs/fitlog/internal/kvstore"
	"github.com/fyrsmithlabs/fitlog/internal/model"
	"github.com/fyrsmithlabs/fitlog/internal/progress"
	"github.com/fyrsmithlabs/fitlog/internal/settings"
)

type cli struct {
	t           *testing.T
	serverURL   string
	sessionFile string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	data := kvstore.NewMemory()
	logger := zap.NewNop()

	settingsSvc, err := settings.NewService(nil, data, logger)
	require.NoError(t, err)
	checkinSvc, err := checkin.NewService(data, logger)
	require.NoError(t, err)
	authCfg := auth.DefaultConfig()
	authCfg.BcryptCost = 4
	authSvc, err := auth.NewService(authCfg, data, kvstore.NewMemory(), settingsSvc, logger)
	require.NoError(t, err)

	cfg := httpapi.DefaultConfig()
	cfg.LoginBurst = 100
	srv, err := httpapi.NewServer(httpapi.Services{Auth: authSvc, Checkins: checkinSvc, Settings: settingsSvc}, logger, cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &cli{t: t, serverURL: ts.URL, sessionFile: filepath.Join(t.TempDir(), "session")}
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--server", c.serverURL, "--session-file", c.sessionFile}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()
	out, err := c.run(args...)
	require.NoError(c.t, err, out)
	return out
}

func TestCLI_Workflow(t *testing.T) {
	c := newCLI(t)

	out := c.mustRun("health")
	assert.Contains(t, out, "Server Status: ok")

	_, err := c.run("checkin", "list")
	assert.ErrorIs(t, err, errNotLoggedIn)

	out = c.mustRun("register", "alice", "--password", "password1")
	assert.Contains(t, out, "Registered and logged in as alice")

	info, err := os.Stat(c.sessionFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	out = c.mustRun("checkin", "add", "--date", "2024-03-15", "--type", "跑步", "--duration", "30", "--note", "park")
	assert.Contains(t, out, "Logged 2024-03-15 跑步, 30 min")
	id := out[strings.LastIndex(out, "id ")+3 : strings.LastIndex(out, ")")]

	out = c.mustRun("checkin", "list", "--year", "2024", "--month", "3")
	assert.Contains(t, out, "2024-03-15")
	assert.Contains(t, out, "park")
	assert.Contains(t, out, id)

	out = c.mustRun("checkin", "list", "--date", "2024-03-14")
	assert.Contains(t, out, "No check-ins")

	out = c.mustRun("calendar", "--year", "2024", "--month", "3")
	assert.Contains(t, out, "March 2024")
	assert.Contains(t, out, "15*")

	c.mustRun("checkin", "rm", id)
	out = c.mustRun("checkin", "list", "--year", "2024", "--month", "3")
	assert.Contains(t, out, "No check-ins")

	out = c.mustRun("logout")
	assert.Contains(t, out, "Logged out")
	_, err = os.Stat(c.sessionFile)
	assert.True(t, os.IsNotExist(err))

	_, err = c.run("login", "alice", "--password", "wrong-password")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	c.mustRun("login", "alice", "--password", "password1")
	out = c.mustRun("settings", "show")
	assert.Contains(t, out, "跑步, 力量训练, 瑜伽, 游泳")
	assert.Contains(t, out, "3")
}

func TestCLI_SettingsSetKeepsUnchangedFields(t *testing.T) {
	c := newCLI(t)
	c.mustRun("register", "alice", "--password", "password1")

	c.mustRun("settings", "set", "--goal", "5")
	out := c.mustRun("settings", "show")
	assert.Contains(t, out, "跑步, 力量训练, 瑜伽, 游泳")
	assert.Contains(t, out, "Weekly goal:    5")

	c.mustRun("settings", "set", "--types", "cycling,rowing")
	out = c.mustRun("settings", "show")
	assert.Contains(t, out, "cycling, rowing")
	assert.Contains(t, out, "Weekly goal:    5")
}

func TestCLI_PasswordFromStdin(t *testing.T) {
	c := newCLI(t)

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader("password1\n"))
	cmd.SetArgs([]string{"--server", c.serverURL, "--session-file", c.sessionFile, "register", "alice"})
	require.NoError(t, cmd.Execute(), out.String())
	assert.Contains(t, out.String(), "Registered and logged in as alice")
}

func TestMonthQuery(t *testing.T) {
	assert.Equal(t, "", monthQuery(0, 0))
	assert.Equal(t, "?month=3&year=2024", monthQuery(2024, 3))
	assert.Equal(t, "?month=7", monthQuery(0, 7))
}

func TestBar(t *testing.T) {
	assert.Equal(t, "[--------------------]   0%", bar(progress.Percent{}))
	assert.Equal(t, "[#############-------]  67%", bar(progress.Percent{Display: 100 * 2.0 / 3}))
	assert.Equal(t, "[####################] 100%", bar(progress.Percent{Raw: 133, Display: 100}))
}

func TestRenderCalendar(t *testing.T) {
	today := model.NewDate(2024, time.March, 15)
	grid := calendar.Build(2024, time.March, today, map[model.Date]int{model.NewDate(2024, time.March, 1): 1})

	var out bytes.Buffer
	renderCalendar(&out, &httpapi.CalendarResponse{Grid: grid, WeeklyGoal: 3})

	lines := strings.Split(out.String(), "\n")
	assert.Equal(t, "March 2024", lines[0])
	// March 1 2024 is a Friday.
	assert.Equal(t, strings.Repeat(" ", 25)+"  1*   2", lines[2])
	assert.Contains(t, out.String(), ">15")
	assert.NotContains(t, out.String(), "\x1b[", "styles stay plain off a terminal")
}
