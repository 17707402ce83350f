package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleLine(t *testing.T) {
	tests := []struct {
		name       string
		goos       string
		freq       string
		at         string
		day        string
		want       string
		withBackup bool
	}{
		{
			name: "weekly cron",
			goos: "linux", freq: "weekly", at: "03:00", day: "sunday",
			want: "0 3 * * 0 /usr/local/bin/shader-buster clean --all --force --quiet",
		},
		{
			name: "daily cron with backup",
			goos: "linux", freq: "daily", at: "22:15", day: "sun", withBackup: true,
			want: "15 22 * * * /usr/local/bin/shader-buster clean --all --force --quiet --backup",
		},
		{
			name: "weekly on friday",
			goos: "linux", freq: "Weekly", at: "04:30", day: "Fri",
			want: "30 4 * * 5 /usr/local/bin/shader-buster clean --all --force --quiet",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := scheduleLine(tt.goos, "/usr/local/bin/shader-buster", tt.freq, tt.at, tt.day, tt.withBackup)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScheduleLine_Windows(t *testing.T) {
	got, err := scheduleLine("windows", `C:\Tools\shader-buster.exe`, "weekly", "03:00", "monday", false)
	require.NoError(t, err)

	assert.Contains(t, got, "schtasks /Create /TN ShaderBusterCleanup")
	assert.Contains(t, got, "/SC WEEKLY")
	assert.Contains(t, got, "/D MON")
	assert.Contains(t, got, "/ST 03:00")
}

func TestScheduleLine_Errors(t *testing.T) {
	tests := []struct {
		name string
		freq string
		at   string
		day  string
	}{
		{"bad frequency", "hourly", "03:00", "sunday"},
		{"bad time", "daily", "25:00", "sunday"},
		{"bad day", "weekly", "03:00", "someday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := scheduleLine("linux", "/bin/sb", tt.freq, tt.at, tt.day, false)
			assert.Error(t, err)
		})
	}
}

func TestParseWeekday(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Weekday
		wantErr bool
	}{
		{in: "sunday", want: time.Sunday},
		{in: "Mon", want: time.Monday},
		{in: " SATURDAY ", want: time.Saturday},
		{in: "wed", want: time.Wednesday},
		{in: "wednes", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWeekday(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
