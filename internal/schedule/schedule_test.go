package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		goos string
		job  Job
		want string
	}{
		{
			name: "cron daily",
			goos: "linux",
			job:  Job{Binary: "/usr/local/bin/shader-buster", Frequency: Daily, At: "03:00"},
			want: "0 3 * * * /usr/local/bin/shader-buster clean --all --force --quiet",
		},
		{
			name: "cron weekly with spaces in path",
			goos: "darwin",
			job:  Job{Binary: "/Users/me/My Tools/shader-buster", Frequency: Weekly, Weekday: time.Sunday, At: "23:45"},
			want: "45 23 * * 0 '/Users/me/My Tools/shader-buster' clean --all --force --quiet",
		},
		{
			name: "cron monthly custom args",
			goos: "linux",
			job:  Job{Binary: "/bin/sb", Frequency: Monthly, At: "1:05", Args: []string{"clean", "--backup"}},
			want: "5 1 1 * * /bin/sb clean --backup",
		},
		{
			name: "schtasks weekly",
			goos: "windows",
			job:  Job{Binary: `C:\Tools\shader-buster.exe`, Frequency: Weekly, Weekday: time.Monday, At: "03:00"},
			want: `schtasks /Create /TN ShaderBusterCleanup /TR 'C:\Tools\shader-buster.exe clean --all --force --quiet' /SC WEEKLY /ST 03:00 /D MON /F`,
		},
		{
			name: "schtasks daily quoted path",
			goos: "windows",
			job:  Job{Binary: `C:\Program Files\sb.exe`, Frequency: Daily, At: "04:30"},
			want: `schtasks /Create /TN ShaderBusterCleanup /TR '"C:\Program Files\sb.exe" clean --all --force --quiet' /SC DAILY /ST 04:30 /F`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Render(tt.goos, tt.job)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name string
		job  Job
	}{
		{"missing binary", Job{Frequency: Daily, At: "03:00"}},
		{"bad frequency", Job{Binary: "/bin/sb", Frequency: "hourly", At: "03:00"}},
		{"bad time", Job{Binary: "/bin/sb", Frequency: Daily, At: "25:99"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render("linux", tt.job)
			assert.Error(t, err)
		})
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency(" Weekly ")
	require.NoError(t, err)
	assert.Equal(t, Weekly, f)

	_, err = ParseFrequency("yearly")
	assert.Error(t, err)
}

func TestRemoveCommand(t *testing.T) {
	assert.Equal(t, "schtasks /Delete /TN ShaderBusterCleanup /F", RemoveCommand("windows"))
	assert.Contains(t, RemoveCommand("linux"), "crontab")
}
