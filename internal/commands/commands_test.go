package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/meterbook-dev/meterbook/internal/auditlog"
)

func initDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	out, err := runMeterbook(t, "init", dir, "--git=false")
	require.NoError(t, err, out)
	return dir
}

func TestAddAndList(t *testing.T) {
	dir := initDir(t)

	out, err := runMeterbook(t, "-C", dir, "add", "--date", "01.01.2023", "-v", "strom=100", "-v", "Gas=7")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Saved reading for 01.01.2023")

	out, err = runMeterbook(t, "-C", dir, "add", "--date", "2023-02-01", "-v", "strom=150,9")
	require.NoError(t, err, out)

	out, err = runMeterbook(t, "-C", dir, "list")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Datum"))
	assert.True(t, strings.HasPrefix(lines[1], "01.02.2023"), "newest first")
	assert.Contains(t, lines[1], "150")
	assert.True(t, strings.HasPrefix(lines[2], "01.01.2023"))

	out, err = runMeterbook(t, "-C", dir, "list", "-n", "1")
	require.NoError(t, err, out)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestAdd_ReplaceWarns(t *testing.T) {
	dir := initDir(t)

	_, err := runMeterbook(t, "-C", dir, "add", "--date", "2023-01-01", "-v", "strom=1")
	require.NoError(t, err)
	out, err := runMeterbook(t, "-C", dir, "add", "--date", "2023-01-01", "-v", "strom=2")
	require.NoError(t, err, out)
	assert.Contains(t, out, "already existed and was overwritten")
}

func TestAdd_Invalid(t *testing.T) {
	dir := initDir(t)
	before, err := os.ReadFile(filepath.Join(dir, "energy_data.csv"))
	require.NoError(t, err)

	tests := []struct {
		name string
		args []string
	}{
		{"bad date", []string{"add", "--date", "31.02.2023", "-v", "strom=1"}},
		{"year too early", []string{"add", "--date", "1999-12-31", "-v", "strom=1"}},
		{"bad value", []string{"add", "--date", "2023-01-01", "-v", "strom=abc"}},
		{"unknown column", []string{"add", "--date", "2023-01-01", "-v", "oil=1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runMeterbook(t, append([]string{"-C", dir}, tt.args...)...)
			require.Error(t, err, out)
		})
	}

	after, err := os.ReadFile(filepath.Join(dir, "energy_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestDelete(t *testing.T) {
	dir := initDir(t)
	_, err := runMeterbook(t, "-C", dir, "add", "--date", "2023-01-01", "-v", "strom=1")
	require.NoError(t, err)

	out, err := runMeterbook(t, "-C", dir, "delete", "2023-01-01")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Deleted")

	out, err = runMeterbook(t, "-C", dir, "delete", "2023-01-01")
	require.Error(t, err)
	assert.Contains(t, out, "no reading")

	entries, err := auditlog.New(filepath.Join(dir, "logs", "audit.csv")).Read()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, auditlog.ActionAdd, entries[0].Action)
	assert.Equal(t, auditlog.ActionDelete, entries[1].Action)
}

func TestHistory(t *testing.T) {
	dir := initDir(t)
	_, err := runMeterbook(t, "-C", dir, "add", "--date", "2023-01-01", "-v", "strom=1")
	require.NoError(t, err)
	_, err = runMeterbook(t, "-C", dir, "add", "--date", "2023-01-01", "-v", "strom=2")
	require.NoError(t, err)

	out, err := runMeterbook(t, "-C", dir, "history")
	require.NoError(t, err, out)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "TIME"))
	assert.Contains(t, lines[1], "replace", "newest first")
	assert.Contains(t, lines[1], "strom=2")
	assert.Contains(t, lines[2], "add")

	out, err = runMeterbook(t, "-C", dir, "history", "-n", "1")
	require.NoError(t, err, out)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 2)
}

func TestCorrectionsApplyToOutput(t *testing.T) {
	dir := initDir(t)
	data := "datum;strom\n2023-01-01;100\n2023-02-01;5\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "energy_data.csv"), []byte(data), 0o644))
	changes := "strom:\n  - date: 2023-02-01\n    offset: 100\n    reason: new meter\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "meter_changes.yaml"), []byte(changes), 0o644))

	out, err := runMeterbook(t, "-C", dir, "series", "strom")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2023-02-01  105")

	raw, err := os.ReadFile(filepath.Join(dir, "energy_data.csv"))
	require.NoError(t, err)
	assert.Equal(t, data, string(raw))
}

func TestAggregateAndStats(t *testing.T) {
	dir := initDir(t)
	data := "datum;strom\n2023-01-15;100\n2023-02-15;200\n2024-01-15;300\n2024-02-15;500\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "energy_data.csv"), []byte(data), 0o644))

	out, err := runMeterbook(t, "-C", dir, "aggregate", "strom", "-t", "Y")
	require.NoError(t, err, out)
	assert.Contains(t, out, "2023-12-31")
	assert.Contains(t, out, "2024-12-31")

	out, err = runMeterbook(t, "-C", dir, "aggregate", "strom", "-t", "Q")
	require.Error(t, err)
	assert.Contains(t, out, "invalid timeframe")

	out, err = runMeterbook(t, "-C", dir, "stats", "strom")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Reference year:  2024")
	assert.Contains(t, out, "Change:")

	out, err = runMeterbook(t, "-C", dir, "stats", "oil")
	require.Error(t, err)
}

func TestExport(t *testing.T) {
	dir := initDir(t)
	_, err := runMeterbook(t, "-C", dir, "add", "--date", "2023-01-01", "-v", "strom=42")
	require.NoError(t, err)

	target := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := runMeterbook(t, "-C", dir, "export", "-o", target)
	require.NoError(t, err, out)

	xl, err := excelize.OpenFile(target)
	require.NoError(t, err)
	defer xl.Close()
	rows, err := xl.GetRows("energy_data")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Datum", rows[0][0])
	assert.Equal(t, "42", rows[1][1])
}

func TestImport(t *testing.T) {
	dir := initDir(t)
	csv := "datum;Strom;gas\n2022-05-01;10;3\n2022-06-01;20;\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "legacy.csv"), []byte(csv), 0o644))

	out, err := runMeterbook(t, "-C", dir, "import")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Imported 1 file(s): 2 added, 0 replaced")

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "legacy.csv"))
	assert.NoError(t, err)

	out, err = runMeterbook(t, "-C", dir, "import")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Nothing to import")
}

func TestAutoCommit(t *testing.T) {
	requireGit(t)
	dir := t.TempDir()
	out, err := runMeterbook(t, "init", dir)
	require.NoError(t, err, out)

	out, err = runMeterbook(t, "-C", dir, "add", "--date", "2023-01-01", "-v", "strom=1")
	require.NoError(t, err, out)

	log := exec.Command("git", "log", "--format=%s", "-1")
	log.Dir = dir
	logOut, err := log.Output()
	require.NoError(t, err)
	assert.Equal(t, "readings: add 2023-01-01", strings.TrimSpace(string(logOut)))
}

func TestEnvFileOverridesConfig(t *testing.T) {
	dir := initDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("METERBOOK_STORAGE_DATA_FILE=other.csv\n"), 0o644))

	out, err := runMeterbook(t, "-C", dir, "add", "--date", "2023-01-01", "-v", "strom=1")
	require.NoError(t, err, out)

	_, err = os.Stat(filepath.Join(dir, "other.csv"))
	assert.NoError(t, err)
}

func TestVersion(t *testing.T) {
	out, err := runMeterbook(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "commit:")
}
