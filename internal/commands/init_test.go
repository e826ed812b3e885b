package commands_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	// Build the binary once for all tests.
	tmpDir, err := os.MkdirTemp("", "fincopilot-test-*")
	if err != nil {
		panic(err)
	}

	binaryPath = filepath.Join(tmpDir, "fincopilot")
	cmd := exec.Command("go", "build", "-o", binaryPath, "../../cmd/fincopilot")
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		os.RemoveAll(tmpDir)
		panic("failed to build binary: " + err.Error())
	}

	code := m.Run()
	os.RemoveAll(tmpDir)
	os.Exit(code)
}

// testEnv is the caller's environment without FINCOPILOT_ overrides, with
// logging limited to errors so output holds only command results.
func testEnv() []string {
	var env []string
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "FINCOPILOT_") {
			env = append(env, kv)
		}
	}
	return append(env, "FINCOPILOT_LOG_LEVEL=error")
}

func runFincopilot(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, append([]string{"--dir", dir}, args...)...)
	cmd.Env = testEnv()
	out, err := cmd.CombinedOutput()
	return string(out), err
}

// initProject runs init in a fresh temp dir and returns it.
func initProject(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	out, err := runFincopilot(t, dir, append([]string{"init"}, args...)...)
	require.NoError(t, err, out)
	return dir
}

func fixture(t *testing.T, name string) string {
	t.Helper()
	path, err := filepath.Abs(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	return path
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := initProject(t)

	for _, d := range []string{"data", "import", filepath.Join("import", "processed")} {
		info, err := os.Stat(filepath.Join(dir, d))
		require.NoError(t, err, "directory %s should exist", d)
		assert.True(t, info.IsDir(), "%s should be a directory", d)
	}

	_, err := os.Stat(filepath.Join(dir, "data", "fincopilot.db"))
	require.NoError(t, err, "store should be created")
}

func TestInit_Config(t *testing.T) {
	dir := initProject(t, "--format", "chase", "--account", "CHK-1234")

	data, err := os.ReadFile(filepath.Join(dir, "fincopilot.yaml"))
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "format: chase")
	assert.Contains(t, contents, "default_account: CHK-1234")
}

func TestInit_KeepsExistingConfig(t *testing.T) {
	dir := t.TempDir()
	custom := "import:\n  format: tsv\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fincopilot.yaml"), []byte(custom), 0o644))

	out, err := runFincopilot(t, dir, "init")
	require.NoError(t, err, out)

	data, err := os.ReadFile(filepath.Join(dir, "fincopilot.yaml"))
	require.NoError(t, err)
	assert.Equal(t, custom, string(data))
}

func TestInit_Gitignore(t *testing.T) {
	dir := initProject(t)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	for _, pattern := range []string{"data/", ".env", "import/processed/"} {
		assert.Contains(t, string(data), pattern, ".gitignore should contain %s", pattern)
	}
}

func TestCheck_HealthyStore(t *testing.T) {
	dir := initProject(t)

	out, err := runFincopilot(t, dir, "check")
	require.NoError(t, err, out)
	assert.Contains(t, out, "integrity: ok")
	assert.Contains(t, out, "transactions")
	assert.Contains(t, out, "ingest_runs")
}

func TestCheck_CorruptStoreFails(t *testing.T) {
	dir := initProject(t)
	db := filepath.Join(dir, "data", "fincopilot.db")
	for _, suffix := range []string{"-wal", "-shm"} {
		os.Remove(db + suffix)
	}
	require.NoError(t, os.WriteFile(db, []byte(strings.Repeat("not a database ", 512)), 0o644))

	out, err := runFincopilot(t, dir, "check")
	require.Error(t, err, out)
}

func TestIngest_DefaultMode(t *testing.T) {
	dir := initProject(t)

	out, err := runFincopilot(t, dir, "ingest", fixture(t, "transactions.csv"))
	require.NoError(t, err, out)
	assert.Contains(t, out, "read 5, inserted 5, skipped 0, replaced 0")

	out, err = runFincopilot(t, dir, "verify", "REF-1004")
	require.NoError(t, err, out)
	assert.Contains(t, out, "REF-1004: found")
	assert.Contains(t, out, "Rent, January")
}

func TestIngest_AddModeSkipsStoredRefs(t *testing.T) {
	dir := initProject(t)
	path := fixture(t, "transactions.csv")

	_, err := runFincopilot(t, dir, "ingest", path)
	require.NoError(t, err)

	out, err := runFincopilot(t, dir, "ingest", "--mode", "add", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "read 5, inserted 1, skipped 4, replaced 0")
}

func TestIngest_OverwriteMode(t *testing.T) {
	dir := initProject(t)
	path := fixture(t, "transactions.csv")

	_, err := runFincopilot(t, dir, "ingest", path)
	require.NoError(t, err)

	out, err := runFincopilot(t, dir, "ingest", "--mode", "overwrite", path)
	require.NoError(t, err, out)
	assert.Contains(t, out, "read 5, inserted 5, skipped 0, replaced 5")
}

func TestIngest_RejectsUnknownMode(t *testing.T) {
	dir := initProject(t)

	_, err := runFincopilot(t, dir, "ingest", "--mode", "merge", fixture(t, "transactions.csv"))
	require.Error(t, err)
}

func TestIngest_Stdin(t *testing.T) {
	dir := initProject(t)
	data, err := os.ReadFile(fixture(t, "transactions.csv"))
	require.NoError(t, err)

	cmd := exec.Command(binaryPath, "--dir", dir, "ingest", "-")
	cmd.Env = testEnv()
	cmd.Stdin = strings.NewReader(string(data))
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, string(out))
	assert.Contains(t, string(out), "stdin: read 5, inserted 5")
}

func TestIngest_ImportDir(t *testing.T) {
	dir := initProject(t)
	data, err := os.ReadFile(fixture(t, "transactions.csv"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "import", "january.csv"), data, 0o644))

	out, err := runFincopilot(t, dir, "ingest", "--import-dir")
	require.NoError(t, err, out)
	assert.Contains(t, out, "january.csv")
	assert.Contains(t, out, "inserted 5")

	_, err = os.Stat(filepath.Join(dir, "import", "processed", "january.csv"))
	require.NoError(t, err, "file should move to processed/")
	_, err = os.Stat(filepath.Join(dir, "import", "january.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestVerify_NotFound(t *testing.T) {
	dir := initProject(t)

	out, err := runFincopilot(t, dir, "verify", "REF-9999")
	require.NoError(t, err, out)
	assert.Contains(t, out, "REF-9999: not found")
}

func TestTransactionsList_Filters(t *testing.T) {
	dir := initProject(t)
	_, err := runFincopilot(t, dir, "ingest", fixture(t, "transactions.csv"))
	require.NoError(t, err)

	out, err := runFincopilot(t, dir, "transactions", "list", "--account", "ACC-001")
	require.NoError(t, err, out)
	assert.Contains(t, out, "REF-1001")
	assert.NotContains(t, out, "ACC-002")

	_, err = runFincopilot(t, dir, "transactions", "list", "--from", "January 3")
	require.Error(t, err)
}

func TestExport_WritesCanonicalCSV(t *testing.T) {
	dir := initProject(t)
	_, err := runFincopilot(t, dir, "ingest", fixture(t, "transactions.csv"))
	require.NoError(t, err)

	outPath := filepath.Join(dir, "export.csv")
	out, err := runFincopilot(t, dir, "export", "--out", outPath)
	require.NoError(t, err, out)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 6, "header plus five rows")
	assert.Contains(t, string(data), `"Rent, January"`)

	// An export is valid ingest input.
	other := initProject(t)
	out, err = runFincopilot(t, other, "ingest", outPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "read 5, inserted 5")
}

func TestGoal_Lifecycle(t *testing.T) {
	dir := initProject(t)

	out, err := runFincopilot(t, dir, "goal", "add", "--name", "Vacation", "--target", "1000", "--current", "250")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Created goal 1")

	out, err = runFincopilot(t, dir, "goal", "progress", "1", "500")
	require.NoError(t, err, out)
	assert.Contains(t, out, "500.00 of 1000.00 (50.0%)")

	_, err = runFincopilot(t, dir, "goal", "deactivate", "1")
	require.NoError(t, err)

	out, err = runFincopilot(t, dir, "goal", "list")
	require.NoError(t, err, out)
	assert.NotContains(t, out, "Vacation")

	out, err = runFincopilot(t, dir, "goal", "list", "--all")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Vacation")

	_, err = runFincopilot(t, dir, "goal", "progress", "42", "1")
	require.Error(t, err, "unknown goal")
}

func TestSuggestion_Lifecycle(t *testing.T) {
	dir := initProject(t)
	_, err := runFincopilot(t, dir, "goal", "add", "--name", "Emergency fund", "--target", "5000")
	require.NoError(t, err)

	out, err := runFincopilot(t, dir, "suggestion", "add", "--content", "Cancel unused subscriptions", "--goal", "1", "--priority", "3")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Created suggestion 1")

	_, err = runFincopilot(t, dir, "suggestion", "status", "1", "implemented")
	require.NoError(t, err)

	out, err = runFincopilot(t, dir, "suggestion", "list", "--status", "implemented")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cancel unused subscriptions")

	_, err = runFincopilot(t, dir, "suggestion", "status", "1", "archived")
	require.Error(t, err)
}

func TestSetting_GetSet(t *testing.T) {
	dir := initProject(t)

	_, err := runFincopilot(t, dir, "setting", "get", "currency")
	require.Error(t, err, "unset key")

	_, err = runFincopilot(t, dir, "setting", "set", "currency", "USD")
	require.NoError(t, err)
	_, err = runFincopilot(t, dir, "setting", "set", "currency", "EUR")
	require.NoError(t, err)

	out, err := runFincopilot(t, dir, "setting", "get", "currency")
	require.NoError(t, err, out)
	assert.Equal(t, "EUR\n", out)
}

func TestRuns_ListsIngests(t *testing.T) {
	dir := initProject(t)
	path := fixture(t, "transactions.csv")
	_, err := runFincopilot(t, dir, "ingest", path)
	require.NoError(t, err)
	_, err = runFincopilot(t, dir, "ingest", "--mode", "add", path)
	require.NoError(t, err)

	out, err := runFincopilot(t, dir, "runs")
	require.NoError(t, err, out)
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "add")
	assert.Contains(t, out, "transactions.csv")
}
