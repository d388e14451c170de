package gostatement

import (
	"os"
	path "path/filepath"
	"runtime"
	"testing"
	"time"
)

func writeConnectionsFile(t *testing.T, dir, content string, perm os.FileMode) {
	t.Helper()
	file := path.Join(dir, connectionsFileName)
	assertNilF(t, os.WriteFile(file, []byte(content), perm))
	assertNilF(t, os.Chmod(file, perm))
}

func TestLoadConnectionConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	t.Setenv(defaultConnectionNameEnv, "")
	writeConnectionsFile(t, dir, `
[default]
host = "adb-1.azuredatabricks.net"
http_path = "/sql/1.0/warehouses/abc"
token = "dapi-default"
catalog = "main"
poll_interval = "250ms"
wait_timeout = 30
max_retry_count = 3

[dev]
host = "dev.example.com"
warehouse_id = "wh-dev"
auth_type = "SDK"
profile = "dev"
`, 0o600)

	cfg, err := LoadConnectionConfig()
	assertNilF(t, err)
	assertDeepEqualE(t, cfg, &Config{
		Host:          "adb-1.azuredatabricks.net",
		HTTPPath:      "/sql/1.0/warehouses/abc",
		Token:         "dapi-default",
		Catalog:       "main",
		PollInterval:  250 * time.Millisecond,
		WaitTimeout:   30 * time.Second,
		MaxRetryCount: 3,
	})

	t.Setenv(defaultConnectionNameEnv, "dev")
	cfg, err = LoadConnectionConfig()
	assertNilF(t, err)
	assertEqualE(t, cfg.Host, "dev.example.com")
	assertEqualE(t, cfg.warehouseID(), "wh-dev")
	assertEqualE(t, cfg.AuthType, AuthTypeSDK)
	assertEqualE(t, cfg.Profile, "dev")
}

func TestLoadNamedConnectionConfigMissing(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	writeConnectionsFile(t, dir, "[default]\nhost = \"h\"\n", 0o600)

	_, err := LoadNamedConnectionConfig("prod")
	se := assertStatementErrorF(t, err, ErrCodeFailedToFindDSNInToml)
	assertStringContainsE(t, se.Error(), `"prod"`)
}

func TestLoadConnectionConfigWrongType(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	writeConnectionsFile(t, dir, "[default]\nhost = 42\n", 0o600)

	_, err := LoadNamedConnectionConfig("default")
	assertStatementErrorF(t, err, ErrCodeTomlFileParsingFailed)
}

func TestLoadConnectionConfigFilePermission(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file permissions are not checked on windows")
	}
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	writeConnectionsFile(t, dir, "[default]\nhost = \"h\"\n", 0o644)

	_, err := LoadNamedConnectionConfig("default")
	assertStatementErrorF(t, err, ErrCodeInvalidFilePermission)

	assertNilF(t, os.Chmod(path.Join(dir, connectionsFileName), 0o600))
	_, err = LoadNamedConnectionConfig("default")
	assertNilF(t, err)
}

func TestReadTokenFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(homeEnv, dir)
	writeConnectionsFile(t, dir, "[default]\nhost = \"h\"\ntoken_file_path = \"token\"\n", 0o600)
	tokenFile := path.Join(dir, "token")
	assertNilF(t, os.WriteFile(tokenFile, []byte("dapi-from-file\n"), 0o600))

	cfg, err := LoadNamedConnectionConfig("default")
	assertNilF(t, err)
	assertEqualE(t, cfg.Token, "dapi-from-file")

	if runtime.GOOS != "windows" {
		assertNilF(t, os.Chmod(tokenFile, 0o644))
		_, err = LoadNamedConnectionConfig("default")
		assertStatementErrorF(t, err, ErrCodeInvalidFilePermission)
	}
}

func TestParseInt(t *testing.T) {
	for _, v := range []interface{}{int64(5), 5, "5"} {
		num, err := parseInt(v)
		assertNilF(t, err)
		assertEqualE(t, num, 5)
	}
	_, err := parseInt(true)
	assertNotNilF(t, err)
	_, err = parseInt("five")
	assertNotNilF(t, err)
}

func TestParseDuration(t *testing.T) {
	testcases := []struct {
		in   interface{}
		want time.Duration
	}{
		{int64(3), 3 * time.Second},
		{"3", 3 * time.Second},
		{"1m30s", 90 * time.Second},
	}
	for _, tc := range testcases {
		d, err := parseDuration(tc.in)
		assertNilF(t, err)
		assertEqualE(t, d, tc.want)
	}
	_, err := parseDuration("later")
	assertNotNilF(t, err)
}

func TestGetTomlFilePath(t *testing.T) {
	dir, err := getTomlFilePath("")
	assertNilF(t, err)
	homeDir, err := os.UserHomeDir()
	assertNilF(t, err)
	assertEqualE(t, dir, path.Join(homeDir, defaultHomeDirName))

	dir, err = getTomlFilePath("relative")
	assertNilF(t, err)
	assertTrueE(t, path.IsAbs(dir))

	abs := path.Join(t.TempDir(), "abs")
	dir, err = getTomlFilePath(abs)
	assertNilF(t, err)
	assertEqualE(t, dir, abs)
}
