package gostatement

import (
	"errors"
	"fmt"
	"os"
	path "path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	toml "github.com/BurntSushi/toml"
)

const (
	homeEnv                  = "GOSTATEMENT_HOME"
	defaultConnectionNameEnv = "GOSTATEMENT_DEFAULT_CONNECTION_NAME"
	connectionsFileName      = "connections.toml"
	defaultHomeDirName       = ".gostatement"
)

// LoadConnectionConfig returns the connection config loaded from the toml file.
// By default, GOSTATEMENT_HOME (directory of connections.toml) is ~/.gostatement
// and GOSTATEMENT_DEFAULT_CONNECTION_NAME is 'default'.
func LoadConnectionConfig() (*Config, error) {
	return LoadNamedConnectionConfig(os.Getenv(defaultConnectionNameEnv))
}

// LoadNamedConnectionConfig loads the named connection from connections.toml.
// An empty name selects 'default'.
func LoadNamedConnectionConfig(name string) (*Config, error) {
	if name == "" {
		name = "default"
	}
	configDir, err := getTomlFilePath(os.Getenv(homeEnv))
	if err != nil {
		return nil, err
	}
	tomlFilePath := path.Join(configDir, connectionsFileName)
	if err = validateFilePermission(tomlFilePath); err != nil {
		return nil, err
	}
	tomlInfo := make(map[string]interface{})
	if _, err = toml.DecodeFile(tomlFilePath, &tomlInfo); err != nil {
		return nil, err
	}
	connection, exist := tomlInfo[name]
	if !exist {
		return nil, &StatementError{
			Number:      ErrCodeFailedToFindDSNInToml,
			Message:     errMsgFailedToFindDSNInTomlFile,
			MessageArgs: []interface{}{name},
		}
	}
	connectionConfig, ok := connection.(map[string]interface{})
	if !ok {
		return nil, &StatementError{
			Number:      ErrCodeTomlFileParsingFailed,
			Message:     errMsgFailedToParseTomlFile,
			MessageArgs: []interface{}{name, connection},
		}
	}
	cfg := &Config{}
	if err = parseToml(cfg, connectionConfig, configDir); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseToml(cfg *Config, connection map[string]interface{}, configDir string) error {
	var tokenPath string
	for key, value := range connection {
		var parsingErr error
		switch strings.ToLower(key) {
		case "protocol":
			cfg.Protocol, parsingErr = parseString(value)
		case "host":
			cfg.Host, parsingErr = parseString(value)
		case "http_path":
			cfg.HTTPPath, parsingErr = parseString(value)
		case "warehouse_id":
			cfg.WarehouseID, parsingErr = parseString(value)
		case "catalog":
			cfg.Catalog, parsingErr = parseString(value)
		case "schema":
			cfg.Schema, parsingErr = parseString(value)
		case "token":
			cfg.Token, parsingErr = parseString(value)
		case "token_file_path":
			tokenPath, parsingErr = parseString(value)
		case "auth_type":
			var v string
			v, parsingErr = parseString(value)
			cfg.AuthType = AuthType(strings.ToLower(v))
		case "client_id":
			cfg.ClientID, parsingErr = parseString(value)
		case "client_secret":
			cfg.ClientSecret, parsingErr = parseString(value)
		case "profile":
			cfg.Profile, parsingErr = parseString(value)
		case "poll_interval":
			cfg.PollInterval, parsingErr = parseDuration(value)
		case "wait_timeout":
			cfg.WaitTimeout, parsingErr = parseDuration(value)
		case "request_timeout":
			cfg.RequestTimeout, parsingErr = parseDuration(value)
		case "max_retry_count":
			cfg.MaxRetryCount, parsingErr = parseInt(value)
		case "prefetch":
			cfg.Prefetch, parsingErr = parseInt(value)
		case "log_level":
			cfg.LogLevel, parsingErr = parseString(value)
		default:
			logger.Debugf("ignoring unknown connection parameter %v", key)
		}
		if parsingErr != nil {
			return &StatementError{
				Number:      ErrCodeTomlFileParsingFailed,
				Message:     errMsgFailedToParseTomlFile,
				MessageArgs: []interface{}{key, value},
				cause:       parsingErr,
			}
		}
	}
	if cfg.Token == "" && tokenPath != "" {
		token, err := readToken(tokenPath, configDir)
		if err != nil {
			return err
		}
		cfg.Token = token
	}
	return nil
}

func parseInt(i interface{}) (int, error) {
	switch v := i.(type) {
	case int64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		return strconv.Atoi(v)
	}
	return 0, errors.New("failed to parse the value to integer")
}

// parseDuration accepts integer seconds or a Go duration string.
func parseDuration(i interface{}) (time.Duration, error) {
	if v, ok := i.(string); ok {
		return parseDSNDuration(v)
	}
	num, err := parseInt(i)
	if err != nil {
		return 0, err
	}
	return time.Duration(num) * time.Second, nil
}

func parseString(i interface{}) (string, error) {
	v, ok := i.(string)
	if !ok {
		return "", errors.New("failed to convert the value to string")
	}
	return v, nil
}

func readToken(tokenPath, configDir string) (string, error) {
	if !path.IsAbs(tokenPath) {
		tokenPath = path.Join(configDir, tokenPath)
	}
	if err := validateFilePermission(tokenPath); err != nil {
		return "", err
	}
	token, err := os.ReadFile(tokenPath)
	if err != nil {
		return "", fmt.Errorf("reading token file: %w", err)
	}
	return strings.TrimSpace(string(token)), nil
}

func getTomlFilePath(filePath string) (string, error) {
	if len(filePath) == 0 {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return path.Join(homeDir, defaultHomeDirName), nil
	}
	if path.IsAbs(filePath) {
		return filePath, nil
	}
	return path.Abs(filePath)
}

// validateFilePermission rejects credential files readable or writable by
// group or others.
func validateFilePermission(filePath string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		return err
	}
	if fileInfo.Mode().Perm()&0o077 != 0 {
		return &StatementError{
			Number:      ErrCodeInvalidFilePermission,
			Message:     errMsgInvalidWritablePermission,
			MessageArgs: []interface{}{filePath},
		}
	}
	return nil
}
