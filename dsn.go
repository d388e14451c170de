package gostatement

import (
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPollInterval   = time.Second
	defaultWaitTimeout    = 10 * time.Second
	defaultRequestTimeout = 60 * time.Second
	defaultMaxRetryCount  = 7
	defaultPrefetch       = 4
	defaultProtocol       = "https"
)

// AuthType selects how requests to the service are authenticated.
type AuthType string

const (
	// AuthTypePAT sends Config.Token as a bearer token.
	AuthTypePAT AuthType = "pat"
	// AuthTypeSDK delegates to the unified client authentication of the
	// Databricks SDK (profiles, OAuth M2M, cloud native identities).
	AuthTypeSDK AuthType = "sdk"
	// AuthTypeKeyring reads the token from the OS credential store.
	AuthTypeKeyring AuthType = "keyring"
)

// Config is the client configuration.
type Config struct {
	Protocol    string // http or https (optional)
	Host        string // workspace hostname, with optional port
	HTTPPath    string // warehouse http path, e.g. /sql/1.0/warehouses/<id>
	WarehouseID string // overrides the id embedded in HTTPPath

	Catalog string // default catalog for statements (optional)
	Schema  string // default schema for statements (optional)

	AuthType     AuthType
	Token        string // personal access token
	ClientID     string // OAuth M2M client id (AuthTypeSDK)
	ClientSecret string // OAuth M2M client secret (AuthTypeSDK)
	Profile      string // .databrickscfg profile (AuthTypeSDK)

	PollInterval   time.Duration // delay between status polls
	WaitTimeout    time.Duration // server side wait on submit, 5s..50s, negative for async
	RequestTimeout time.Duration // total time budget of one HTTP request including retries
	MaxRetryCount  int           // retries of one HTTP request
	Prefetch       int           // chunk bodies fetched ahead while merging

	LogLevel string

	// Authenticator overrides AuthType when set.
	Authenticator Authenticator
	// Transporter is the round tripper used for every request.
	Transporter http.RoundTripper
}

var warehousePathRegexp = regexp.MustCompile(`^/?sql/1\.0/(?:warehouses|endpoints)/([^/?]+)`)

// warehouseID returns the explicit warehouse id or the one embedded in HTTPPath.
func (c *Config) warehouseID() string {
	if c.WarehouseID != "" {
		return c.WarehouseID
	}
	if m := warehousePathRegexp.FindStringSubmatch(c.HTTPPath); m != nil {
		return m[1]
	}
	return ""
}

func (c *Config) baseURL() *url.URL {
	return &url.URL{Scheme: c.Protocol, Host: c.Host}
}

// fillMissingConfigParameters validates the config and fills defaults.
func fillMissingConfigParameters(cfg *Config) error {
	cfg.Host = strings.TrimSuffix(strings.TrimPrefix(strings.TrimPrefix(cfg.Host, "https://"), "http://"), "/")
	if cfg.Host == "" {
		return &StatementError{Number: ErrCodeEmptyHost, Message: errMsgEmptyHost}
	}
	if cfg.Protocol == "" {
		cfg.Protocol = defaultProtocol
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = defaultWaitTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.MaxRetryCount <= 0 {
		cfg.MaxRetryCount = defaultMaxRetryCount
	}
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = defaultPrefetch
	}
	if cfg.AuthType == "" {
		cfg.AuthType = AuthTypePAT
	}
	if cfg.LogLevel != "" {
		if err := logger.SetLogLevel(cfg.LogLevel); err != nil {
			return err
		}
	}
	return nil
}

// ParseDSN parses a DSN of the form
//
//	token:<pat>@host[:port]/sql/1.0/warehouses/<id>[?param1=value1&paramN=valueN]
//
// An explicit http:// or https:// prefix selects the protocol.
func ParseDSN(dsn string) (*Config, error) {
	cfg := &Config{}
	raw := dsn
	if !strings.Contains(raw, "://") {
		raw = defaultProtocol + "://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid DSN: %w", err)
	}
	cfg.Protocol = u.Scheme
	cfg.Host = u.Host
	cfg.HTTPPath = u.Path
	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			cfg.Token = password
		} else {
			cfg.Token = u.User.Username()
		}
	}
	if err = parseDSNParams(cfg, u.Query()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDSNParams(cfg *Config, params url.Values) (err error) {
	for key, values := range params {
		value := values[len(values)-1]
		switch strings.ToLower(key) {
		case "warehouseid", "warehouse_id":
			cfg.WarehouseID = value
		case "catalog":
			cfg.Catalog = value
		case "schema":
			cfg.Schema = value
		case "authtype", "auth_type":
			cfg.AuthType = AuthType(strings.ToLower(value))
		case "clientid", "client_id":
			cfg.ClientID = value
		case "clientsecret", "client_secret":
			cfg.ClientSecret = value
		case "profile":
			cfg.Profile = value
		case "pollinterval":
			cfg.PollInterval, err = parseDSNDuration(value)
		case "waittimeout":
			cfg.WaitTimeout, err = parseDSNDuration(value)
		case "requesttimeout":
			cfg.RequestTimeout, err = parseDSNDuration(value)
		case "maxretrycount":
			cfg.MaxRetryCount, err = strconv.Atoi(value)
		case "prefetch":
			cfg.Prefetch, err = strconv.Atoi(value)
		case "loglevel":
			cfg.LogLevel = value
		default:
			logger.Debugf("ignoring unknown DSN parameter %v", key)
		}
		if err != nil {
			return fmt.Errorf("invalid DSN parameter %v=%v: %w", key, value, err)
		}
	}
	return nil
}

// parseDSNDuration accepts Go durations and plain seconds.
func parseDSNDuration(value string) (time.Duration, error) {
	if secs, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(value)
}
