package gostatement

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/databricks/databricks-sdk-go/config"
	"github.com/golang-jwt/jwt/v5"
)

const clientType = "Go"

// platform consists of compiler, OS and architecture type in string
var platform = fmt.Sprintf("%v-%v-%v", runtime.Compiler, runtime.GOOS, runtime.GOARCH)

// userAgent shows up in User-Agent HTTP header
var userAgent = fmt.Sprintf("gostatement/%v (%v; %v; %v)", StatementClientVersion, clientType, runtime.Version(), platform)

// Authenticator decorates an outgoing service request with credentials.
// *config.Config of the Databricks SDK satisfies it.
type Authenticator interface {
	Authenticate(*http.Request) error
}

// TokenAuthenticator sends a static bearer token.
type TokenAuthenticator struct {
	Token string
}

// Authenticate sets the Authorization header. Tokens that are JWTs are
// checked for expiry first so an expired OAuth token fails locally.
func (a *TokenAuthenticator) Authenticate(req *http.Request) error {
	if a.Token == "" {
		return &StatementError{Number: ErrCodeMissingCredentials, Message: errMsgMissingCredentials}
	}
	if exp, ok := jwtExpiration(a.Token); ok && time.Now().After(exp) {
		return &StatementError{
			Number:      ErrCodeExpiredToken,
			Message:     errMsgExpiredToken,
			MessageArgs: []interface{}{exp.Format(time.RFC3339)},
		}
	}
	req.Header.Set(headerAuthorizationKey, "Bearer "+a.Token)
	return nil
}

// jwtExpiration returns the exp claim of token without verifying the
// signature. Opaque personal access tokens report false.
func jwtExpiration(token string) (time.Time, bool) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// newAuthenticator builds the authenticator selected by cfg.
func newAuthenticator(cfg *Config) (Authenticator, error) {
	if cfg.Authenticator != nil {
		return cfg.Authenticator, nil
	}
	switch cfg.AuthType {
	case AuthTypePAT:
		if cfg.Token == "" {
			return nil, &StatementError{Number: ErrCodeMissingCredentials, Message: errMsgMissingCredentials}
		}
		return &TokenAuthenticator{Token: cfg.Token}, nil
	case AuthTypeKeyring:
		token, err := credentialsStorage.getCredential(newTokenSpec(cfg.Host, cfg.warehouseID()))
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, &StatementError{Number: ErrCodeMissingCredentials, Message: errMsgMissingCredentials}
		}
		return &TokenAuthenticator{Token: token}, nil
	case AuthTypeSDK:
		return newSDKAuthenticator(cfg), nil
	}
	return nil, &StatementError{
		Number:      ErrCodeUnknownAuthType,
		Message:     errMsgUnknownAuthType,
		MessageArgs: []interface{}{cfg.AuthType},
	}
}

// newSDKAuthenticator resolves credentials the way the Databricks SDK does:
// explicit fields first, then environment and ~/.databrickscfg profiles.
func newSDKAuthenticator(cfg *Config) *config.Config {
	sdkConfig := &config.Config{
		Host:         cfg.baseURL().String(),
		Token:        cfg.Token,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Profile:      cfg.Profile,
		WarehouseID:  cfg.warehouseID(),
	}
	if cfg.Transporter != nil {
		sdkConfig.HTTPTransport = cfg.Transporter
	}
	return sdkConfig
}
