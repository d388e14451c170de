package gostatement

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/databricks/databricks-sdk-go/config"
	"github.com/golang-jwt/jwt/v5"
)

func signedTestJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user@example.com",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	assertNilF(t, err)
	return s
}

func TestTokenAuthenticatorPAT(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://host/api/2.0/sql/statements/x", nil)
	assertNilF(t, err)
	assertNilF(t, (&TokenAuthenticator{Token: testToken}).Authenticate(req))
	assertEqualE(t, req.Header.Get(headerAuthorizationKey), "Bearer "+testToken)
}

func TestTokenAuthenticatorJWT(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://host/", nil)
	assertNilF(t, err)

	valid := signedTestJWT(t, time.Now().Add(time.Hour))
	assertNilF(t, (&TokenAuthenticator{Token: valid}).Authenticate(req))
	assertEqualE(t, req.Header.Get(headerAuthorizationKey), "Bearer "+valid)

	expired := signedTestJWT(t, time.Now().Add(-time.Hour))
	req.Header.Del(headerAuthorizationKey)
	err = (&TokenAuthenticator{Token: expired}).Authenticate(req)
	assertStatementErrorF(t, err, ErrCodeExpiredToken)
	assertEqualE(t, req.Header.Get(headerAuthorizationKey), "", "an expired token must not be sent")
}

func TestTokenAuthenticatorEmpty(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://host/", nil)
	assertNilF(t, err)
	assertStatementErrorF(t, (&TokenAuthenticator{}).Authenticate(req), ErrCodeMissingCredentials)
}

func TestJWTExpiration(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := jwtExpiration(signedTestJWT(t, exp))
	assertTrueF(t, ok)
	assertTrueE(t, got.Equal(exp))

	_, ok = jwtExpiration(testToken)
	assertFalseE(t, ok, "opaque tokens have no expiry")
}

func TestNewAuthenticator(t *testing.T) {
	auth, err := newAuthenticator(&Config{Host: "h", AuthType: AuthTypePAT, Token: "t"})
	assertNilF(t, err)
	_, ok := auth.(*TokenAuthenticator)
	assertTrueE(t, ok)

	_, err = newAuthenticator(&Config{Host: "h", AuthType: "kerberos"})
	se := assertStatementErrorF(t, err, ErrCodeUnknownAuthType)
	assertStringContainsE(t, se.Error(), "kerberos")

	custom := &TokenAuthenticator{Token: "custom"}
	auth, err = newAuthenticator(&Config{Host: "h", AuthType: "kerberos", Authenticator: custom})
	assertNilF(t, err)
	assertTrueE(t, auth == Authenticator(custom), "an explicit Authenticator wins")
}

func TestNewSDKAuthenticator(t *testing.T) {
	cfg := &Config{
		Protocol:     "https",
		Host:         "adb-1.azuredatabricks.net",
		HTTPPath:     "/sql/1.0/warehouses/abc",
		AuthType:     AuthTypeSDK,
		ClientID:     "id",
		ClientSecret: "secret",
		Profile:      "dev",
	}
	auth, err := newAuthenticator(cfg)
	assertNilF(t, err)
	sdkConfig, ok := auth.(*config.Config)
	assertTrueF(t, ok, "sdk auth must use the databricks sdk config")
	assertEqualE(t, sdkConfig.Host, "https://adb-1.azuredatabricks.net")
	assertEqualE(t, sdkConfig.ClientID, "id")
	assertEqualE(t, sdkConfig.ClientSecret, "secret")
	assertEqualE(t, sdkConfig.Profile, "dev")
	assertEqualE(t, sdkConfig.WarehouseID, "abc")
}

type fakeSecureStorageManager struct {
	tokens map[string]string
	err    error
}

func (m *fakeSecureStorageManager) setCredential(tokenSpec *secureTokenSpec, value string) error {
	if m.err != nil {
		return m.err
	}
	m.tokens[tokenSpec.buildKey()] = value
	return nil
}

func (m *fakeSecureStorageManager) getCredential(tokenSpec *secureTokenSpec) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if token, ok := m.tokens[tokenSpec.buildKey()]; ok {
		return token, nil
	}
	return m.tokens[newTokenSpec(tokenSpec.host, "").buildKey()], nil
}

func (m *fakeSecureStorageManager) deleteCredential(tokenSpec *secureTokenSpec) error {
	delete(m.tokens, tokenSpec.buildKey())
	return m.err
}

func withFakeCredentialsStorage(t *testing.T) *fakeSecureStorageManager {
	fake := &fakeSecureStorageManager{tokens: make(map[string]string)}
	previous := credentialsStorage
	credentialsStorage = fake
	t.Cleanup(func() { credentialsStorage = previous })
	return fake
}

func TestKeyringAuthenticator(t *testing.T) {
	fake := withFakeCredentialsStorage(t)
	cfg := &Config{Host: "Host.Example.com", HTTPPath: "/sql/1.0/warehouses/abc", AuthType: AuthTypeKeyring}

	_, err := newAuthenticator(cfg)
	assertStatementErrorF(t, err, ErrCodeMissingCredentials)

	assertNilF(t, StoreTokenInKeyring("host.example.com", "", "host-wide"))
	auth, err := newAuthenticator(cfg)
	assertNilF(t, err)
	assertEqualE(t, auth.(*TokenAuthenticator).Token, "host-wide")

	assertNilF(t, StoreTokenInKeyring("host.example.com", "abc", "warehouse"))
	auth, err = newAuthenticator(cfg)
	assertNilF(t, err)
	assertEqualE(t, auth.(*TokenAuthenticator).Token, "warehouse")

	assertNilF(t, DeleteTokenFromKeyring("host.example.com", "abc"))
	assertEqualE(t, fake.tokens["host.example.com/abc"], "")

	fake.err = errors.New("keyring locked")
	_, err = newAuthenticator(cfg)
	assertNotNilF(t, err)
}

func TestTokenSpecKey(t *testing.T) {
	assertEqualE(t, newTokenSpec("HOST", "wh").buildKey(), "host/wh")
	assertEqualE(t, newTokenSpec("HOST", "").buildKey(), "host")
}
