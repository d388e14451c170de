package logger

import (
	"regexp"
)

const (
	personalTokenPattern   = `(?i)\b(dapi|dkea|dose)[a-f0-9]{32}(-\d+)?\b`
	bearerPattern          = `(?i)(bearer)(\s+)([a-z0-9._~+/=-]{8,})`
	jwtPattern             = `\beyJ[a-zA-Z0-9_-]*\.[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`
	signedQueryPattern     = `(?i)\b(X-Amz-Signature|X-Amz-Credential|X-Amz-Security-Token|X-Goog-Signature|X-Goog-Credential|sig|se|st|skoid)=([^&\s"']+)`
	clientSecretPattern    = `(?i)(client_secret|clientSecret)([\'\"\s:=]+)([^\s&\'\"]+)`
	connectionTokenPattern = `(?i)(\btoken|access_token)([\'\"\s:=]+)([a-z0-9=/_\-\+.]{8,})`
	passwordPattern        = `(?i)(password|pwd)([\'\"\s:=]+)([^\s\'\"&]{3,})`
)

var (
	personalTokenRegexp   = regexp.MustCompile(personalTokenPattern)
	bearerRegexp          = regexp.MustCompile(bearerPattern)
	jwtRegexp             = regexp.MustCompile(jwtPattern)
	signedQueryRegexp     = regexp.MustCompile(signedQueryPattern)
	clientSecretRegexp    = regexp.MustCompile(clientSecretPattern)
	connectionTokenRegexp = regexp.MustCompile(connectionTokenPattern)
	passwordRegexp        = regexp.MustCompile(passwordPattern)
)

type secretmasker string

func (s secretmasker) maskPersonalToken() secretmasker {
	return secretmasker(personalTokenRegexp.ReplaceAllString(string(s), "****"))
}

func (s secretmasker) maskBearer() secretmasker {
	return secretmasker(bearerRegexp.ReplaceAllString(string(s), "$1$2****"))
}

func (s secretmasker) maskJwt() secretmasker {
	return secretmasker(jwtRegexp.ReplaceAllString(string(s), "****"))
}

// maskSignedQuery hides the signature parameters of presigned S3, GCS and
// Azure SAS URLs.
func (s secretmasker) maskSignedQuery() secretmasker {
	return secretmasker(signedQueryRegexp.ReplaceAllString(string(s), "$1=****"))
}

func (s secretmasker) maskClientSecret() secretmasker {
	return secretmasker(clientSecretRegexp.ReplaceAllString(string(s), "$1${2}****"))
}

func (s secretmasker) maskConnectionToken() secretmasker {
	return secretmasker(connectionTokenRegexp.ReplaceAllString(string(s), "$1${2}****"))
}

func (s secretmasker) maskPassword() secretmasker {
	return secretmasker(passwordRegexp.ReplaceAllString(string(s), "$1${2}****"))
}

// MaskSecrets masks credentials in text.
func MaskSecrets(text string) string {
	return string(secretmasker(text).
		maskBearer().
		maskJwt().
		maskPersonalToken().
		maskSignedQuery().
		maskClientSecret().
		maskConnectionToken().
		maskPassword())
}
