package service

import "regexp"

// credentialPattern matches credential query parameters used by the book API.
var credentialPattern = regexp.MustCompile(`(?i)((?:login_token|account|passwd|password)=)[^&\s"]+`)

// Redact hides credential query values in URLs and error messages before they are logged.
func Redact(s string) string {
	return credentialPattern.ReplaceAllString(s, "${1}[REDACTED]")
}
