// Package log provides secure logging built on top of the standard slog package.
//
// The SecureHandler masks sensitive values before they reach the output:
//   - attributes whose key names a secret (cookie, token, client_secret, code, ...)
//   - values that look like credentials (bearer tokens, JWTs, Google OAuth tokens)
//   - secret query parameters of logged URLs, such as the OAuth callback code
//
// Even in verbose mode, secrets are masked so logs can be shared when
// reporting a problem with an analysis.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("oauth callback", "url", "http://localhost:5000/auth/callback?code=4/0Ab")
//	// url="http://localhost:5000/auth/callback?code=***REDACTED***"
//	slog.SetDefault(logger)
package log
