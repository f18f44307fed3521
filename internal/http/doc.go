// Package http serves the OAuth redirect target for calendar authorization.
//
// The router exposes the following endpoints:
//   - GET {callback path}: receives `code` and `state` from the consent
//     screen. `state` is the correlation token issued when the authorization
//     URL was built. Responds with an HTML page: 200 when the credential was
//     stored, 400 when a parameter is missing, the token is unknown or the
//     user denied consent (`error` parameter), 500 when the code exchange or
//     the credential write failed.
//   - GET /healthz: plain-text liveness probe.
//
// The callback path is taken from the configured redirect URI so the listener
// and the URL registered with the provider never drift apart.
package http
