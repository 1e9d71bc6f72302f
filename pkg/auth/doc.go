// Package auth supplies the bearer credentials attached to outbound
// modelfarm requests.
//
// A [TokenSource] is asked for a token before each request. Static API keys
// and the no-credential source live here; signed identity tokens live in
// the jwt subpackage.
package auth
