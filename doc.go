// Package auth provides credential sign in, stateless session tokens and a
// path based authorization gate for web applications.
//
// Sign in:
//   - CredentialVerifier validates the submitted email and password, looks
//     the account up through a UserFinder and compares the password with the
//     stored digest. Unknown accounts and wrong passwords fail the same way
//     so callers cannot tell them apart.
//   - Auther turns a verified Identity into an HS256 token through the
//     TokenCodec and maps every failure to one of two user facing reasons.
//
// Sessions:
//   - TokenCodec.Decode checks the signature before reading the payload.
//     Materialize turns the result into a Session; any decode failure gives
//     an anonymous session.
//
// Gate:
//   - Gate.Decide denies anonymous requests under the protected prefix and
//     sends signed in users away from the sign in page. RouteAuthenticator
//     runs it as middleware over go-router, with a bypass list for assets.
//
// Activity sinks:
//   - ActivitySink receives login success, login failure and logout events.
//     Sinks run best effort, errors are logged.
package auth
