// package auth implements the Spotify authorization-code flow and access token refresh.
//
// The [Authorizer] builds the consent URL, exchanges the callback code for a token pair,
// and refreshes the access token using the stored refresh token. Tokens are always
// persisted through an injected [credentials.Store].
package auth
