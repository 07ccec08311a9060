// Package server runs the short-lived local HTTP listener that receives the OAuth redirect.
//
// # Routing
//
// [BasicRouter] wraps [http.ServeMux] method patterns with a [Middleware] stack.
// Middleware added first runs outermost.
//
// # Callback
//
// [OAuthHandler] serves /callback. It checks the state parameter, hands the code to an
// [Exchanger] (which persists the token pair), and only then publishes an [OAuthResult].
// A second callback is rejected.
package server
