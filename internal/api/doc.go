// package api implements the authenticated request client used for every Spotify Web API call.
//
// The client attaches the stored bearer token, classifies responses into an [ErrorKind],
// and on a 401 runs the injected [Refresher] once before replaying the request a single time.
package api
