// Package gateway decides what leaves the process with a credential and
// which routes a user may enter.
//
// Transport decorates outbound catalog requests with the session's current
// bearer credential. The credential is read when the request is sent, so a
// request built before a silent renewal goes out with the renewed token.
// The identity provider's discovery documents are always fetched
// undecorated.
//
// Guard and Router protect the dashboard, upload and account routes. A
// denied navigation starts the login flow once, carrying the requested
// route as the post-login destination.
package gateway
