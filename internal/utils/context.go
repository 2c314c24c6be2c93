// Package utils provides shared utility functions and constants
package utils

// ContextKeyConnection is the key used to store the opened connection in the echo context
const ContextKeyConnection = "connection"

// ContextKeySession is the key used to store the browsing session id in the echo context
const ContextKeySession = "session"

// CookieName is the name of the sealed connection cookie
const CookieName = "IronBlobsSeal"

// SessionCookieName is the name of the browsing session cookie
const SessionCookieName = "IronBlobsSession"
