// Package clientip resolves the originating client IP of an HTTP
// request from common proxy headers, with the socket address as the
// last resort. Audit trails use it to attribute security events.
package clientip
