// Package routepath contains the pure string helpers the router is built
// on: splitting a raw location into pathname, query and fragment,
// normalizing slash sequences, query-string encoding, and mount-prefix
// handling.
//
// Nothing in this package holds state. Every function is safe for
// concurrent use.
package routepath
