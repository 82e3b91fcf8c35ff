// Package history abstracts the location store a router navigates over.
//
// Three implementations share the History interface:
//
//   - Memory keeps an in-process entry stack and cursor. It backs tests
//     and server-side rendering.
//   - Browser delegates to a Bridge, the native location store of a
//     remote client. See package wsbridge for a WebSocket bridge.
//   - Hash stores the logical path in the fragment of the native location.
//
// Every path pushed or replaced is checked by Validate before the store
// is touched. Listeners are notified after each push, replace and
// effective pop.
package history
