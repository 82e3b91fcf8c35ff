package history

// Bridge is the native location store of a client, such as a browser's
// window.history reached over a connection.
type Bridge interface {
	// Location returns the client's current location.
	Location() Location

	// PushState appends url to the client's history.
	PushState(state any, url string) error

	// ReplaceState overwrites the client's current entry.
	ReplaceState(state any, url string) error

	// Go asks the client to move by delta entries. The resulting
	// location arrives later through Subscribe.
	Go(delta int)

	// Subscribe registers fn for location changes the client initiates
	// (back/forward buttons, Go). cancel removes it. fn may be called
	// before Subscribe returns, for example to replay the current
	// location.
	Subscribe(fn func(Location)) (cancel func())
}
