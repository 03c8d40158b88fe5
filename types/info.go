package types

// InfoResponse is the application's reply to Info, sent by the engine on
// every startup to decide between genesis and replay.
type InfoResponse struct {
	// Version string of the application software.
	AppVersion string `cramberry:"1"`
	// Last committed version. 0 = app has no state.
	LastVersion uint64 `cramberry:"2"`
	// App hash at LastVersion.
	LastAppHash AppHash `cramberry:"3"`
	// Chain the stored state belongs to. Empty if LastVersion is 0.
	ChainID string `cramberry:"4"`
}
