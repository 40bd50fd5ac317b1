package domain

// Process is the handle to a running download or post-processing step.
type Process interface {
	// Done is closed once the step has exited.
	Done() <-chan struct{}
	// Result is only meaningful after Done is closed.
	Result() Result
	// Interrupt asks the step to stop.
	Interrupt() error
	// Kill stops the step without waiting for it to cooperate.
	Kill() error
}

// Result is what a step reports when it exits.
type Result struct {
	Err error
	// PlaylistID is set when the download step created an ephemeral playlist.
	PlaylistID string
	// URL replaces Item.URL when the step resolved the source to another
	// locator, e.g. a mix materialised as a playlist.
	URL string
}

func (r Result) OK() bool {
	return r.Err == nil
}
