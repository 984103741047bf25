package acquire

// State is a step of an acquisition.
type State string

const (
	StateParsing     State = "parsing"
	StateResolving   State = "resolving"
	StateStagingPre  State = "staging_pre"
	StateCacheSync   State = "cache_sync"
	StateExtracting  State = "extracting"
	StateStagingPost State = "staging_post"
	StateInstalling  State = "installing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// StateHook observes transitions. It is called synchronously, so it must
// not block.
type StateHook func(spec string, state State)
