package browse

import (
	"gopress/internal/content"
)

// Phase is the acquisition state of the current filter.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingInitial
	PhaseLoaded
	PhaseLoadingMore
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingInitial:
		return "loading_initial"
	case PhaseLoaded:
		return "loaded"
	case PhaseLoadingMore:
		return "loading_more"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the authoritative acquisition state. Key is meaningless while Idle.
type State struct {
	Phase Phase
	Key   content.FilterKey
	Err   error
}

// View is what the rendering layer draws for the current filter.
type View struct {
	Key     content.FilterKey
	State   State
	Posts   []content.Post
	Page    int
	HasMore bool
}

// Loading reports whether a fetch for the current filter is outstanding.
func (v View) Loading() bool {
	return v.State.Phase == PhaseLoadingInitial || v.State.Phase == PhaseLoadingMore
}

// request tags an issued fetch with what it was issued for.
type request struct {
	key  content.FilterKey
	page int
	gen  uint64
}

// exhausted decides whether a fetched page is the last one.
func exhausted(p content.PostPage, page, pageSize int) bool {
	return p.IsLast(page, pageSize)
}
