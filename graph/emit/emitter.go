package emit

// Emitter receives observability events from graph execution.
//
// Implementations must be safe for concurrent use (one engine may execute
// many runs at once) and must not panic: a broken observability backend
// should never take a run down with it. Emit is called synchronously on the
// execution path, so slow backends should buffer or drop rather than block.
type Emitter interface {
	Emit(event Event)
}
