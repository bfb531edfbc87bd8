package control

// reloadHooks is process-global rather than per-ConfigStore: it lets
// code outside an Endpoint (a CLI flag watcher, a signal handler)
// subscribe to reload events without holding a reference to the
// Endpoint that triggers them.
var reloadHooks []func()

// RegisterReloadHook adds a listener invoked by TriggerHotReload.
func RegisterReloadHook(fn func()) {
	reloadHooks = append(reloadHooks, fn)
}

// TriggerHotReload dispatches all registered hooks concurrently.
// Endpoint.UpdateStaleTimeout calls this after applying a new
// StaleTimeout to every worker.
func TriggerHotReload() {
	for _, fn := range reloadHooks {
		go fn()
	}
}
