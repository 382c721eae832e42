// Package shutdown coordinates process teardown.
//
// The CLI registers cleanup hooks (closing the device store, stopping the
// config watcher) and runs them exactly once, either when a command returns
// or when SIGINT/SIGTERM arrives:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	ctx, stop := h.Context(context.Background())
//	defer stop()
//	defer h.Shutdown()
package shutdown
