// Package shutdown runs cleanup hooks when the process is asked to stop.
//
// Usage:
//
//	h := shutdown.NewHandler(15 * time.Second)
//	h.OnShutdown(server.Shutdown)
//	h.OnShutdown(func(context.Context) error { return kv.Close() })
//	err := h.Wait(ctx) // blocks until SIGINT/SIGTERM, Trigger or ctx is done
package shutdown
