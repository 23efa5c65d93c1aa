// Package shutdown coordinates graceful shutdown of long-running CLI
// modes such as subscribe and bench.
//
// A Handler waits for SIGINT or SIGTERM (or a programmatic Trigger),
// then runs the registered hooks in reverse order under a timeout:
//
//	h := shutdown.NewHandler(5 * time.Second)
//	h.OnShutdown(func(ctx context.Context) error { client.Close(); return nil })
//	err := h.Wait(ctx)
package shutdown
