// Package crash captures uncaught panics, enriches them with environment
// metadata and writes a human-readable report before the process exits.
//
// The pipeline has three parts:
//
//   - Interceptor: installed once at startup as the process-wide default
//     handler. On a fault it runs the collector and the writer, then either
//     delegates to the handler it replaced or terminates the process after a
//     grace period.
//
//   - Collector: reads the application identity from the Host and a static
//     list of platform attributes. An attribute that cannot be read is left
//     out of the report.
//
//   - Writer: renders metadata and the fault with its cause chain into
//     <root>/<dir>/crash_<YYYY-MM-DD-HH-mm-ss>.log.
//
// Go has no hook for panics nobody recovers, so every goroutine that should be
// covered defers Recover (or is started with Go). Errors inside the pipeline
// are logged and never propagate: a failure while handling a fatal fault must
// not stop the process from terminating.
package crash
