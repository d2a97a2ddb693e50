// Package download provides the orchestration logic for fetching missing
// lyrics sidecars for a media library.
//
// # Manager
//
// The Manager runs one independent task per media file:
//
//  1. Evaluate the existing sidecar (a corrupt one is deleted)
//  2. Read the artist and title tags
//  3. Consult the miss cache (optional)
//  4. Acquire the admission gate
//  5. Resolve the lyrics link through the hop chain and download the file
//  6. Release the gate and write the sidecar atomically
//
// # Basic Usage
//
//	manager, err := download.NewManager(*settings,
//	    download.WithProgress(func(event download.ProgressEvent) {
//	        fmt.Println(event.Message)
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	report, err := manager.RunLibrary(ctx, "/music")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(&report.Summary)
//
// # Concurrency
//
// Two limits apply:
//   - MaxConcurrentRequests: how many tasks may be in their network phase
//     at once (the Gate). Sidecar checks and tag reads are not gated.
//   - MaxPendingTasks: how many tasks exist at once. The path source is
//     consumed only as fast as tasks finish.
//
// Each task opens its own HTTP session, so cookies and connections are never
// shared between tasks.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// GetProgress returns counters suitable for a progress bar.
//
// # Retry Logic
//
// Transport failures (connection errors, non-2xx statuses) are retried with
// exponential backoff, configurable via settings.DownloadMaxRetries,
// settings.DownloadRetryCooldown and settings.DownloadRetryExponent. The
// default is no retry. A page that lacks the expected element is never
// retried.
package download
