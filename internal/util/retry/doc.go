// Package retry provides exponential backoff retry logic for transient
// failures.
//
// The [WithExponentialBackoff] function retries an operation with
// configurable max attempts, initial delay, and maximum delay. It is used
// for the device-rescan and adapter-discovery sequence, where the
// hypervisor exposes no readiness signal and propagation simply takes time.
package retry
