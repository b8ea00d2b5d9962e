package hmc

import "fmt"

// ConnectionError indicates the transport could not be established. Nothing
// has been mutated when it occurs, so no rollback is required.
type ConnectionError struct {
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to HMC %s: %v", e.Host, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ResourceFetchError indicates a REST document could not be retrieved.
type ResourceFetchError struct {
	Path       string
	StatusCode int
	Body       string
	Err        error
}

func (e *ResourceFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("REST GET %s failed: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("REST GET %s failed: HTTP %d", e.Path, e.StatusCode)
}

func (e *ResourceFetchError) Unwrap() error {
	return e.Err
}
