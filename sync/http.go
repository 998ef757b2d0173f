package sync

import "time"

// HTTPRequestTimeout is the default timeout for all HTTP requests to the
// vendor and collaborator APIs.
const HTTPRequestTimeout = 60 * time.Second
