package instance

import "os"

// GetID identifies this worker replica in log fields. Deploys set WORKER_ID
// per replica; a bare local run gets the default.
func GetID() string {
	if id := os.Getenv("WORKER_ID"); id != "" {
		return id
	}
	return "worker-0"
}
