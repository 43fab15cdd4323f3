package instance

import "os"

// GetID identifies the running process for log correlation. Cloud Run sets
// K_REVISION; WORKER_ID overrides it for local multi-worker runs.
func GetID(fallback string) string {
	for _, key := range []string{"WORKER_ID", "K_REVISION", "HOSTNAME"} {
		if id := os.Getenv(key); id != "" {
			return id
		}
	}
	return fallback
}
