package instance

import "os"

// GetID returns the process instance identifier or a default value.
// Deployments set TAHANAN_INSTANCE_ID per replica so log lines can be
// attributed when several copies run behind the gateway.
func GetID() string {
	if id := os.Getenv("TAHANAN_INSTANCE_ID"); id != "" {
		return id
	}
	return "api-0"
}
