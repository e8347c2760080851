// Package instance names the running process in logs and worker claims.
package instance

import (
	"os"
	"strings"
)

// EnvInstanceID overrides the detected instance identifier.
const EnvInstanceID = "STOREFRONT_INSTANCE_ID"

// GetID returns the identifier of this process: STOREFRONT_INSTANCE_ID, then
// the platform dyno name, then the hostname, then "<kind>-0".
func GetID(kind string) string {
	for _, key := range []string{EnvInstanceID, "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	if kind == "" {
		kind = "storefront"
	}
	return kind + "-0"
}
