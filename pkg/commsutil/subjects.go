package commsutil

import (
	"fmt"
	"strings"
)

// Default COMMS subjects for client-side events.
const (
	SubjectSessionExpired = "client.session.expired"
	SubjectNotification   = "client.notify.error"
)

// BuildProfileSubject scopes base to a credential profile so listeners can
// follow one session. Dots in the profile are replaced to keep one token.
func BuildProfileSubject(base, profile string) string {
	if profile == "" {
		return base
	}
	safe := strings.ReplaceAll(profile, ".", "_")
	return fmt.Sprintf("%s.%s", base, safe)
}
