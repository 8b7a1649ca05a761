package models

type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionPrompt  Permission = "prompt"
)

func ParsePermission(s string) (Permission, bool) {
	switch Permission(s) {
	case PermissionGranted, PermissionDenied, PermissionPrompt:
		return Permission(s), true
	default:
		return "", false
	}
}

// PermissionState is the last known permission decision. Error carries the
// platform message of the attempt that produced it, if any.
type PermissionState struct {
	Status Permission `json:"status"`
	Error  string     `json:"error,omitempty"`
}

func (p PermissionState) Granted() bool { return p.Status == PermissionGranted }
