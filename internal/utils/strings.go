// Package utils provides small helpers shared by the gateway packages.
package utils

// MaskKey masks a credential for logs and CLI output, keeping the first 8
// and last 4 characters.
func MaskKey(key string) string {
	if key == "" {
		return "(empty)"
	}
	if len(key) < 16 {
		return "****"
	}
	return key[:8] + "..." + key[len(key)-4:]
}
