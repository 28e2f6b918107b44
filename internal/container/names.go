package container

import (
	"fmt"
	"path/filepath"
	"strings"
)

const (
	// ToolName is the well-known name the host is restored under.
	ToolName = "fusionator.exe"
	// Suffix is appended to a payload name to name its container.
	Suffix = ".exe"
)

// ContainerName returns the path a container carrying payloadPath is written to.
func ContainerName(payloadPath string) string {
	return payloadPath + Suffix
}

// PayloadName strips Suffix from a container path. The base name must be
// longer than the suffix and end with it.
func PayloadName(containerPath string) (string, error) {
	base := filepath.Base(containerPath)
	if len(base) <= len(Suffix) || !strings.HasSuffix(base, Suffix) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, containerPath)
	}
	return containerPath[:len(containerPath)-len(Suffix)], nil
}

// HostName returns where the host segment of containerPath is restored.
func HostName(containerPath string) string {
	return filepath.Join(filepath.Dir(containerPath), ToolName)
}
