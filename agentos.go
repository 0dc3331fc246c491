// Package agentos identifies the Agent-OS orchestration engine
package agentos

const (
	// Name is the service name reported in logs and health checks
	Name = "agent-os"

	// Version is the engine release version
	Version = "0.1.0"
)
