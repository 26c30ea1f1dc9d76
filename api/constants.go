package api

import "time"

const (
	// ServerReadTimeout is the HTTP server read timeout
	ServerReadTimeout = 60 * time.Second

	// ServerWriteTimeout covers the slowest conversion plus the response
	ServerWriteTimeout = 5 * time.Minute

	// ServerIdleTimeout is the HTTP server idle timeout
	ServerIdleTimeout = 60 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful shutdown
	GracefulShutdownTimeout = 10 * time.Second

	// ReapInterval is how often expired job directories are removed
	ReapInterval = time.Minute

	// DefaultFilePermissions for job directory creation
	DefaultFilePermissions = 0755

	// maxErrorLength truncates error messages returned to clients
	maxErrorLength = 200

	// multipartMemory is how much of an upload gin buffers in memory before spilling to disk
	multipartMemory = 32 << 20

	// uploadField carries the uploaded documents on every route
	uploadField = "files"
)
