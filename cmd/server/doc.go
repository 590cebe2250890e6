// Package main is the entry point for the gitdrive server.
//
// gitdrive presents a directory of a GitHub repository as a drive: files
// and folders are listed, uploaded, renamed, copied and deleted through the
// repository contents API, one commit per file.
//
// Architecture:
//
//	Browser UI → gitdrive (gin) → Contents API (HTTPS)
//	                           → raw content host / mirror
//
// The server provides:
//   - REST API for configuration and file operations under /api
//   - WebSocket progress stream for recursive operations
//   - Archive download of whole folders
//   - Prometheus metrics and health checks
//
// Configuration:
//   - Environment variables (12-factor)
//   - CLI flags (override env vars)
//   - Repository coordinates in a settings file, set through PUT /api/config
//
// Access:
//   - The server holds a write-scoped token and has no login; it listens on
//     127.0.0.1 unless HOST or -host says otherwise
//   - Browsers may call it only from ALLOWED_ORIGINS (CORS and the stream)
//
// Usage:
//
//	# Production mode
//	./server -port 8000 -settings /var/lib/gitdrive/drive.toml
//
//	# Development mode (colored logs, debug level)
//	./server -dev
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
