// Package ws streams progress of long-running tree operations over a
// WebSocket.
//
// Recursive deletes, copies and renames make one backend call per file.
// Over plain HTTP the client only sees the final result; the stream forwards
// every completed step as it happens.
//
// Message Types (Client → Server):
//   - delete_dir: {path}
//   - copy_dir: {path, dst}
//   - rename_file, rename_dir: {path, new_name}
//   - ping: Keep-alive ping
//
// Message Types (Server → Client):
//   - system: connection established
//   - progress: one backend step finished, with message set on failure
//   - complete: operation finished, result holds the final path
//   - warning: renamed, but the original could not be removed
//   - partial: some paths failed, listed in failures
//   - error: operation rejected or failed outright
//
// Operations on one connection run one at a time, in order.
//
// Example Usage:
//
//	handler := ws.NewHandler(engine, metrics, logger, cfg.Server.AllowedOrigins)
//	router.GET("/api/fs/stream", handler.HandleConnection)
package ws
