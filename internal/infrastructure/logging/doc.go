// Package logging provides structured logging using uber/zap.
//
// Production builds write JSON; development builds write colored console
// output. Packages that own a logger name it themselves; callers that
// only need a tagged child use Component:
//
//	logger, err := logging.New(logging.FromConfig(cfg.Logging))
//	accessLog := logger.Component("http")
//	accessLog.Info("request", zap.String("path", "/api/fs/list"))
//
// The CLI routes logs to stderr with FromConfig(cfg.Logging, "stderr").
package logging
