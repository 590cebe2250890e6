/*
Package monitoring provides Prometheus metrics for the drive service.

# Overview

Metrics live on a private registry created by NewMetrics. The collector
covers HTTP requests, contents API calls, filesystem operations, transfer
volume and WebSocket streams.

# Usage

	metrics := monitoring.NewMetrics()

	// HTTP
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Contents API client and engine
	client := objectstore.New(objectstore.Options{Recorder: metrics})
	engine := vfs.New(client, store, vfs.WithMetrics(metrics))

Backend outcomes use the labels produced by objectstore.Outcome; tree
operations add "partial" for aggregate failures and "warning" for renames
that left the original behind.
*/
package monitoring
