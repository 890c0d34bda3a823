// Package config loads the host's application file.
//
// The file is TOML:
//
//	[app]
//	name = "shop"
//
//	[[app.component]]
//	id = "web"
//	source = "web.wasm"
//	args = ["--port", "8080"]
//	env = { MODE = "dev" }
//
//	[log]
//	dir = "logs"        # relative to this file; omit for the default
//	follow = ["web"]    # or follow_all = true
//
// Unknown keys are rejected. Component sources and the log directory resolve
// relative to the directory holding the file.
package config
