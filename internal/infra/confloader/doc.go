// Package confloader loads layered configuration with koanf and watches
// files for changes with fsnotify.
//
// Callers put defaults in the target struct and list sources from lowest
// to highest precedence:
//
//	cfg := Default()
//	err := confloader.Load(cfg,
//		confloader.File(path),
//		confloader.Env("TAGURL_"),
//		confloader.Map(flagOverrides),
//	)
//
// Watcher reports writes to individual files. The TLS certificate
// reloader and the file key store use it.
package confloader
