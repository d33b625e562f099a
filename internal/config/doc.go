// Package config loads the optional wasmedgeup configuration file.
//
// The file is Lua, executed in a sandboxed gopher-lua VM with the read-only
// platform table from the platform package injected, and must assign a
// global wasmedgeup table:
//
//	wasmedgeup = {
//	    install_dir      = "~/.wasmedge",
//	    tmp_dir          = "/var/tmp",
//	    releases_source  = "page",
//	    request_timeout  = 120,
//	    verify_checksum  = true,
//	    log_level        = "info",
//	    plugins = {
//	        "wasi_logging",
//	        platform.when(platform.is_linux, "wasi_nn-ggml"),
//	    },
//	}
//
// Fields left unset keep the values from Default. Timeouts are seconds.
// Values are validated after extraction and every failure is reported as a
// *ParseError.
//
// # Sandbox
//
// Only the base, string, table and math libraries are opened. os, io,
// require, load*, dofile, debug, metatable access and collectgarbage are
// unavailable, and the VM stops when the caller's context is done or after
// DefaultParseTimeout.
package config
