// Package shell wires an install root into the user's shells.
//
// Configure writes one environment script per shell family into the root
// (env for POSIX shells, env.fish, env.nu) and appends a line sourcing it
// to each present shell's startup file. Deconfigure removes those lines
// again. On Windows the root's bin directory is added to, or removed from,
// the per-user Path value in the registry instead.
//
// The set of shells is closed: sh, bash, zsh, fish and nushell. Each
// ShellType answers the same small set of questions (is it present, which
// startup files does it read, which script does it source and how) and the
// Integration drives them uniformly.
//
// Nothing here reads the process environment directly. Callers pass an Env,
// usually from EnvFromOS, so tests can point every path at a temp dir.
//
// Startup files are rewritten atomically through a temp file in the same
// directory, and every line is added at most once.
package shell
