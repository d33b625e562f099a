package config

import "time"

// Lua schema field names and globals
const (
	luaGlobal              = "wasmedgeup"
	luaFieldInstallDir     = "install_dir"
	luaFieldTmpDir         = "tmp_dir"
	luaFieldReleaseBaseURL = "release_base_url"
	luaFieldAPIBaseURL     = "api_base_url"
	luaFieldReleasesPage   = "releases_page_url"
	luaFieldReleasesSource = "releases_source"
	luaFieldConnectTimeout = "connect_timeout"
	luaFieldRequestTimeout = "request_timeout"
	luaFieldRetries        = "retries"
	luaFieldVerifyChecksum = "verify_checksum"
	luaFieldLogLevel       = "log_level"
	luaFieldPlugins        = "plugins"
)

const (
	// SourceAPI lists releases through the GitHub REST API.
	SourceAPI = "api"
	// SourcePage scrapes the HTML release listing.
	SourcePage = "page"
)

const (
	// MaxConfigSize bounds the config file read from disk.
	MaxConfigSize = 1 << 20
	// DefaultParseTimeout bounds Lua execution when the context has no deadline.
	DefaultParseTimeout = 5 * time.Second
	// MaxPlugins bounds the plugins list.
	MaxPlugins = 256

	maxRetries = 10
)
