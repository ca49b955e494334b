package config

import "time"

// Lua schema field names and globals
const (
	luaGlobalConfig    = "pact_install"
	luaFieldRelease    = "release"
	luaFieldInstall    = "install"
	luaFieldVerify     = "verify"
	luaFieldVersion    = "version"
	luaFieldBaseURL    = "base_url"
	luaFieldOwner      = "owner"
	luaFieldRepo       = "repo"
	luaFieldName       = "name"
	luaFieldTimeout    = "timeout"
	luaFieldKeep       = "keep_archive"
	luaFieldPristine   = "pristine"
	luaFieldTempDir    = "temp_dir"
	luaFieldMaxEntry   = "max_entry_size"
	luaFieldReceipt    = "receipt"
	luaFieldMethod     = "method"
	luaFieldKeyring    = "keyring"
	luaFieldLogLevel   = "log_level"
	luaFieldLogFile    = "log_file"
	luaFieldLogSection = "log"
)

// Resource limits for parsing user configs
const (
	// DefaultFileName is looked up in the working directory when no
	// config path is given.
	DefaultFileName = "pact-install.lua"

	// MaxConfigSize bounds the config file read from disk.
	MaxConfigSize = 1 << 20

	// DefaultParseTimeout applies when the context carries no deadline.
	DefaultParseTimeout = 5 * time.Second

	luaCallStackSize = 256
	luaRegistrySize  = 8 * 1024
)
