// Package config loads the pact-install Lua configuration.
//
// Configs run in a gopher-lua VM with only the base, string, table and math
// libraries opened. Code loading functions and raw table access are removed,
// and a read-only `platform` table describes the host so a config can branch
// on it.
//
// # Schema
//
//	pact_install = {
//	  release = {
//	    version = "1.54.4",
//	    base_url = "https://github.com",
//	    owner = "pact-foundation",
//	    repo = "pact-ruby-standalone",
//	    name = "pact",
//	  },
//	  install = {
//	    timeout = 300,            -- seconds per HTTP request
//	    keep_archive = false,
//	    pristine = false,         -- refuse an existing destination
//	    temp_dir = "",
//	    max_entry_size = 1073741824,
//	    receipt = true,
//	  },
//	  verify = {
//	    method = "none",          -- "none", "checksum" or "gpg"
//	    keyring = "",
//	  },
//	  log = {
//	    log_level = "info",
//	    log_file = "",
//	  },
//	}
//
// Every section and field is optional; omitted values keep Default. Unknown
// fields are rejected.
//
// # Limits
//
// Config files are capped at MaxConfigSize. Evaluation is bounded by the
// context deadline, or DefaultParseTimeout when there is none.
package config
