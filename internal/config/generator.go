package config

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Generator generates Lua configuration code from a Config.
type Generator struct {
	indent string // Indentation string (default: two spaces)
	now    func() time.Time
}

// NewGenerator creates a new Lua config generator.
func NewGenerator() *Generator {
	return &Generator{
		indent: "  ", // Two spaces
		now:    time.Now,
	}
}

// Generate generates Lua code from a Config. Every field is written, so the
// output documents the full schema and parses back to an equal Config.
func (g *Generator) Generate(config *Config) (string, error) {
	if err := config.Validate(); err != nil {
		return "", err
	}

	var buf bytes.Buffer

	buf.WriteString("-- pact-install configuration\n")
	buf.WriteString("-- Generated: ")
	buf.WriteString(g.now().UTC().Format(time.RFC3339))
	buf.WriteString("\n--\n")
	buf.WriteString("-- The read-only `platform` table is available, e.g.\n")
	buf.WriteString("--   temp_dir = platform.is_windows and \"C:\\\\Temp\" or \"/tmp\",\n\n")

	buf.WriteString(luaGlobalConfig)
	buf.WriteString(" = {\n")

	g.writeSection(&buf, luaFieldRelease, [][2]string{
		{luaFieldVersion, g.quoteLuaString(config.Release.Version)},
		{luaFieldBaseURL, g.quoteLuaString(config.Release.BaseURL)},
		{luaFieldOwner, g.quoteLuaString(config.Release.Owner)},
		{luaFieldRepo, g.quoteLuaString(config.Release.Repo)},
		{luaFieldName, g.quoteLuaString(config.Release.Name)},
	})

	g.writeSection(&buf, luaFieldInstall, [][2]string{
		{luaFieldTimeout, formatSeconds(config.Install.Timeout)},
		{luaFieldKeep, strconv.FormatBool(config.Install.KeepArchive)},
		{luaFieldPristine, strconv.FormatBool(config.Install.Pristine)},
		{luaFieldTempDir, g.quoteLuaString(config.Install.TempDir)},
		{luaFieldMaxEntry, strconv.FormatInt(config.Install.MaxEntrySize, 10)},
		{luaFieldReceipt, strconv.FormatBool(config.Install.Receipt)},
	})

	g.writeSection(&buf, luaFieldVerify, [][2]string{
		{luaFieldMethod, g.quoteLuaString(config.Verify.Method)},
		{luaFieldKeyring, g.quoteLuaString(config.Verify.Keyring)},
	})

	g.writeSection(&buf, luaFieldLogSection, [][2]string{
		{luaFieldLogLevel, g.quoteLuaString(config.Log.Level)},
		{luaFieldLogFile, g.quoteLuaString(config.Log.File)},
	})

	buf.WriteString("}\n")

	return buf.String(), nil
}

// writeSection writes a nested table of pre-rendered values.
func (g *Generator) writeSection(buf *bytes.Buffer, name string, fields [][2]string) {
	buf.WriteString(g.indent)
	buf.WriteString(name)
	buf.WriteString(" = {\n")

	for _, field := range fields {
		buf.WriteString(g.indent)
		buf.WriteString(g.indent)
		fmt.Fprintf(buf, "%s = %s,\n", field[0], field[1])
	}

	buf.WriteString(g.indent)
	buf.WriteString("},\n")
}

// formatSeconds renders a duration as a Lua number of seconds.
func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

// quoteLuaString quotes a string for Lua, handling special characters.
func (g *Generator) quoteLuaString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\") // Escape backslashes first
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return "\"" + s + "\""
}
