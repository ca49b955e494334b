package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/pact-foundation/pact-install/internal/platform"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table undefined.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile reads and parses a config file.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxConfigSize+1))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%s exceeds %d bytes", path, MaxConfigSize),
		}
	}

	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string. Fields the config does not
// set keep their Default values.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &ParseError{Message: "config evaluation aborted", Detail: ctxErr.Error()}
		}
		return nil, &ParseError{
			Message: "Lua syntax error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global pact_install table over the defaults.
func extractConfig(L *lua.LState) (*Config, error) {
	root := L.GetGlobal(luaGlobalConfig)
	if root.Type() != lua.LTTable {
		return nil, &ParseError{
			Message: fmt.Sprintf("missing or invalid '%s' table", luaGlobalConfig),
			Detail:  fmt.Sprintf("expected table, got %s", root.Type()),
		}
	}

	cfg := Default()
	s := &section{table: root.(*lua.LTable), path: luaGlobalConfig}
	if err := s.checkKeys(luaFieldRelease, luaFieldInstall, luaFieldVerify, luaFieldLogSection); err != nil {
		return nil, err
	}

	steps := []struct {
		name    string
		extract func(*section, *Config) error
	}{
		{luaFieldRelease, extractRelease},
		{luaFieldInstall, extractInstall},
		{luaFieldVerify, extractVerify},
		{luaFieldLogSection, extractLog},
	}
	for _, step := range steps {
		sub, err := s.subsection(step.name)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			continue
		}
		if err := step.extract(sub, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return cfg, nil
}

func extractRelease(s *section, cfg *Config) error {
	if err := s.checkKeys(luaFieldVersion, luaFieldBaseURL, luaFieldOwner, luaFieldRepo, luaFieldName); err != nil {
		return err
	}
	return errors.Join(
		s.stringField(luaFieldVersion, &cfg.Release.Version),
		s.stringField(luaFieldBaseURL, &cfg.Release.BaseURL),
		s.stringField(luaFieldOwner, &cfg.Release.Owner),
		s.stringField(luaFieldRepo, &cfg.Release.Repo),
		s.stringField(luaFieldName, &cfg.Release.Name),
	)
}

func extractInstall(s *section, cfg *Config) error {
	if err := s.checkKeys(luaFieldTimeout, luaFieldKeep, luaFieldPristine, luaFieldTempDir, luaFieldMaxEntry, luaFieldReceipt); err != nil {
		return err
	}

	var seconds float64 = -1
	var maxEntry float64 = -1
	err := errors.Join(
		s.numberField(luaFieldTimeout, &seconds),
		s.boolField(luaFieldKeep, &cfg.Install.KeepArchive),
		s.boolField(luaFieldPristine, &cfg.Install.Pristine),
		s.stringField(luaFieldTempDir, &cfg.Install.TempDir),
		s.numberField(luaFieldMaxEntry, &maxEntry),
		s.boolField(luaFieldReceipt, &cfg.Install.Receipt),
	)
	if err != nil {
		return err
	}

	if s.has(luaFieldTimeout) {
		if seconds < 0 || seconds > math.MaxInt64/float64(time.Second) {
			return s.fieldError(luaFieldTimeout, "must be a non-negative number of seconds")
		}
		cfg.Install.Timeout = time.Duration(seconds * float64(time.Second))
	}
	if s.has(luaFieldMaxEntry) {
		if maxEntry < 0 || maxEntry != math.Trunc(maxEntry) || maxEntry > math.MaxInt64 {
			return s.fieldError(luaFieldMaxEntry, "must be a non-negative whole number of bytes")
		}
		cfg.Install.MaxEntrySize = int64(maxEntry)
	}

	return nil
}

func extractVerify(s *section, cfg *Config) error {
	if err := s.checkKeys(luaFieldMethod, luaFieldKeyring); err != nil {
		return err
	}
	return errors.Join(
		s.stringField(luaFieldMethod, &cfg.Verify.Method),
		s.stringField(luaFieldKeyring, &cfg.Verify.Keyring),
	)
}

func extractLog(s *section, cfg *Config) error {
	if err := s.checkKeys(luaFieldLogLevel, luaFieldLogFile); err != nil {
		return err
	}
	return errors.Join(
		s.stringField(luaFieldLogLevel, &cfg.Log.Level),
		s.stringField(luaFieldLogFile, &cfg.Log.File),
	)
}

// section is a Lua table at a dotted path inside the config.
type section struct {
	table *lua.LTable
	path  string
}

func (s *section) has(name string) bool {
	return s.table.RawGetString(name) != lua.LNil
}

func (s *section) fieldError(name, msg string) error {
	return &ParseError{
		Message: "invalid config field",
		Detail:  fmt.Sprintf("%s.%s %s", s.path, name, msg),
	}
}

// checkKeys rejects keys outside allowed so typos do not pass silently.
func (s *section) checkKeys(allowed ...string) error {
	known := make(map[string]bool, len(allowed))
	for _, k := range allowed {
		known[k] = true
	}

	var unknown []string
	s.table.ForEach(func(key, _ lua.LValue) {
		if k, ok := key.(lua.LString); !ok || !known[string(k)] {
			unknown = append(unknown, key.String())
		}
	})
	if len(unknown) == 0 {
		return nil
	}

	sort.Strings(unknown)
	return &ParseError{
		Message: "unknown config field",
		Detail:  fmt.Sprintf("%s: %s (allowed: %s)", s.path, strings.Join(unknown, ", "), strings.Join(allowed, ", ")),
	}
}

// subsection returns the nested table name, or nil if it is absent.
func (s *section) subsection(name string) (*section, error) {
	v := s.table.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
		return nil, nil
	case lua.LTTable:
		return &section{table: v.(*lua.LTable), path: s.path + "." + name}, nil
	default:
		return nil, s.fieldError(name, fmt.Sprintf("must be a table, got %s", v.Type()))
	}
}

func (s *section) stringField(name string, dst *string) error {
	v := s.table.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTString:
		*dst = string(v.(lua.LString))
		return nil
	default:
		return s.fieldError(name, fmt.Sprintf("must be a string, got %s", v.Type()))
	}
}

func (s *section) boolField(name string, dst *bool) error {
	v := s.table.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTBool:
		*dst = bool(v.(lua.LBool))
		return nil
	default:
		return s.fieldError(name, fmt.Sprintf("must be a boolean, got %s", v.Type()))
	}
}

func (s *section) numberField(name string, dst *float64) error {
	v := s.table.RawGetString(name)
	switch v.Type() {
	case lua.LTNil:
		return nil
	case lua.LTNumber:
		*dst = float64(v.(lua.LNumber))
		return nil
	default:
		return s.fieldError(name, fmt.Sprintf("must be a number, got %s", v.Type()))
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
