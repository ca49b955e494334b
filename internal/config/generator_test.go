package config

import (
	"context"
	"strings"
	"testing"
	"time"
)

func fixedGenerator() *Generator {
	g := NewGenerator()
	g.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return g
}

func TestGenerator_Generate_Default(t *testing.T) {
	out, err := fixedGenerator().Generate(Default())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	for _, want := range []string{
		"-- Generated: 2026-01-02T03:04:05Z\n",
		"pact_install = {\n",
		"  release = {\n",
		`    version = "1.54.4",`,
		`    base_url = "https://github.com",`,
		`    repo = "pact-ruby-standalone",`,
		"    timeout = 300,",
		"    max_entry_size = 1073741824,",
		"    receipt = true,",
		`    method = "none",`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestGenerator_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		cfg  *Config
	}{
		{
			name: "default",
			cfg:  Default(),
		},
		{
			name: "customized",
			cfg: &Config{
				Release: Release{
					Version: "1.88.51",
					BaseURL: "http://artifacts.internal:8080/mirror",
					Owner:   "acme",
					Repo:    "pact-standalone",
					Name:    "pact",
				},
				Install: InstallOptions{
					Timeout:      1500 * time.Millisecond,
					KeepArchive:  true,
					Pristine:     true,
					TempDir:      `C:\Users\ci "runner"\Temp`,
					MaxEntrySize: 4096,
				},
				Verify: Verify{Method: "gpg", Keyring: "/etc/pact/keyring.gpg"},
				Log:    Log{Level: "warn", File: "pact\tinstall.log"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, err := fixedGenerator().Generate(tt.cfg)
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}

			parsed, err := NewParser(nil).ParseString(context.Background(), code)
			if err != nil {
				t.Fatalf("ParseString() error = %v\n%s", err, code)
			}

			if *parsed != *tt.cfg {
				t.Errorf("round trip mismatch:\ngot:  %+v\nwant: %+v", *parsed, *tt.cfg)
			}
		})
	}
}

func TestGenerator_Generate_Invalid(t *testing.T) {
	cfg := Default()
	cfg.Release.Version = ""

	if _, err := NewGenerator().Generate(cfg); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestGenerator_QuoteLuaString(t *testing.T) {
	g := NewGenerator()

	tests := []struct {
		in   string
		want string
	}{
		{"simple", `"simple"`},
		{`back\slash`, `"back\\slash"`},
		{`say "hi"`, `"say \"hi\""`},
		{"line\nbreak", `"line\nbreak"`},
		{"", `""`},
	}

	for _, tt := range tests {
		if got := g.quoteLuaString(tt.in); got != tt.want {
			t.Errorf("quoteLuaString(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
