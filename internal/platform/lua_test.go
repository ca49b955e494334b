package platform

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestInjectPlatformTable(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	info := &Info{
		OS:      "linux",
		Arch:    "amd64",
		ArchRaw: "x86_64",
		Release: "4.15.0",
		Is64Bit: true,
	}

	if err := InjectPlatformTable(L, info); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
		want lua.LValue
	}{
		{"os", `return platform.os`, lua.LString("linux")},
		{"arch", `return platform.arch`, lua.LString("amd64")},
		{"arch_raw", `return platform.arch_raw`, lua.LString("x86_64")},
		{"release", `return platform.release`, lua.LString("4.15.0")},
		{"description", `return platform.description`, lua.LString("Linux-4.15.0-x86_64")},
		{"is_linux", `return platform.is_linux`, lua.LTrue},
		{"is_macos", `return platform.is_macos`, lua.LFalse},
		{"is_windows", `return platform.is_windows`, lua.LFalse},
		{"is_64bit", `return platform.is_64bit`, lua.LTrue},
		{"when true", `return platform.when(platform.is_linux, "yes")`, lua.LString("yes")},
		{"when false", `return platform.when(platform.is_windows, "yes")`, lua.LNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := L.DoString(tt.code); err != nil {
				t.Fatalf("DoString(%q) error = %v", tt.code, err)
			}
			got := L.Get(-1)
			L.Pop(1)
			if got != tt.want {
				t.Errorf("%s = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestInjectPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Info{OS: "darwin"}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
	}{
		{"modify existing", `platform.os = "windows"`},
		{"add new", `platform.custom = true`},
		{"replace metatable", `setmetatable(platform, {})`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := L.DoString(tt.code)
			if err == nil {
				t.Fatalf("DoString(%q) expected error", tt.code)
			}
			if tt.name != "replace metatable" && !strings.Contains(err.Error(), "read-only") {
				t.Errorf("error = %v, want read-only error", err)
			}
		})
	}
}
