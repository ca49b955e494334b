package config

import (
	lua "github.com/yuin/gopher-lua"
)

// safeLibs are the only standard libraries opened in a config VM.
var safeLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// blockedGlobals are base functions that load code or bypass the
// read-only platform table.
var blockedGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"rawset",
	"rawget",
	"collectgarbage",
}

// newSandboxedVM creates a Lua VM for config parsing. The os, io, package,
// channel, coroutine and debug libraries are never opened.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: luaCallStackSize,
		RegistrySize:  luaRegistrySize,
	})

	for _, lib := range safeLibs {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	return L
}
