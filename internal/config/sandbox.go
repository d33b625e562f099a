package config

import (
	lua "github.com/yuin/gopher-lua"
)

// sandboxLuaVM removes everything a declarative config has no use for:
// command execution, filesystem access, code loading, introspection and
// metatable tampering. string, table and math stay available.
func sandboxLuaVM(L *lua.LState) {
	for _, name := range []string{
		"require", "module", "dofile", "loadfile", "load", "loadstring",
		"getfenv", "setfenv", "getmetatable", "setmetatable",
		"rawget", "rawset", "rawequal", "collectgarbage", "newproxy",
	} {
		L.SetGlobal(name, lua.LNil)
	}
}

// newSandboxedVM creates a Lua state with only the safe standard libraries
// opened and the sandbox applied.
func newSandboxedVM() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		CallStackSize:       256,
		RegistrySize:        1024 * 8,
		IncludeGoStackTrace: false,
	})
	for _, lib := range []struct {
		name string
		open lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.open))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	sandboxLuaVM(L)
	return L
}
