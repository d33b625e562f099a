package platform

import (
	lua "github.com/yuin/gopher-lua"
)

// InjectPlatformTable creates a read-only platform table and injects it into the Lua state as a global.
// This should be called before loading any user configuration code.
func InjectPlatformTable(L *lua.LState, desc *Descriptor) error {
	platformTable := L.NewTable()

	L.SetField(platformTable, "os", lua.LString(desc.OS))
	L.SetField(platformTable, "arch", lua.LString(desc.Arch))
	L.SetField(platformTable, "libc", lua.LString(desc.Libc))
	if desc.OSVersion != "" {
		L.SetField(platformTable, "os_version", lua.LString(desc.OSVersion))
	}
	if desc.Distro != "" {
		L.SetField(platformTable, "distro", lua.LString(desc.Distro))
	}

	L.SetField(platformTable, "is_linux", lua.LBool(desc.IsLinux()))
	L.SetField(platformTable, "is_ubuntu", lua.LBool(desc.OS == OSUbuntu))
	L.SetField(platformTable, "is_macos", lua.LBool(desc.IsDarwin()))
	L.SetField(platformTable, "is_windows", lua.LBool(desc.IsWindows()))
	L.SetField(platformTable, "is_x86_64", lua.LBool(desc.IsX86_64()))
	L.SetField(platformTable, "is_aarch64", lua.LBool(desc.IsAarch64()))
	L.SetField(platformTable, "is_glibc", lua.LBool(desc.Libc == LibcGlibc))

	// when(condition, value) returns value if condition is true, nil otherwise.
	whenFunc := L.NewFunction(func(L *lua.LState) int {
		cond := L.CheckBool(1)
		value := L.Get(2)
		if cond {
			L.Push(value)
		} else {
			L.Push(lua.LNil)
		}
		return 1
	})
	L.SetField(platformTable, "when", whenFunc)

	L.SetGlobal("platform", makeReadOnly(L, platformTable))

	return nil
}

// makeReadOnly returns an empty proxy whose metatable redirects reads to
// table and raises on every write.
func makeReadOnly(L *lua.LState, table *lua.LTable) *lua.LTable {
	mt := L.NewTable()
	L.SetField(mt, "__index", table)
	L.SetField(mt, "__newindex", L.NewFunction(func(L *lua.LState) int {
		L.RaiseError("platform table is read-only and cannot be modified")
		return 0
	}))
	L.SetField(mt, "__metatable", lua.LString("protected"))

	proxy := L.NewTable()
	L.SetMetatable(proxy, mt)

	return proxy
}
