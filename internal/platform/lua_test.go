package platform

import (
	"strings"
	"testing"

	lua "github.com/yuin/gopher-lua"
)

func TestInjectPlatformTable_Ubuntu(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	desc := &Descriptor{
		OS:        OSUbuntu,
		Arch:      ArchX86_64,
		Libc:      LibcGlibc,
		OSVersion: "22.04",
		Distro:    "ubuntu",
	}

	if err := InjectPlatformTable(L, desc); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	tests := []struct {
		name string
		code string
		want lua.LValue
	}{
		{"os", `return platform.os`, lua.LString("Ubuntu")},
		{"arch", `return platform.arch`, lua.LString("x86_64")},
		{"libc", `return platform.libc`, lua.LString("glibc")},
		{"os_version", `return platform.os_version`, lua.LString("22.04")},
		{"distro", `return platform.distro`, lua.LString("ubuntu")},
		{"is_linux", `return platform.is_linux`, lua.LTrue},
		{"is_ubuntu", `return platform.is_ubuntu`, lua.LTrue},
		{"is_macos", `return platform.is_macos`, lua.LFalse},
		{"is_windows", `return platform.is_windows`, lua.LFalse},
		{"is_x86_64", `return platform.is_x86_64`, lua.LTrue},
		{"is_aarch64", `return platform.is_aarch64`, lua.LFalse},
		{"is_glibc", `return platform.is_glibc`, lua.LTrue},
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

func TestInjectPlatformTable_DarwinOmitsEmptyFields(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Descriptor{OS: OSDarwin, Arch: ArchAarch64, Libc: LibcUnknown}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	if err := L.DoString(`return platform.os_version == nil and platform.distro == nil`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := L.Get(-1); got != lua.LTrue {
		t.Errorf("expected os_version and distro to be nil, got %v", got)
	}
}

func TestInjectPlatformTable_When(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Descriptor{OS: OSLinux, Arch: ArchAarch64, Libc: LibcMusl}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	if err := L.DoString(`return platform.when(platform.is_aarch64, "arm"), platform.when(platform.is_glibc, "gnu")`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if got := L.Get(-2); got != lua.LString("arm") {
		t.Errorf("when(true) = %v, want arm", got)
	}
	if got := L.Get(-1); got != lua.LNil {
		t.Errorf("when(false) = %v, want nil", got)
	}
}

func TestInjectPlatformTable_ReadOnly(t *testing.T) {
	L := lua.NewState()
	defer L.Close()

	if err := InjectPlatformTable(L, &Descriptor{OS: OSLinux, Arch: ArchX86_64, Libc: LibcGlibc}); err != nil {
		t.Fatalf("InjectPlatformTable() error = %v", err)
	}

	for _, code := range []string{
		`platform.os = "Windows"`,
		`platform.new_field = 1`,
		`setmetatable(platform, {})`,
	} {
		err := L.DoString(code)
		if err == nil {
			t.Errorf("%q should fail on a read-only table", code)
			continue
		}
		if !strings.Contains(err.Error(), "read-only") && !strings.Contains(err.Error(), "protected") {
			t.Errorf("%q: unexpected error %v", code, err)
		}
	}
}
