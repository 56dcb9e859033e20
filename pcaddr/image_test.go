package pcaddr

import (
	"debug/elf"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/require"
)

func TestLoadSections_TestBinary(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	sections, err := LoadSections(exe)
	require.NoError(t, err)

	var text *Section
	for i := range sections {
		if sections[i].Name == ".text" {
			text = &sections[i]
		}
	}
	require.NotNil(t, text, "test binary has no .text section")
	require.True(t, text.Executable)
	require.NotEmpty(t, ExecutableRanges(sections))

	for _, s := range sections {
		if s.Name == ".rodata" {
			require.False(t, s.Executable)
		}
	}
}

func TestLoadImage_MatchesOwnCode(t *testing.T) {
	exe, err := os.Executable()
	require.NoError(t, err)

	f, err := elf.Open(exe)
	require.NoError(t, err)
	fileType := f.Type
	f.Close()
	if fileType != elf.ET_EXEC {
		t.Skip("position independent test binary, run time addresses differ from the image")
	}

	img := LoadImage(log.NewNopLogger(), exe, false)
	require.False(t, img.Matcher.Empty())

	pc := uint64(reflect.ValueOf(TestLoadImage_MatchesOwnCode).Pointer())
	require.True(t, img.Contains(pc))
	require.False(t, img.Contains(0))
}

func TestLoadImage_Missing(t *testing.T) {
	img := LoadImage(log.NewNopLogger(), filepath.Join(t.TempDir(), "missing.elf"), true)
	require.NotNil(t, img)
	require.True(t, img.ROM)
	require.True(t, img.Matcher.Empty())
	require.False(t, img.Contains(0x40000400))
}

func TestLoadImage_NotAnELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.elf")
	require.NoError(t, os.WriteFile(path, []byte("definitely not an elf"), 0o644))

	_, err := LoadSections(path)
	require.Error(t, err)

	img := LoadImage(log.NewNopLogger(), path, false)
	require.True(t, img.Matcher.Empty())
}

func TestExecutableRanges(t *testing.T) {
	ranges := ExecutableRanges([]Section{
		{Name: ".iram0.text", Start: 0x40080000, Length: 0x100, Executable: true},
		{Name: ".dram0.data", Start: 0x3ffb0000, Length: 0x200},
		{Name: ".flash.text", Start: 0x400d0020, Length: 0x300, Executable: true},
	})
	require.Equal(t, []Range{
		{Start: 0x40080000, Length: 0x100},
		{Start: 0x400d0020, Length: 0x300},
	}, ranges)
}
