package pcaddr

import (
	"debug/elf"
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Section is one entry of an image's section table.
type Section struct {
	Name       string
	Start      uint64
	Length     uint64
	Executable bool
}

// Image is a firmware binary whose executable sections were loaded once.
type Image struct {
	Path    string
	ROM     bool
	Matcher *Matcher
}

// Contains reports whether addr is inside one of the image's executable sections.
func (img *Image) Contains(addr uint64) bool {
	return img != nil && img.Matcher.IsExecutableAddress(addr)
}

// LoadSections reads the section table of the ELF file at path. Only sections
// that occupy memory at run time are returned.
func LoadSections(path string) ([]Section, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open elf %s: %w", path, err)
	}
	defer f.Close()

	var sections []Section
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Size == 0 {
			continue
		}
		sections = append(sections, Section{
			Name:       s.Name,
			Start:      s.Addr,
			Length:     s.Size,
			Executable: s.Flags&elf.SHF_EXECINSTR != 0,
		})
	}
	return sections, nil
}

// ExecutableRanges keeps the executable sections and converts them to ranges.
func ExecutableRanges(sections []Section) []Range {
	var ranges []Range
	for _, s := range sections {
		if s.Executable {
			ranges = append(ranges, Range{Start: s.Start, Length: s.Length})
		}
	}
	return ranges
}

// LoadImage loads the executable ranges of the ELF file at path. A missing or
// unreadable file is not an error: the returned image matches no address and
// a warning is logged.
func LoadImage(logger log.Logger, path string, rom bool) *Image {
	img := &Image{Path: path, ROM: rom, Matcher: NewMatcher(nil)}
	sections, err := LoadSections(path)
	if err != nil {
		level.Warn(logger).Log("msg", "address decoding disabled for image", "path", path, "rom", rom, "err", err)
		return img
	}
	img.Matcher = NewMatcher(ExecutableRanges(sections))
	level.Debug(logger).Log("msg", "loaded image", "path", path, "rom", rom, "ranges", len(img.Matcher.Ranges()))
	return img
}
