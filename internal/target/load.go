package target

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// fileDescriptor mirrors the on-disk TOML layout of a target descriptor.
type fileDescriptor struct {
	Triple       string        `toml:"triple"`
	Endian       string        `toml:"endian"`
	CharIsSigned *bool         `toml:"char_signed"`
	Types        fileTypeTable `toml:"types"`
	Builtins     []fileBuiltin `toml:"builtin"`
}

type fileTypeTable struct {
	Bool       []int `toml:"bool"`
	Char       []int `toml:"char"`
	Short      []int `toml:"short"`
	Int        []int `toml:"int"`
	Long       []int `toml:"long"`
	LongLong   []int `toml:"long_long"`
	Float      []int `toml:"float"`
	Double     []int `toml:"double"`
	LongDouble []int `toml:"long_double"`
	Pointer    []int `toml:"pointer"`
}

type fileBuiltin struct {
	Name      string `toml:"name"`
	Signature string `toml:"signature"`
	Const     bool   `toml:"const"`
	NoReturn  bool   `toml:"noreturn"`
	LibFn     bool   `toml:"libfn"`
}

// LoadFile reads a TOML target descriptor. Fields omitted from the file keep
// the x86_64-linux-gnu defaults, so descriptors only spell the deltas.
func LoadFile(path string) (*Descriptor, error) {
	// #nosec G304 -- path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a TOML descriptor from memory.
func Parse(data []byte) (*Descriptor, error) {
	var fd fileDescriptor
	if err := toml.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("target descriptor: %w", err)
	}

	d := X86_64LinuxGNU()
	if fd.Triple != "" {
		d.Triple = fd.Triple
	}
	switch fd.Endian {
	case "", "little":
		d.Endian = LittleEndian
	case "big":
		d.Endian = BigEndian
	default:
		return nil, fmt.Errorf("target descriptor: unknown endianness %q", fd.Endian)
	}
	if fd.CharIsSigned != nil {
		d.CharIsSigned = *fd.CharIsSigned
	}

	apply := func(dst *TypeInfo, src []int, name string) error {
		switch len(src) {
		case 0:
			return nil
		case 2:
			dst.Size, dst.Align = src[0], src[1]
			return nil
		default:
			return fmt.Errorf("target descriptor: %s wants [size, align], got %d values", name, len(src))
		}
	}
	pairs := []struct {
		dst  *TypeInfo
		src  []int
		name string
	}{
		{&d.Bool, fd.Types.Bool, "bool"},
		{&d.Char, fd.Types.Char, "char"},
		{&d.Short, fd.Types.Short, "short"},
		{&d.Int, fd.Types.Int, "int"},
		{&d.Long, fd.Types.Long, "long"},
		{&d.LongLong, fd.Types.LongLong, "long_long"},
		{&d.Float, fd.Types.Float, "float"},
		{&d.Double, fd.Types.Double, "double"},
		{&d.LongDouble, fd.Types.LongDouble, "long_double"},
		{&d.Pointer, fd.Types.Pointer, "pointer"},
	}
	for _, p := range pairs {
		if err := apply(p.dst, p.src, p.name); err != nil {
			return nil, err
		}
	}

	if len(fd.Builtins) > 0 {
		d.Builtins = make([]Builtin, 0, len(fd.Builtins))
		for _, b := range fd.Builtins {
			var attrs BuiltinAttrs
			if b.Const {
				attrs |= BuiltinConst
			}
			if b.NoReturn {
				attrs |= BuiltinNoReturn
			}
			if b.LibFn {
				attrs |= BuiltinLibFunction
			}
			d.Builtins = append(d.Builtins, Builtin{Name: b.Name, Signature: b.Signature, Attrs: attrs})
		}
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
