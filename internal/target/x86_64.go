package target

// X86_64LinuxGNU is the default descriptor used when no target file is given.
func X86_64LinuxGNU() *Descriptor {
	return &Descriptor{
		Triple: "x86_64-linux-gnu",

		Bool:       TypeInfo{Size: 8, Align: 8},
		Char:       TypeInfo{Size: 8, Align: 8},
		Short:      TypeInfo{Size: 16, Align: 16},
		Int:        TypeInfo{Size: 32, Align: 32},
		Long:       TypeInfo{Size: 64, Align: 64},
		LongLong:   TypeInfo{Size: 64, Align: 64},
		Float:      TypeInfo{Size: 32, Align: 32},
		Double:     TypeInfo{Size: 64, Align: 64},
		LongDouble: TypeInfo{Size: 128, Align: 128},

		Pointer: TypeInfo{Size: 64, Align: 64},
		Endian:  LittleEndian,

		CharIsSigned: true,

		Builtins: defaultBuiltins(),
	}
}

func defaultBuiltins() []Builtin {
	return []Builtin{
		{Name: "__builtin_abs", Signature: "ii", Attrs: BuiltinConst | BuiltinLibFunction},
		{Name: "__builtin_bswap16", Signature: "ss", Attrs: BuiltinConst},
		{Name: "__builtin_bswap32", Signature: "ii", Attrs: BuiltinConst},
		{Name: "__builtin_bswap64", Signature: "LL", Attrs: BuiltinConst},
		{Name: "__builtin_clz", Signature: "ii", Attrs: BuiltinConst},
		{Name: "__builtin_ctz", Signature: "ii", Attrs: BuiltinConst},
		{Name: "__builtin_popcount", Signature: "ii", Attrs: BuiltinConst},
		{Name: "__builtin_memcpy", Signature: "*v*v*vl", Attrs: BuiltinLibFunction},
		{Name: "__builtin_memset", Signature: "*v*vil", Attrs: BuiltinLibFunction},
		{Name: "__builtin_va_start", Signature: "v*v.", Attrs: 0},
		{Name: "__builtin_va_end", Signature: "v*v", Attrs: 0},
		{Name: "__builtin_va_copy", Signature: "v*v*v", Attrs: 0},
		{Name: "__builtin_setjmp", Signature: "i*v", Attrs: 0},
		{Name: "__builtin_longjmp", Signature: "v*vi", Attrs: BuiltinNoReturn},
		{Name: "__builtin_prefetch", Signature: "v*v.", Attrs: 0},
		{Name: "__sync_synchronize", Signature: "v", Attrs: 0},
		{Name: "__sync_fetch_and_add", Signature: "i*ii", Attrs: 0},
		{Name: "__sync_fetch_and_sub", Signature: "i*ii", Attrs: 0},
		{Name: "__sync_val_compare_and_swap", Signature: "i*iii", Attrs: 0},
	}
}
