// Package testutil assembles small WebAssembly contracts for tests.
//
// Modules built here export "memory" (one page), a bump "allocate" and
// whatever entry points a test adds, and import host functions from the
// "ledgerhost" module using the packed i64 ptr+len convention.
package testutil

import "encoding/binary"

// ValType is a WebAssembly value type.
type ValType byte

// Value types.
const (
	I32 ValType = 0x7f
	I64 ValType = 0x7e
)

// Opcodes used by the test contracts.
const (
	OpUnreachable   byte = 0x00
	OpLoop          byte = 0x03
	OpBr            byte = 0x0c
	OpEnd           byte = 0x0b
	OpCall          byte = 0x10
	OpDrop          byte = 0x1a
	OpLocalGet      byte = 0x20
	OpGlobalGet     byte = 0x23
	OpGlobalSet     byte = 0x24
	OpI32Const      byte = 0x41
	OpI64Const      byte = 0x42
	OpI32Add        byte = 0x6a
	OpI64Or         byte = 0x84
	OpI64Shl        byte = 0x86
	OpI64ExtendI32U byte = 0xad
)

// HostModule is the import module of the ledger ABI.
const HostModule = "ledgerhost"

// HeapStart is where allocate starts handing out memory. Data segments
// placed below it are never overwritten.
const HeapStart = 1024

// FuncType is a function signature.
type FuncType struct {
	Params  []ValType
	Results []ValType
}

// HostFunc is the signature of every JSON host function.
var HostFunc = FuncType{Params: []ValType{I64}, Results: []ValType{I64}}

// EntryFunc is the signature of instantiate and main.
var EntryFunc = FuncType{Params: []ValType{I32, I32}, Results: []ValType{I64}}

type export struct {
	name string
	kind byte
	idx  uint32
}

type segment struct {
	offset int32
	data   []byte
}

// Builder assembles a module. Imports must be added before functions.
type Builder struct {
	types    [][]byte
	imports  [][]byte
	funcs    []uint32
	bodies   [][]byte
	exports  []export
	segments []segment
}

// NewBuilder returns an empty builder. Bytes adds the memory and allocate
// exports, so it must be called once.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) typeIndex(ft FuncType) uint32 {
	enc := []byte{0x60}
	enc = appendVec(enc, valTypes(ft.Params))
	enc = appendVec(enc, valTypes(ft.Results))
	for i, t := range b.types {
		if string(t) == string(enc) {
			return uint32(i) //nolint:gosec // small test modules
		}
	}
	b.types = append(b.types, enc)
	return uint32(len(b.types) - 1) //nolint:gosec // small test modules
}

// Import declares a host function and returns its function index.
func (b *Builder) Import(module, name string, ft FuncType) uint32 {
	if len(b.funcs) > 0 {
		panic("testutil: imports must precede functions")
	}
	enc := appendName(nil, module)
	enc = appendName(enc, name)
	enc = append(enc, 0x00)
	enc = binary.AppendUvarint(enc, uint64(b.typeIndex(ft)))
	b.imports = append(b.imports, enc)
	return uint32(len(b.imports) - 1) //nolint:gosec // small test modules
}

// ImportHost imports a JSON host function from the ledger module.
func (b *Builder) ImportHost(name string) uint32 {
	return b.Import(HostModule, name, HostFunc)
}

// Func adds a function without locals and returns its index. body must not
// include the final end opcode.
func (b *Builder) Func(ft FuncType, body ...byte) uint32 {
	b.funcs = append(b.funcs, b.typeIndex(ft))
	code := append([]byte{0x00}, body...)
	code = append(code, OpEnd)
	b.bodies = append(b.bodies, code)
	return uint32(len(b.imports) + len(b.funcs) - 1) //nolint:gosec // small test modules
}

// Export exports function idx under name.
func (b *Builder) Export(name string, idx uint32) *Builder {
	b.exports = append(b.exports, export{name: name, kind: 0x00, idx: idx})
	return b
}

// Data places bytes at a fixed memory offset below HeapStart.
func (b *Builder) Data(offset int32, data []byte) *Builder {
	b.segments = append(b.segments, segment{offset: offset, data: data})
	return b
}

// Bytes encodes the module. allocate is appended as the last function.
func (b *Builder) Bytes() []byte {
	// allocate(size) returns the heap pointer and bumps it by size.
	alloc := b.Func(FuncType{Params: []ValType{I32}, Results: []ValType{I32}},
		OpGlobalGet, 0, OpGlobalGet, 0, OpLocalGet, 0, OpI32Add, OpGlobalSet, 0)
	exports := append([]export{
		{name: "memory", kind: 0x02, idx: 0},
		{name: "allocate", kind: 0x00, idx: alloc},
	}, b.exports...)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = appendSection(out, 1, vec(b.types))
	if len(b.imports) > 0 {
		out = appendSection(out, 2, vec(b.imports))
	}
	funcs := make([][]byte, len(b.funcs))
	for i, t := range b.funcs {
		funcs[i] = binary.AppendUvarint(nil, uint64(t))
	}
	out = appendSection(out, 3, vec(funcs))
	out = appendSection(out, 5, vec([][]byte{{0x00, 0x01}}))

	global := []byte{byte(I32), 0x01, OpI32Const}
	global = appendSLEB(global, HeapStart)
	global = append(global, OpEnd)
	out = appendSection(out, 6, vec([][]byte{global}))

	exps := make([][]byte, len(exports))
	for i, e := range exports {
		enc := appendName(nil, e.name)
		enc = append(enc, e.kind)
		exps[i] = binary.AppendUvarint(enc, uint64(e.idx))
	}
	out = appendSection(out, 7, vec(exps))

	bodies := make([][]byte, len(b.bodies))
	for i, body := range b.bodies {
		bodies[i] = append(binary.AppendUvarint(nil, uint64(len(body))), body...)
	}
	out = appendSection(out, 10, vec(bodies))

	if len(b.segments) > 0 {
		segs := make([][]byte, len(b.segments))
		for i, s := range b.segments {
			enc := []byte{0x00, OpI32Const}
			enc = appendSLEB(enc, int64(s.offset))
			enc = append(enc, OpEnd)
			enc = binary.AppendUvarint(enc, uint64(len(s.data)))
			segs[i] = append(enc, s.data...)
		}
		out = appendSection(out, 11, vec(segs))
	}
	return out
}

// Pack emits the instructions that build ptr<<32|len from two i32 values
// pushed by ptr and length.
func Pack(ptr, length []byte) []byte {
	out := append([]byte{}, ptr...)
	out = append(out, OpI64ExtendI32U, OpI64Const, 32, OpI64Shl)
	out = append(out, length...)
	return append(out, OpI64ExtendI32U, OpI64Or)
}

// I32Const emits i32.const v.
func I32Const(v int32) []byte {
	return appendSLEB([]byte{OpI32Const}, int64(v))
}

// LocalGet emits local.get i.
func LocalGet(i uint32) []byte {
	return binary.AppendUvarint([]byte{OpLocalGet}, uint64(i))
}

// Call emits call idx.
func Call(idx uint32) []byte {
	return binary.AppendUvarint([]byte{OpCall}, uint64(idx))
}

// Concat joins instruction sequences.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// EchoContract returns a module whose main returns its calldata.
func EchoContract() []byte {
	b := NewBuilder()
	main := b.Func(EntryFunc, Pack(LocalGet(0), LocalGet(1))...)
	return b.Export("main", main).Bytes()
}

// TrapContract returns a module whose main executes unreachable.
func TrapContract() []byte {
	b := NewBuilder()
	main := b.Func(EntryFunc, OpUnreachable)
	return b.Export("main", main).Bytes()
}

// LoopContract returns a module whose main never returns.
func LoopContract() []byte {
	b := NewBuilder()
	main := b.Func(EntryFunc, OpLoop, 0x40, OpBr, 0, OpEnd, OpUnreachable)
	return b.Export("main", main).Bytes()
}

// HostCallContract returns a module whose main ignores its calldata, calls
// host function fn with the fixed request and returns the raw response.
// When withInstantiate is set the same body is exported as instantiate.
func HostCallContract(fn string, request []byte, withInstantiate bool) []byte {
	const reqOffset = 16
	b := NewBuilder()
	host := b.ImportHost(fn)
	body := Concat(Pack(I32Const(reqOffset), I32Const(int32(len(request)))), Call(host)) //nolint:gosec // small test requests
	main := b.Func(EntryFunc, body...)
	b.Export("main", main)
	if withInstantiate {
		b.Export("instantiate", main)
	}
	return b.Data(reqOffset, request).Bytes()
}

// ForwardContract returns a module whose main passes its calldata to host
// function fn unchanged and returns the response.
func ForwardContract(fn string) []byte {
	b := NewBuilder()
	host := b.ImportHost(fn)
	main := b.Func(EntryFunc, Concat(Pack(LocalGet(0), LocalGet(1)), Call(host))...)
	return b.Export("main", main).Bytes()
}

func valTypes(ts []ValType) [][]byte {
	out := make([][]byte, len(ts))
	for i, t := range ts {
		out[i] = []byte{byte(t)}
	}
	return out
}

func vec(items [][]byte) []byte {
	out := binary.AppendUvarint(nil, uint64(len(items)))
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func appendVec(dst []byte, items [][]byte) []byte {
	return append(dst, vec(items)...)
}

// appendSLEB appends v as signed LEB128, the encoding of const immediates.
func appendSLEB(dst []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(dst, b)
		}
		dst = append(dst, b|0x80)
	}
}

func appendName(dst []byte, name string) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(name)))
	return append(dst, name...)
}

func appendSection(dst []byte, id byte, content []byte) []byte {
	dst = append(dst, id)
	dst = binary.AppendUvarint(dst, uint64(len(content)))
	return append(dst, content...)
}
