// Package cache implements Flux's on-disk bytecode cache: compiled
// programs are written to a `.fxc` file keyed by a hash of their source,
// and reloaded instead of recompiled when that hash and every dependency
// hash still match.
//
// The wire format is fixed: magic "FXBC" (4 bytes), little-endian u16
// format version, a length-prefixed UTF-8 compiler version string, a
// 32-byte cache key, a dependency table, a tagged constant pool, the
// entry function's own locals/parameters/instructions, and finally its
// debug info. Validation rejects a file whose magic, version, compiler
// version, or any dependency hash no longer matches the caller's view of
// the world — a stale cache is silently treated as a miss, never served.
package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kristofer/flux/pkg/bytecode"
	"github.com/kristofer/flux/pkg/compiler"
	"github.com/kristofer/flux/pkg/diagnostics"
	"github.com/kristofer/flux/pkg/value"
)

const (
	magic         = "FXBC"
	formatVersion = uint16(1)
)

// Hash is a cache key or dependency fingerprint: a SHA-256 digest.
type Hash [32]byte

// HashBytes fingerprints b.
func HashBytes(b []byte) Hash { return Hash(sha256.Sum256(b)) }

// HashFile fingerprints the file at path.
func HashFile(path string) (Hash, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Hash{}, err
	}
	return HashBytes(data), nil
}

// Dependency records a file this compilation unit's cache entry depends
// on (e.g. an imported module), and the hash it had at compile time.
type Dependency struct {
	Path string
	Hash Hash
}

// Cache stores and retrieves compiled bytecode under a directory.
type Cache struct {
	dir string
}

// New creates a Cache rooted at dir. Store creates dir on first use.
func New(dir string) *Cache {
	return &Cache{dir: dir}
}

// Info describes a cache entry's header without decoding its constants
// or instructions, for a `flux disasm`-style inspection command.
type Info struct {
	Path            string
	FormatVersion   uint16
	CompilerVersion string
	SourceHash      Hash
	Deps            []DependencyStatus
	ConstantsCount  int
	InstructionsLen int
}

// DependencyStatus reports whether a recorded dependency still hashes
// the same as when the cache entry was written.
type DependencyStatus struct {
	Dependency
	Valid bool
}

func (c *Cache) path(sourcePath string, sourceHash Hash) string {
	stem := filepath.Base(sourcePath)
	if ext := filepath.Ext(stem); ext != "" {
		stem = stem[:len(stem)-len(ext)]
	}
	if stem == "" {
		stem = "module"
	}
	return filepath.Join(c.dir, fmt.Sprintf("%s-%x.fxc", stem, sourceHash))
}

// Store writes bc to the cache under a name derived from sourcePath and
// sourceHash, alongside compilerVersion and deps for later validation.
func (c *Cache) Store(sourcePath string, sourceHash Hash, compilerVersion string, bc *compiler.Bytecode, deps []Dependency) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(c.path(sourcePath, sourceHash))
	if err != nil {
		return err
	}
	defer f.Close()
	return Encode(f, sourceHash, compilerVersion, deps, bc)
}

// Load returns the cached Bytecode for sourcePath/sourceHash if a valid,
// up-to-date entry exists, or ok=false if it's missing or stale.
func (c *Cache) Load(sourcePath string, sourceHash Hash, compilerVersion string) (bc *compiler.Bytecode, ok bool) {
	f, err := os.Open(c.path(sourcePath, sourceHash))
	if err != nil {
		return nil, false
	}
	defer f.Close()

	bc, err = Decode(f, sourceHash, compilerVersion)
	if err != nil {
		return nil, false
	}
	return bc, true
}

// Inspect reports an entry's header for sourcePath/sourceHash without
// fully decoding it, or ok=false if no entry exists.
func (c *Cache) Inspect(sourcePath string, sourceHash Hash) (Info, bool) {
	return c.InspectFile(c.path(sourcePath, sourceHash))
}

// InspectFile reports the header of the cache file at path directly.
func (c *Cache) InspectFile(path string) (Info, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, false
	}
	defer f.Close()

	info, err := readInfo(f)
	if err != nil {
		return Info{}, false
	}
	info.Path = path
	return info, true
}

// Encode writes a cache entry to w for bc, keyed by sourceHash, with
// compilerVersion and deps recorded for future validation.
func Encode(w io.Writer, sourceHash Hash, compilerVersion string, deps []Dependency, bc *compiler.Bytecode) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := writeU16(w, formatVersion); err != nil {
		return err
	}
	if err := writeString(w, compilerVersion); err != nil {
		return err
	}
	if _, err := w.Write(sourceHash[:]); err != nil {
		return err
	}

	if err := writeU32(w, uint32(len(deps))); err != nil {
		return err
	}
	for _, d := range deps {
		if err := writeString(w, d.Path); err != nil {
			return err
		}
		if _, err := w.Write(d.Hash[:]); err != nil {
			return err
		}
	}

	if err := writeU32(w, uint32(len(bc.Constants))); err != nil {
		return err
	}
	for i, c := range bc.Constants {
		if err := writeConstant(w, c); err != nil {
			return fmt.Errorf("constant %d: %w", i, err)
		}
	}

	return writeEntryFunction(w, bc.Main)
}

// Decode reads a cache entry from r, rejecting it if its magic, version,
// compiler version, or source hash don't match the caller's expectation.
func Decode(r io.Reader, wantSourceHash Hash, wantCompilerVersion string) (*compiler.Bytecode, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return nil, err
	}
	if string(gotMagic[:]) != magic {
		return nil, fmt.Errorf("cache: bad magic %q", gotMagic)
	}

	version, err := readU16(r)
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("cache: unsupported format version %d", version)
	}

	compilerVersion, err := readString(r)
	if err != nil {
		return nil, err
	}
	if compilerVersion != wantCompilerVersion {
		return nil, fmt.Errorf("cache: compiler version mismatch")
	}

	var sourceHash Hash
	if _, err := io.ReadFull(r, sourceHash[:]); err != nil {
		return nil, err
	}
	if sourceHash != wantSourceHash {
		return nil, fmt.Errorf("cache: source hash mismatch")
	}

	depsCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < depsCount; i++ {
		depPath, err := readString(r)
		if err != nil {
			return nil, err
		}
		var depHash Hash
		if _, err := io.ReadFull(r, depHash[:]); err != nil {
			return nil, err
		}
		current, err := HashFile(depPath)
		if err != nil || current != depHash {
			return nil, fmt.Errorf("cache: dependency %q is stale", depPath)
		}
	}

	constantsCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	constants := make([]value.Value, constantsCount)
	for i := uint32(0); i < constantsCount; i++ {
		c, err := readConstant(r)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		constants[i] = c
	}

	main, err := readEntryFunction(r)
	if err != nil {
		return nil, err
	}

	return &compiler.Bytecode{Main: main, Constants: constants}, nil
}

func readInfo(r io.Reader) (Info, error) {
	var gotMagic [4]byte
	if _, err := io.ReadFull(r, gotMagic[:]); err != nil {
		return Info{}, err
	}
	if string(gotMagic[:]) != magic {
		return Info{}, fmt.Errorf("cache: bad magic %q", gotMagic)
	}

	version, err := readU16(r)
	if err != nil {
		return Info{}, err
	}
	compilerVersion, err := readString(r)
	if err != nil {
		return Info{}, err
	}
	var sourceHash Hash
	if _, err := io.ReadFull(r, sourceHash[:]); err != nil {
		return Info{}, err
	}

	depsCount, err := readU32(r)
	if err != nil {
		return Info{}, err
	}
	deps := make([]DependencyStatus, depsCount)
	for i := uint32(0); i < depsCount; i++ {
		depPath, err := readString(r)
		if err != nil {
			return Info{}, err
		}
		var depHash Hash
		if _, err := io.ReadFull(r, depHash[:]); err != nil {
			return Info{}, err
		}
		current, err := HashFile(depPath)
		deps[i] = DependencyStatus{
			Dependency: Dependency{Path: depPath, Hash: depHash},
			Valid:      err == nil && current == depHash,
		}
	}

	constantsCount, err := readU32(r)
	if err != nil {
		return Info{}, err
	}
	for i := uint32(0); i < constantsCount; i++ {
		if _, err := readConstant(r); err != nil {
			return Info{}, fmt.Errorf("constant %d: %w", i, err)
		}
	}

	if _, err := readU16(r); err != nil { // NumLocals
		return Info{}, err
	}
	if _, err := readU16(r); err != nil { // NumParameters
		return Info{}, err
	}
	instLen, err := readU32(r)
	if err != nil {
		return Info{}, err
	}

	return Info{
		FormatVersion:   version,
		CompilerVersion: compilerVersion,
		SourceHash:      sourceHash,
		Deps:            deps,
		ConstantsCount:  int(constantsCount),
		InstructionsLen: int(instLen),
	}, nil
}

// constant tags, matching spec.md §6 exactly: Integer, Float, String, and
// Function (nested closures' own compiled bodies) are the only cacheable
// constant kinds.
const (
	tagInteger byte = 0
	tagFloat   byte = 1
	tagString  byte = 2
	tagFunc    byte = 3
)

func writeConstant(w io.Writer, c value.Value) error {
	switch c.Kind {
	case value.KindInteger:
		if _, err := w.Write([]byte{tagInteger}); err != nil {
			return err
		}
		return writeI64(w, c.Int)
	case value.KindFloat:
		if _, err := w.Write([]byte{tagFloat}); err != nil {
			return err
		}
		return writeF64(w, c.Float)
	case value.KindString:
		if _, err := w.Write([]byte{tagString}); err != nil {
			return err
		}
		return writeString(w, c.Str)
	case value.KindFunction:
		if _, err := w.Write([]byte{tagFunc}); err != nil {
			return err
		}
		return writeFunctionBody(w, c.Fn)
	default:
		return fmt.Errorf("unsupported constant kind: %s", value.TypeName(c))
	}
}

func readConstant(r io.Reader) (value.Value, error) {
	var tag [1]byte
	if _, err := io.ReadFull(r, tag[:]); err != nil {
		return value.Value{}, err
	}
	switch tag[0] {
	case tagInteger:
		v, err := readI64(r)
		return value.Integer(v), err
	case tagFloat:
		v, err := readF64(r)
		return value.Float(v), err
	case tagString:
		v, err := readString(r)
		return value.String(v), err
	case tagFunc:
		fn, err := readFunctionBody(r)
		if err != nil {
			return value.Value{}, err
		}
		return value.Function(fn), nil
	default:
		return value.Value{}, fmt.Errorf("cache: unknown constant tag %d", tag[0])
	}
}

// writeFunctionBody encodes a nested closure's compiled body: num_locals,
// num_parameters, and its instructions. Unlike the entry function, nested
// functions don't carry their own debug info in the cache — a stack
// trace through a reloaded closure loses file/span precision, which is
// the same trade-off the original implementation made for every function.
func writeFunctionBody(w io.Writer, fn *value.CompiledFunction) error {
	if err := writeU16(w, uint16(fn.NumLocals)); err != nil {
		return err
	}
	if err := writeU16(w, uint16(fn.NumParameters)); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(fn.Instructions))); err != nil {
		return err
	}
	_, err := w.Write(fn.Instructions)
	return err
}

func readFunctionBody(r io.Reader) (*value.CompiledFunction, error) {
	numLocals, err := readU16(r)
	if err != nil {
		return nil, err
	}
	numParams, err := readU16(r)
	if err != nil {
		return nil, err
	}
	instLen, err := readU32(r)
	if err != nil {
		return nil, err
	}
	instructions := make([]byte, instLen)
	if _, err := io.ReadFull(r, instructions); err != nil {
		return nil, err
	}
	return &value.CompiledFunction{
		Instructions:  instructions,
		NumLocals:     int(numLocals),
		NumParameters: int(numParams),
	}, nil
}

// writeEntryFunction encodes the top-level <main> function: its own
// num_locals/num_parameters (an extension over the literal wire format
// spec.md §6 describes for nested Function constants — <main> needs the
// same fields to rebuild a working Frame, since Flux's VM zero-fills
// locals from NumLocals even at the top level), its instructions, and
// its debug info.
func writeEntryFunction(w io.Writer, fn *value.CompiledFunction) error {
	if err := writeU16(w, uint16(fn.NumLocals)); err != nil {
		return err
	}
	if err := writeU16(w, uint16(fn.NumParameters)); err != nil {
		return err
	}
	if err := writeU32(w, uint32(len(fn.Instructions))); err != nil {
		return err
	}
	if _, err := w.Write(fn.Instructions); err != nil {
		return err
	}
	return writeDebugInfo(w, fn.DebugInfo)
}

func readEntryFunction(r io.Reader) (*value.CompiledFunction, error) {
	numLocals, err := readU16(r)
	if err != nil {
		return nil, err
	}
	numParams, err := readU16(r)
	if err != nil {
		return nil, err
	}
	instLen, err := readU32(r)
	if err != nil {
		return nil, err
	}
	instructions := make([]byte, instLen)
	if _, err := io.ReadFull(r, instructions); err != nil {
		return nil, err
	}
	debugInfo, err := readDebugInfo(r)
	if err != nil {
		return nil, err
	}
	return &value.CompiledFunction{
		Instructions:  instructions,
		NumLocals:     int(numLocals),
		NumParameters: int(numParams),
		DebugInfo:     debugInfo,
		Name:          "<main>",
	}, nil
}

func writeDebugInfo(w io.Writer, d *bytecode.DebugInfo) error {
	if d == nil {
		d = bytecode.NewDebugInfo()
	}
	if err := writeU32(w, uint32(len(d.Files))); err != nil {
		return err
	}
	for _, f := range d.Files {
		if err := writeString(w, f); err != nil {
			return err
		}
	}

	if err := writeU32(w, uint32(len(d.Locations))); err != nil {
		return err
	}
	for offset, loc := range d.Locations {
		if err := writeU32(w, uint32(offset)); err != nil {
			return err
		}
		if err := writeU32(w, uint32(loc.FileID)); err != nil {
			return err
		}
		if err := writeSpan(w, loc.Span); err != nil {
			return err
		}
	}
	return nil
}

func readDebugInfo(r io.Reader) (*bytecode.DebugInfo, error) {
	d := bytecode.NewDebugInfo()

	fileCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < fileCount; i++ {
		f, err := readString(r)
		if err != nil {
			return nil, err
		}
		d.Files = append(d.Files, f)
	}

	locCount, err := readU32(r)
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < locCount; i++ {
		offset, err := readU32(r)
		if err != nil {
			return nil, err
		}
		fileID, err := readU32(r)
		if err != nil {
			return nil, err
		}
		span, err := readSpan(r)
		if err != nil {
			return nil, err
		}
		d.Locations[int(offset)] = bytecode.SourceLocation{FileID: int(fileID), Span: span}
	}
	return d, nil
}

func writeSpan(w io.Writer, s diagnostics.Span) error {
	for _, v := range []int{s.Start.Line, s.Start.Column, s.End.Line, s.End.Column} {
		if err := writeU32(w, uint32(v)); err != nil {
			return err
		}
	}
	return nil
}

func readSpan(r io.Reader) (diagnostics.Span, error) {
	vals := make([]uint32, 4)
	for i := range vals {
		v, err := readU32(r)
		if err != nil {
			return diagnostics.Span{}, err
		}
		vals[i] = v
	}
	return diagnostics.Span{
		Start: diagnostics.Position{Line: int(vals[0]), Column: int(vals[1])},
		End:   diagnostics.Position{Line: int(vals[2]), Column: int(vals[3])},
	}, nil
}

func writeU16(w io.Writer, v uint16) error { return binary.Write(w, binary.LittleEndian, v) }
func writeU32(w io.Writer, v uint32) error { return binary.Write(w, binary.LittleEndian, v) }
func writeI64(w io.Writer, v int64) error  { return binary.Write(w, binary.LittleEndian, v) }
func writeF64(w io.Writer, v float64) error { return binary.Write(w, binary.LittleEndian, v) }

func writeString(w io.Writer, s string) error {
	if err := writeU32(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readU16(r io.Reader) (uint16, error) {
	var v uint16
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readU32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readI64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readF64(r io.Reader) (float64, error) {
	var v float64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func readString(r io.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
