// Package api is the public entry point of jspipe. Every operation blocks
// until it is done and takes a context that cancels it. Run an operation on
// its own goroutine to use it asynchronously.
package api

import (
	"context"
	"errors"
	"fmt"
)

type SourceMap uint8

const (
	SourceMapNone SourceMap = iota
	SourceMapInline
	SourceMapLinked
	SourceMapExternal
)

type Target uint8

const (
	ESNext Target = iota
	ES5
	ES2015
	ES2016
	ES2017
	ES2018
	ES2019
	ES2020
	ES2021
)

type Format uint8

const (
	FormatDefault Format = iota
	FormatIIFE
	FormatCommonJS
	FormatESModule
)

type Location struct {
	File     string
	Line     int // 1-based
	Column   int // 0-based, in bytes
	Length   int // in bytes
	LineText string
}

type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
)

type Message struct {
	// A stable name such as "circular-import". Empty for messages without one.
	ID       string
	Severity Severity
	Text     string
	Location *Location
}

// These are the kinds of errors an operation can fail with. Match them with
// "errors.Is".
var (
	ErrSyntax            = errors.New("syntax error")
	ErrUnsupportedSyntax = errors.New("unsupported syntax")
	ErrResolution        = errors.New("resolution error")
	ErrBundle            = errors.New("bundle error")
	ErrCancelled         = errors.New("cancelled")
	ErrInternal          = errors.New("internal error")

	// The options themselves are invalid
	ErrInvalidOptions = errors.New("invalid options")
)

// Every failed operation returns an *Error. "Message" and "Location" describe
// the first error. "Notes" holds every error and warning the operation
// reported, in order.
type Error struct {
	Kind     error
	Message  string
	Location *Location
	Notes    []Message

	cause error
}

func (e *Error) Error() string {
	if loc := e.Location; loc != nil {
		return fmt.Sprintf("%s:%d:%d: %s: %s", loc.File, loc.Line, loc.Column, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// A cancelled operation unwraps to the context's error
func (e *Error) Unwrap() error {
	return e.cause
}

type Output struct {
	Code string

	// Empty unless the source map is linked or external
	Map string

	Warnings []Message
}

////////////////////////////////////////////////////////////////////////////////
// Parse API

type ParseOptions struct {
	// The name used for the file in diagnostics
	Sourcefile string

	// Parse an ES module instead of a classic script
	IsModule bool

	// Keep going after a few kinds of syntax errors. The partial tree is
	// returned together with an error listing what went wrong.
	Recover bool
}

// Parse returns the JSON serialization of the syntax tree of "source"
func Parse(ctx context.Context, source string, options ParseOptions) (string, error) {
	return parseImpl(ctx, source, options)
}

func ParseFile(ctx context.Context, path string, options ParseOptions) (string, error) {
	return parseFileImpl(ctx, path, options)
}

////////////////////////////////////////////////////////////////////////////////
// Transform API

type TransformOptions struct {
	Sourcefile string
	Target     Target
	Sourcemap  SourceMap

	// The contents of a source map for the input. Output mappings point
	// through it to the original files.
	InputSourceMap string

	MinifyWhitespace  bool
	MinifyIdentifiers bool
	MinifySyntax      bool
	MinifyTopLevel    bool

	// Maps a global name or member chain such as "process.env.NODE_ENV" to an
	// identifier or a JSON literal
	Defines map[string]string

	// The input is a tree serialized by "Parse" instead of source text
	InputIsAST bool
}

func Transform(ctx context.Context, input string, isModule bool, options TransformOptions) (Output, error) {
	return transformImpl(ctx, input, isModule, options)
}

func TransformFile(ctx context.Context, path string, isModule bool, options TransformOptions) (Output, error) {
	return transformFileImpl(ctx, path, isModule, options)
}

////////////////////////////////////////////////////////////////////////////////
// Print API

type PrintOptions struct {
	Sourcefile string
	Target     Target
	Sourcemap  SourceMap

	// The text the tree was parsed from. Source maps need it because the
	// serialized tree only stores offsets.
	SourceText string

	MinifyWhitespace bool
}

// Print renders a tree serialized by "Parse" back to source text
func Print(ctx context.Context, programJSON string, options PrintOptions) (Output, error) {
	return printImpl(ctx, programJSON, options)
}

////////////////////////////////////////////////////////////////////////////////
// Minify API

type MinifyOptions struct {
	Sourcefile string
	Target     Target
	Sourcemap  SourceMap
	IsModule   bool

	// Also shorten top-level names that are not exported
	TopLevel bool

	// Only mangle syntax and shorten names
	KeepWhitespace bool
}

func Minify(ctx context.Context, source string, options MinifyOptions) (Output, error) {
	return minifyImpl(ctx, source, options)
}

////////////////////////////////////////////////////////////////////////////////
// Bundle API

type EntryConfig struct {
	// The chunk for this entry point is named after the file without its
	// extension
	Path string
}

type BundleOptions struct {
	Target    Target
	Format    Format
	Sourcemap SourceMap

	MinifyWhitespace  bool
	MinifyIdentifiers bool
	MinifySyntax      bool
	MinifyTopLevel    bool

	Defines           map[string]string
	Externals         []string
	ResolveExtensions []string

	// Give up on a colliding name after this many numbered variants
	MaxRenameAttempts int

	// Also write every chunk (and its source map) to this directory
	Outdir string

	// Copied into "Outdir" as is
	PublicDir string
}

// Bundle returns the output chunks keyed by chunk name
func Bundle(ctx context.Context, entries []EntryConfig, options BundleOptions) (map[string]Output, error) {
	return bundleImpl(ctx, entries, options)
}

////////////////////////////////////////////////////////////////////////////////
// Environment

// TargetTriple describes the platform this binary was built for, such as
// "x86_64-unknown-linux-gnu"
func TargetTriple() string {
	return targetTripleImpl()
}

// InitTraceSubscriber writes a trace event for every phase of every later
// operation to the file at "path" as JSON lines. An empty path picks a file
// name in the working directory. Call the returned function to stop tracing
// and close the file.
func InitTraceSubscriber(path string) (func(), error) {
	return initTraceSubscriberImpl(path)
}
