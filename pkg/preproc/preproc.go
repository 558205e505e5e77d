// Package preproc drives C preprocessing for the compiler. Earlier the
// backend delegated this step to a system C preprocessor (cc -E), the
// way CompCert does; since this backend targets two bespoke embedded
// ISAs with no system cc of their own to delegate to, preprocessing is
// now done in-process by pkg/cpp, and this package is just the thin
// Options/Preprocess entry point cmd/lilycc calls.
package preproc

import (
	"github.com/robotman2412/lily-cc-go/pkg/cpp"
)

// Options configures the preprocessing step.
type Options struct {
	IncludePaths []string          // -I directories
	Defines      map[string]string // -D macros (name -> value, empty string for simple define)
	Undefines    []string          // -U macros
	TargetName   string            // selected backend target, e.g. "gr8cpu-r3"/"pixie-16"
	WordBytes    int               // selected backend's target.Target.WordBytes(); 0 defaults to 1
}

func toCppOptions(opts *Options) *cpp.Options {
	if opts == nil {
		return nil
	}
	return &cpp.Options{
		IncludePaths: opts.IncludePaths,
		Defines:      opts.Defines,
		Undefines:    opts.Undefines,
	}
}

// Preprocess runs the preprocessor on the given source file and returns
// the preprocessed source code as a string.
func Preprocess(filename string, opts *Options) (string, error) {
	p := newCppPreprocessor(opts)
	return p.ProcessFile(filename, toCppOptions(opts))
}

// PreprocessString preprocesses C source code provided as a string,
// attributed to filename for __FILE__ and diagnostics.
func PreprocessString(source, filename string, opts *Options) (string, error) {
	p := newCppPreprocessor(opts)
	return p.ProcessString(source, filename, toCppOptions(opts))
}

// newCppPreprocessor builds the underlying pkg/cpp.Preprocessor, seeding
// its macro table for the caller's selected backend target when known.
func newCppPreprocessor(opts *Options) *cpp.Preprocessor {
	if opts != nil && opts.TargetName != "" {
		wordBytes := opts.WordBytes
		if wordBytes <= 0 {
			wordBytes = 1
		}
		return cpp.NewPreprocessorForTarget(includePathsOf(opts), opts.TargetName, wordBytes)
	}
	return cpp.NewPreprocessor(includePathsOf(opts))
}

func includePathsOf(opts *Options) []string {
	if opts == nil {
		return nil
	}
	return opts.IncludePaths
}

// NeedsPreprocessing returns true if the file might need preprocessing.
// Files ending in .i or .p are considered already preprocessed.
func NeedsPreprocessing(filename string) bool {
	return cpp.NeedsPreprocessing(filename)
}
