// Package runtime maps a language identifier to its invocation recipe.
// Adding a language is a pure data addition here (or in config); no
// other component changes.
package runtime

import (
	"path/filepath"
	"strings"

	appErr "codearena/pkg/errors"

	"github.com/google/shlex"
)

// LanguageSpec describes how to materialize, compile and run source
// code for one language.
type LanguageSpec struct {
	ID             string   `yaml:"id"`
	SourceFile     string   `yaml:"sourceFile"`
	BinaryFile     string   `yaml:"binaryFile"`
	CompileEnabled bool     `yaml:"compileEnabled"`
	CompileCmdTpl  string   `yaml:"compileCmd"`
	RunCmdTpl      string   `yaml:"runCmd"`
	Env            []string `yaml:"env"`
}

// Registry resolves language identifiers to their specs.
type Registry struct {
	specs map[string]LanguageSpec
}

// NewRegistry creates a registry from the given specs. Later entries
// with the same ID override earlier ones.
func NewRegistry(specs []LanguageSpec) *Registry {
	index := make(map[string]LanguageSpec, len(specs))
	for _, spec := range specs {
		if spec.ID == "" {
			continue
		}
		index[strings.ToLower(spec.ID)] = spec
	}
	return &Registry{specs: index}
}

// DefaultRegistry returns a registry with the built-in language set.
func DefaultRegistry() *Registry {
	return NewRegistry(DefaultLanguages())
}

// DefaultLanguages returns the built-in language specs.
func DefaultLanguages() []LanguageSpec {
	return []LanguageSpec{
		{
			ID:         "python",
			SourceFile: "solution.py",
			RunCmdTpl:  "python3 {src}",
		},
		{
			ID:         "javascript",
			SourceFile: "solution.js",
			RunCmdTpl:  "node {src}",
		},
		{
			ID:         "java",
			SourceFile: "Solution.java",
			// Single-file source launch, no separate compile step.
			RunCmdTpl: "java {src}",
		},
		{
			ID:             "cpp",
			SourceFile:     "solution.cpp",
			BinaryFile:     "solution",
			CompileEnabled: true,
			CompileCmdTpl:  "g++ -O2 -o {bin} {src}",
			RunCmdTpl:      "{bin}",
		},
	}
}

// Resolve returns the spec for the given language identifier.
// Unknown languages fail fast before any process is spawned.
func (r *Registry) Resolve(languageID string) (LanguageSpec, error) {
	spec, ok := r.specs[strings.ToLower(strings.TrimSpace(languageID))]
	if !ok {
		return LanguageSpec{}, appErr.Newf(appErr.LanguageNotSupported, "unsupported language: %s", languageID)
	}
	return spec, nil
}

// Languages returns the identifiers of all registered languages.
func (r *Registry) Languages() []string {
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	return ids
}

// BuildCommand expands a command template against the work dir and
// splits it into argv form.
func BuildCommand(tpl string, lang LanguageSpec, workDir string) ([]string, error) {
	if strings.TrimSpace(tpl) == "" {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command template is required")
	}
	expanded := strings.ReplaceAll(tpl, "{src}", filepath.Join(workDir, lang.SourceFile))
	expanded = strings.ReplaceAll(expanded, "{bin}", filepath.Join(workDir, lang.BinaryFile))
	fields, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InvalidParams, "parse command template failed")
	}
	if len(fields) == 0 {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("command is empty after expansion")
	}
	return fields, nil
}

// PrepareSource applies language-specific source fixups before the
// code is written to disk.
func PrepareSource(lang LanguageSpec, code string) string {
	if lang.ID == "java" && !strings.Contains(code, "class") {
		return "public class Solution {\n" + code + "\n}"
	}
	return code
}
