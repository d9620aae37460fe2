package runtime

import (
	"strings"
	"testing"

	appErr "codearena/pkg/errors"
)

func TestResolveKnownLanguage(t *testing.T) {
	r := DefaultRegistry()

	spec, err := r.Resolve("python")
	if err != nil {
		t.Fatalf("Resolve(python) returned error: %v", err)
	}
	if spec.SourceFile != "solution.py" {
		t.Errorf("SourceFile = %q, want solution.py", spec.SourceFile)
	}
}

func TestResolveIsCaseInsensitive(t *testing.T) {
	r := DefaultRegistry()

	if _, err := r.Resolve("  Python "); err != nil {
		t.Fatalf("Resolve with mixed case and spaces returned error: %v", err)
	}
}

func TestResolveUnknownLanguage(t *testing.T) {
	r := DefaultRegistry()

	_, err := r.Resolve("cobol")
	if err == nil {
		t.Fatal("Resolve(cobol) should fail")
	}
	if !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Errorf("error code = %d, want LanguageNotSupported", appErr.GetCode(err))
	}
}

func TestLaterSpecOverridesEarlier(t *testing.T) {
	r := NewRegistry([]LanguageSpec{
		{ID: "python", SourceFile: "a.py", RunCmdTpl: "python3 {src}"},
		{ID: "python", SourceFile: "b.py", RunCmdTpl: "python3 {src}"},
	})

	spec, err := r.Resolve("python")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if spec.SourceFile != "b.py" {
		t.Errorf("SourceFile = %q, want b.py", spec.SourceFile)
	}
}

func TestBuildCommandExpandsPlaceholders(t *testing.T) {
	lang := LanguageSpec{
		ID:         "cpp",
		SourceFile: "solution.cpp",
		BinaryFile: "solution",
	}

	cmd, err := BuildCommand("g++ -O2 -o {bin} {src}", lang, "/work/abc")
	if err != nil {
		t.Fatalf("BuildCommand returned error: %v", err)
	}
	want := []string{"g++", "-O2", "-o", "/work/abc/solution", "/work/abc/solution.cpp"}
	if len(cmd) != len(want) {
		t.Fatalf("cmd = %v, want %v", cmd, want)
	}
	for i := range want {
		if cmd[i] != want[i] {
			t.Errorf("cmd[%d] = %q, want %q", i, cmd[i], want[i])
		}
	}
}

func TestBuildCommandEmptyTemplate(t *testing.T) {
	if _, err := BuildCommand("  ", LanguageSpec{}, "/work"); err == nil {
		t.Fatal("empty template should fail")
	}
}

func TestPrepareSourceWrapsBareJava(t *testing.T) {
	lang := LanguageSpec{ID: "java"}
	code := "System.out.println(42);"

	got := PrepareSource(lang, code)
	if !strings.HasPrefix(got, "public class Solution {") {
		t.Errorf("bare java code was not wrapped: %q", got)
	}
	if !strings.Contains(got, code) {
		t.Errorf("wrapped code lost the original body: %q", got)
	}
}

func TestPrepareSourceKeepsJavaWithClass(t *testing.T) {
	lang := LanguageSpec{ID: "java"}
	code := "public class Solution { public static void main(String[] a) {} }"

	if got := PrepareSource(lang, code); got != code {
		t.Errorf("code with class declaration was modified: %q", got)
	}
}

func TestPrepareSourceLeavesOtherLanguagesAlone(t *testing.T) {
	lang := LanguageSpec{ID: "python"}
	code := "print(1)"

	if got := PrepareSource(lang, code); got != code {
		t.Errorf("python code was modified: %q", got)
	}
}
