package service

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// InputCall is one textual occurrence of an interactive input request in
// submitted source, captured by byte offset at scan time. Substitution uses
// the recorded span rather than re-searching for the literal text, so
// duplicate prompts cannot collide.
type InputCall struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	Prompt string `json:"prompt"`
	Text   string `json:"text"`
}

// Matches a call with a single literal string argument. The two quote
// alternatives replace a backreference, which RE2 does not support.
var inputCallRe = regexp.MustCompile(
	`input\s*\(\s*("(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*')\s*\)`)

// Lines carrying a package-install directive: optional leading "!",
// then "pip install <spec>".
var pipInstallRe = regexp.MustCompile(`(?m)^[ \t]*!?\s*pip\s+install\s+(\S[^\r\n]*)$`)

var blankRunsRe = regexp.MustCompile(`\n\s*\n\s*\n`)

// ScanInputCalls returns every input call site in left-to-right textual
// occurrence order. That order fixes the resolution order for subsequent
// substitutions.
func ScanInputCalls(source string) []InputCall {
	matches := inputCallRe.FindAllStringSubmatchIndex(source, -1)
	if len(matches) == 0 {
		return nil
	}
	calls := make([]InputCall, 0, len(matches))
	for _, m := range matches {
		quoted := source[m[2]:m[3]]
		calls = append(calls, InputCall{
			Start:  m[0],
			End:    m[1],
			Prompt: quoted[1 : len(quoted)-1],
			Text:   source[m[0]:m[1]],
		})
	}
	return calls
}

// SpliceInputs replaces each call site with the quote-escaped string literal
// form of the corresponding value. Substitutions are applied back-to-front
// by offset so earlier replacements cannot shift later spans. values must
// have one entry per call.
func SpliceInputs(source string, calls []InputCall, values []string) (string, error) {
	if len(values) != len(calls) {
		return "", fmt.Errorf("input splice: %d values for %d call sites", len(values), len(calls))
	}
	out := source
	for i := len(calls) - 1; i >= 0; i-- {
		c := calls[i]
		out = out[:c.Start] + pyStringLiteral(values[i]) + out[c.End:]
	}
	return out, nil
}

// pyStringLiteral renders value as a Python string literal. The supplied
// value always becomes a string in the rewritten source; no numeric or
// other type inference is attempted.
func pyStringLiteral(value string) string {
	return strconv.Quote(value)
}

// ExtractInstalls pulls package-install directives out of the user source.
// It returns the install specs in occurrence order and the body with the
// directive lines removed. Extraction runs before the input-call scan so an
// unresolved input call never hides an install line.
func ExtractInstalls(source string) (specs []string, body string) {
	matches := pipInstallRe.FindAllStringSubmatch(source, -1)
	for _, m := range matches {
		specs = append(specs, strings.TrimSpace(m[1]))
	}
	body = pipInstallRe.ReplaceAllString(source, "")
	return specs, body
}

// NormalizeBody collapses runs of three or more blank lines to two, trims
// outer whitespace, and converts tabs to four spaces.
func NormalizeBody(body string) string {
	body = blankRunsRe.ReplaceAllString(body, "\n\n")
	body = strings.TrimSpace(body)
	return strings.ReplaceAll(body, "\t", "    ")
}

// Assemble concatenates, in fixed order: the execution prelude, one guarded
// install block per directive, the user code, and the trailing automatic
// figure render. Each install reports its own success or failure; a failed
// install does not abort the run. The trailing render call swallows both a
// missing helper and render errors.
func Assemble(body string, installs []string) string {
	var b strings.Builder
	b.WriteString(preludeSource)
	b.WriteString("\n\n")

	if len(installs) > 0 {
		b.WriteString("# Package Installation Commands\n")
		b.WriteString("import subprocess\n")
		b.WriteString("import sys\n")
		for _, spec := range installs {
			lit := pyStringLiteral(spec)
			fmt.Fprintf(&b, `try:
    _r = subprocess.run([sys.executable, '-m', 'pip', 'install'] + %s.split(), capture_output=True, text=True)
    if _r.returncode == 0:
        print("Successfully installed: " + %s)
    else:
        print("Installation failed: " + _r.stderr)
except Exception as e:
    print("Error installing package: " + str(e))
`, lit, lit)
		}
		b.WriteString("\n")
	}

	if body != "" {
		b.WriteString("# User Code\n")
		b.WriteString(body)
		b.WriteString("\n")
	}

	b.WriteString(`
# Automatic figure rendering
try:
    render_existing_figures()
except NameError:
    pass
except Exception as e:
    print("Warning: Could not render figures: " + str(e))
`)
	return b.String()
}
