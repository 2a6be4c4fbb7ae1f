package textutil

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultSceneClass is used when no Scene subclass can be found in a script.
const DefaultSceneClass = "CombinedScene"

var (
	fenceOpen   = regexp.MustCompile("^```[A-Za-z0-9_+-]*[ \t]*\r?\n")
	fenceClose  = regexp.MustCompile("\r?\n?```[ \t]*$")
	sceneClass  = regexp.MustCompile(`class\s+(\w+)\s*\(\s*(?:manim\.)?(?:Scene|ThreeDScene|MovingCameraScene)\s*\)`)
	inlineMath  = regexp.MustCompile(`(^|[^$\\])\$([^$\n]+?)\$([^$]|$)`)
	tracebackRe = regexp.MustCompile(`Traceback \(most recent call last\):`)
)

// StripCodeFences removes a surrounding markdown code fence from model output.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpen.ReplaceAllString(s, "")
	s = fenceClose.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// FixInlineLatex rewrites single-dollar inline math to the double-dollar form the
// renderer's Tex objects expect. Already doubled delimiters are left untouched.
func FixInlineLatex(s string) string {
	for {
		next := inlineMath.ReplaceAllString(s, "$1$$$$$2$$$$$3")
		if next == s {
			return s
		}
		s = next
	}
}

// SceneClassName returns the last Scene subclass declared in the script.
func SceneClassName(script string) string {
	matches := sceneClass.FindAllStringSubmatch(script, -1)
	if len(matches) == 0 {
		return DefaultSceneClass
	}
	return matches[len(matches)-1][1]
}

// LastTraceback extracts the last Python traceback from process output,
// falling back to the trailing max characters.
func LastTraceback(output string, max int) string {
	locs := tracebackRe.FindAllStringIndex(output, -1)
	if len(locs) > 0 {
		return strings.TrimSpace(output[locs[len(locs)-1][0]:])
	}
	output = strings.TrimSpace(output)
	if max > 0 && utf8.RuneCountInString(output) > max {
		r := []rune(output)
		return string(r[len(r)-max:])
	}
	return output
}

// ConciseError returns the last non-empty line of a diagnostic, usually the exception line.
func ConciseError(diagnostic string) string {
	lines := strings.Split(strings.TrimSpace(diagnostic), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
