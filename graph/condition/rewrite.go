package condition

import "strings"

// keywordReplacements maps the spelled-out boolean keywords (and Python-style
// boolean literals, which show up in graph definitions written against the
// original HTTP API) onto the syntax the parser accepts.
var keywordReplacements = map[string]string{
	"and":   "&&",
	"or":    "||",
	"not":   "!",
	"True":  "true",
	"False": "false",
}

// rewriteKeywords rewrites whole-word boolean keywords to operator syntax,
// leaving the contents of single- and double-quoted string literals intact.
func rewriteKeywords(expr string) string {
	var out strings.Builder
	out.Grow(len(expr))

	runes := []rune(expr)
	i := 0
	for i < len(runes) {
		c := runes[i]

		if c == '\'' || c == '"' {
			quote := c
			out.WriteRune(c)
			i++
			for i < len(runes) {
				out.WriteRune(runes[i])
				if runes[i] == '\\' && i+1 < len(runes) {
					i++
					out.WriteRune(runes[i])
					i++
					continue
				}
				if runes[i] == quote {
					i++
					break
				}
				i++
			}
			continue
		}

		if isWordStart(c) {
			start := i
			for i < len(runes) && isWordPart(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			if repl, ok := keywordReplacements[word]; ok {
				out.WriteString(repl)
			} else {
				out.WriteString(word)
			}
			continue
		}

		out.WriteRune(c)
		i++
	}
	return out.String()
}

func isWordStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordPart(c rune) bool {
	return isWordStart(c) || (c >= '0' && c <= '9')
}
