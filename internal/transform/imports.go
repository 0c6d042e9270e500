package transform

import "strings"

// The scanner runs over esbuild output rather than raw source: the compiler
// has already rejected malformed syntax and emits static import and export
// declarations at the top level in a normal form. A small lexer walks that
// output and pulls specifiers out of real declarations only, skipping
// comments, string, template, and regex literals, so import-shaped text
// inside a literal is never mistaken for an import.

type specifierSite struct {
	start, end int // byte range of the quoted specifier, quotes excluded
	spec       string
}

// specifierSites returns the specifier of every static import and
// export-from declaration, in source order.
func specifierSites(code string) []specifierSite {
	l := &lexer{src: code}
	var sites []specifierSite
	for {
		word, prev, ok := l.nextWord()
		if !ok {
			return sites
		}
		if l.depth != 0 || prev == '.' {
			continue
		}
		var site specifierSite
		switch word {
		case "import":
			site, ok = l.importSpecifier()
		case "export":
			site, ok = l.exportSpecifier()
		default:
			continue
		}
		if ok {
			sites = append(sites, site)
		}
	}
}

// ScanImports returns every static import specifier in code, in source
// order, deduplicated.
func ScanImports(code string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range specifierSites(code) {
		if _, dup := seen[s.spec]; dup {
			continue
		}
		seen[s.spec] = struct{}{}
		out = append(out, s.spec)
	}
	return out
}

// RewriteImports replaces each static import specifier found in mapping with
// its mapped form, leaving unmapped specifiers untouched.
func RewriteImports(code string, mapping map[string]string) string {
	if len(mapping) == 0 {
		return code
	}
	sites := specifierSites(code)
	if len(sites) == 0 {
		return code
	}
	var b strings.Builder
	b.Grow(len(code))
	last := 0
	for _, s := range sites {
		replacement, ok := mapping[s.spec]
		if !ok {
			continue
		}
		b.WriteString(code[last:s.start])
		b.WriteString(replacement)
		last = s.end
	}
	b.WriteString(code[last:])
	return b.String()
}

// lexer is a minimal ECMAScript token walker: just enough structure to find
// identifier words outside literals and track bracket depth.
type lexer struct {
	src   string
	i     int
	depth int
	prev  byte // last significant byte; 'a' stands in for any identifier
}

func isIdentByte(c byte) bool {
	return c == '_' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// nextWord advances to the next identifier, skipping whitespace, comments,
// and string, template, and regex literals. It reports the word and the
// significant byte preceding it.
func (l *lexer) nextWord() (string, byte, bool) {
	for l.i < len(l.src) {
		c := l.src[l.i]
		switch {
		case c == '/' && l.i+1 < len(l.src) && l.src[l.i+1] == '/':
			l.skipLineComment()
		case c == '/' && l.i+1 < len(l.src) && l.src[l.i+1] == '*':
			l.skipBlockComment()
		case c == '\'' || c == '"':
			l.skipString(c)
			l.prev = '"'
		case c == '`':
			l.skipTemplate()
			l.prev = '`'
		case c == '/' && regexCanFollow(l.prev):
			l.skipRegex()
			l.prev = '/'
		case isIdentByte(c):
			start := l.i
			for l.i < len(l.src) && isIdentByte(l.src[l.i]) {
				l.i++
			}
			prev := l.prev
			l.prev = 'a'
			if isDigit(c) {
				continue // numeric literal
			}
			return l.src[start:l.i], prev, true
		default:
			switch c {
			case '{', '(', '[':
				l.depth++
			case '}', ')', ']':
				if l.depth > 0 {
					l.depth--
				}
			}
			if c != ' ' && c != '\t' && c != '\n' && c != '\r' {
				l.prev = c
			}
			l.i++
		}
	}
	return "", 0, false
}

// importSpecifier parses the rest of an import declaration and returns its
// specifier site. Dynamic import() and import.meta are expressions, not
// declarations, and yield nothing.
func (l *lexer) importSpecifier() (specifierSite, bool) {
	l.skipTrivia()
	if l.i >= len(l.src) {
		return specifierSite{}, false
	}
	switch l.src[l.i] {
	case '"', '\'':
		return l.readStringSite() // side-effect form
	case '(', '.':
		return specifierSite{}, false
	}
	// Binding clause: default name, named braces, namespace star, or a
	// comma-joined mix, always followed by `from "spec"`.
	for l.i < len(l.src) {
		l.skipTrivia()
		if l.i >= len(l.src) {
			return specifierSite{}, false
		}
		switch c := l.src[l.i]; {
		case c == '{':
			l.skipBraces()
		case c == '*' || c == ',':
			l.i++
			l.prev = c
		case isIdentByte(c) && !isDigit(c):
			if l.readWord() == "from" {
				l.skipTrivia()
				return l.readStringSite()
			}
		default:
			return specifierSite{}, false
		}
	}
	return specifierSite{}, false
}

// exportSpecifier parses an export declaration and returns the specifier of
// its `from` clause when it has one. Declaration exports carry no specifier
// and are skipped without touching their initializers.
func (l *lexer) exportSpecifier() (specifierSite, bool) {
	l.skipTrivia()
	if l.i >= len(l.src) {
		return specifierSite{}, false
	}
	switch l.src[l.i] {
	case '{':
		l.skipBraces()
	case '*':
		l.i++
		l.prev = '*'
		l.skipTrivia()
		if l.peekWord() == "as" {
			l.readWord()
			l.skipTrivia()
			if l.i < len(l.src) && (l.src[l.i] == '"' || l.src[l.i] == '\'') {
				if _, ok := l.readStringSite(); !ok {
					return specifierSite{}, false
				}
			} else {
				l.readWord()
			}
		}
	default:
		return specifierSite{}, false
	}
	l.skipTrivia()
	if l.peekWord() != "from" {
		return specifierSite{}, false
	}
	l.readWord()
	l.skipTrivia()
	return l.readStringSite()
}

// readStringSite consumes a quoted literal and returns its site.
func (l *lexer) readStringSite() (specifierSite, bool) {
	if l.i >= len(l.src) || (l.src[l.i] != '"' && l.src[l.i] != '\'') {
		return specifierSite{}, false
	}
	quote := l.src[l.i]
	start := l.i + 1
	l.i = start
	for l.i < len(l.src) && l.src[l.i] != quote && l.src[l.i] != '\n' {
		if l.src[l.i] == '\\' {
			l.i++
		}
		l.i++
	}
	if l.i >= len(l.src) || l.src[l.i] != quote {
		return specifierSite{}, false
	}
	site := specifierSite{start: start, end: l.i, spec: l.src[start:l.i]}
	l.i++
	l.prev = '"'
	return site, true
}

func (l *lexer) peekWord() string {
	j := l.i
	if j >= len(l.src) || !isIdentByte(l.src[j]) || isDigit(l.src[j]) {
		return ""
	}
	start := j
	for j < len(l.src) && isIdentByte(l.src[j]) {
		j++
	}
	return l.src[start:j]
}

func (l *lexer) readWord() string {
	start := l.i
	for l.i < len(l.src) && isIdentByte(l.src[l.i]) {
		l.i++
	}
	l.prev = 'a'
	return l.src[start:l.i]
}

// skipTrivia advances over whitespace and comments.
func (l *lexer) skipTrivia() {
	for l.i < len(l.src) {
		c := l.src[l.i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			l.i++
		case c == '/' && l.i+1 < len(l.src) && l.src[l.i+1] == '/':
			l.skipLineComment()
		case c == '/' && l.i+1 < len(l.src) && l.src[l.i+1] == '*':
			l.skipBlockComment()
		default:
			return
		}
	}
}

// skipBraces consumes a balanced brace group, including string names inside
// named clauses like `export { a as "alias" }`.
func (l *lexer) skipBraces() {
	depth := 0
	for l.i < len(l.src) {
		c := l.src[l.i]
		switch {
		case c == '/' && l.i+1 < len(l.src) && l.src[l.i+1] == '/':
			l.skipLineComment()
		case c == '/' && l.i+1 < len(l.src) && l.src[l.i+1] == '*':
			l.skipBlockComment()
		case c == '"' || c == '\'':
			l.skipString(c)
		case c == '{':
			depth++
			l.i++
		case c == '}':
			depth--
			l.i++
			if depth == 0 {
				l.prev = '}'
				return
			}
		default:
			l.i++
		}
	}
}

func (l *lexer) skipLineComment() {
	for l.i < len(l.src) && l.src[l.i] != '\n' {
		l.i++
	}
}

func (l *lexer) skipBlockComment() {
	l.i += 2
	for l.i+1 < len(l.src) {
		if l.src[l.i] == '*' && l.src[l.i+1] == '/' {
			l.i += 2
			return
		}
		l.i++
	}
	l.i = len(l.src)
}

func (l *lexer) skipString(quote byte) {
	l.i++
	for l.i < len(l.src) {
		switch l.src[l.i] {
		case '\\':
			l.i += 2
		case quote:
			l.i++
			return
		case '\n':
			l.i++
			return
		default:
			l.i++
		}
	}
}

func (l *lexer) skipTemplate() {
	l.i++
	braces := 0
	for l.i < len(l.src) {
		switch {
		case l.src[l.i] == '\\':
			l.i += 2
		case l.src[l.i] == '$' && l.i+1 < len(l.src) && l.src[l.i+1] == '{':
			braces++
			l.i += 2
		case l.src[l.i] == '}' && braces > 0:
			braces--
			l.i++
		case l.src[l.i] == '`' && braces == 0:
			l.i++
			return
		default:
			l.i++
		}
	}
}

func (l *lexer) skipRegex() {
	l.i++
	inClass := false
	for l.i < len(l.src) {
		switch l.src[l.i] {
		case '\\':
			l.i += 2
		case '[':
			inClass = true
			l.i++
		case ']':
			inClass = false
			l.i++
		case '/':
			l.i++
			if !inClass {
				for l.i < len(l.src) && isIdentByte(l.src[l.i]) {
					l.i++
				}
				return
			}
		case '\n':
			return
		default:
			l.i++
		}
	}
}

// regexCanFollow reports whether a '/' after the given significant byte
// starts a regex literal rather than division.
func regexCanFollow(prev byte) bool {
	switch prev {
	case 0, '=', '(', '[', '{', ',', ';', ':', '!', '&', '|', '?', '+', '-', '*', '%', '<', '>', '~', '^':
		return true
	}
	return false
}
