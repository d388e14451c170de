package gostatement

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type typeKind int

const (
	leafKind typeKind = iota
	structKind
	arrayKind
	mapKind
	decimalKind
)

// typeDescriptor is the parsed form of a declared column type such as
// STRUCT<a: INT NOT NULL, b: ARRAY<STRING>>.
type typeDescriptor struct {
	kind typeKind
	// name is the upper case type name, e.g. INT, STRUCT, DECIMAL.
	name      string
	fields    []structField   // struct
	elem      *typeDescriptor // array
	key       *typeDescriptor // map
	value     *typeDescriptor // map
	precision int             // decimal
	scale     int             // decimal
}

type structField struct {
	name string
	typ  *typeDescriptor
}

func (td *typeDescriptor) String() string {
	switch td.kind {
	case structKind:
		fields := make([]string, len(td.fields))
		for i, f := range td.fields {
			fields[i] = f.name + ": " + f.typ.String()
		}
		return "STRUCT<" + strings.Join(fields, ", ") + ">"
	case arrayKind:
		return "ARRAY<" + td.elem.String() + ">"
	case mapKind:
		return "MAP<" + td.key.String() + ", " + td.value.String() + ">"
	case decimalKind:
		return fmt.Sprintf("DECIMAL(%d,%d)", td.precision, td.scale)
	}
	return td.name
}

// columnType builds the descriptor of a result column. Precision and scale
// reported with the column win over the ones in the type text.
func columnType(column ColumnInfo) (*typeDescriptor, error) {
	text := column.TypeText
	if strings.TrimSpace(text) == "" {
		text = column.TypeName
	}
	td, err := parseTypeText(text)
	if err != nil {
		return nil, err
	}
	if td.kind == decimalKind && column.TypePrecision > 0 {
		td.precision = column.TypePrecision
		td.scale = column.TypeScale
	}
	return td, nil
}

// parseTypeText parses a declared type with a small recursive descent
// parser.
func parseTypeText(text string) (*typeDescriptor, error) {
	p := &typeParser{tokens: tokenizeType(text), text: text}
	td, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if !p.done() {
		return nil, p.errorf("unexpected %q", p.peek())
	}
	return td, nil
}

type typeParser struct {
	text   string
	tokens []string
	pos    int
}

func (p *typeParser) done() bool {
	return p.pos >= len(p.tokens)
}

func (p *typeParser) peek() string {
	if p.done() {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *typeParser) next() string {
	tok := p.peek()
	if !p.done() {
		p.pos++
	}
	return tok
}

func (p *typeParser) expect(tok string) error {
	if got := p.next(); got != tok {
		if got == "" {
			return p.errorf("expected %q, got end of type", tok)
		}
		return p.errorf("expected %q, got %q", tok, got)
	}
	return nil
}

func (p *typeParser) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("parsing type %q: %s", p.text, fmt.Sprintf(format, args...))
}

func (p *typeParser) keyword(tok string) bool {
	return strings.EqualFold(p.peek(), tok)
}

func (p *typeParser) parseType() (*typeDescriptor, error) {
	tok := p.next()
	if !isTypeWord(tok) {
		if tok == "" {
			return nil, p.errorf("missing type name")
		}
		return nil, p.errorf("unexpected %q", tok)
	}
	name := strings.ToUpper(tok)
	switch name {
	case "STRUCT":
		return p.parseStruct()
	case "ARRAY":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err = p.expect(">"); err != nil {
			return nil, err
		}
		return &typeDescriptor{kind: arrayKind, name: name, elem: elem}, nil
	case "MAP":
		if err := p.expect("<"); err != nil {
			return nil, err
		}
		key, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err = p.expect(","); err != nil {
			return nil, err
		}
		value, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if err = p.expect(">"); err != nil {
			return nil, err
		}
		return &typeDescriptor{kind: mapKind, name: name, key: key, value: value}, nil
	case "DECIMAL", "DEC", "NUMERIC":
		td := &typeDescriptor{kind: decimalKind, name: "DECIMAL", precision: 10}
		if p.peek() != "(" {
			return td, nil
		}
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		if len(params) > 0 {
			td.precision = params[0]
		}
		if len(params) > 1 {
			td.scale = params[1]
		}
		return td, nil
	}
	// multi word leaf types, e.g. INTERVAL DAY TO SECOND
	for isTypeWord(p.peek()) && !p.keyword("NOT") && !p.keyword("COMMENT") {
		name += " " + strings.ToUpper(p.next())
	}
	if p.peek() == "(" {
		// VARCHAR(10), CHAR(3)
		if _, err := p.parseParams(); err != nil {
			return nil, err
		}
	}
	return &typeDescriptor{kind: leafKind, name: name}, nil
}

func (p *typeParser) parseParams() ([]int, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var params []int
	for {
		tok := p.next()
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, p.errorf("invalid type parameter %q", tok)
		}
		params = append(params, n)
		switch p.next() {
		case ",":
		case ")":
			return params, nil
		default:
			return nil, p.errorf("unterminated type parameters")
		}
	}
}

func (p *typeParser) parseStruct() (*typeDescriptor, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	td := &typeDescriptor{kind: structKind, name: "STRUCT"}
	if p.peek() == ">" {
		p.next()
		return td, nil
	}
	for {
		name := p.next()
		if name == "" || name == ">" || name == "," || name == ":" {
			return nil, p.errorf("missing field name")
		}
		name = strings.Trim(name, "`")
		if p.peek() == ":" {
			p.next()
		}
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if p.keyword("NOT") {
			p.next()
			if !p.keyword("NULL") {
				return nil, p.errorf("expected NULL after NOT")
			}
			p.next()
		}
		if p.keyword("COMMENT") {
			p.next()
			p.next()
		}
		td.fields = append(td.fields, structField{name: name, typ: typ})
		switch tok := p.next(); tok {
		case ",":
		case ">":
			return td, nil
		case "":
			return nil, p.errorf("unterminated STRUCT")
		default:
			return nil, p.errorf("unexpected %q in STRUCT", tok)
		}
	}
}

func isTypeWord(tok string) bool {
	if tok == "" {
		return false
	}
	r := rune(tok[0])
	return r == '`' || r == '_' || unicode.IsLetter(r)
}

// tokenizeType splits type text into words, numbers, backquoted names,
// single quoted comments and the punctuation < > ( ) , :
func tokenizeType(text string) []string {
	var tokens []string
	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.IndexByte("<>(),:", c) >= 0:
			tokens = append(tokens, string(c))
			i++
		case c == '`' || c == '\'':
			j := i + 1
			for j < len(text) && text[j] != c {
				j++
			}
			if j < len(text) {
				j++
			}
			tokens = append(tokens, text[i:j])
			i = j
		default:
			j := i
			for j < len(text) && strings.IndexByte(" \t\n\r<>(),:`'", text[j]) < 0 {
				j++
			}
			tokens = append(tokens, text[i:j])
			i = j
		}
	}
	return tokens
}
