package formula

import (
	"strconv"
	"strings"
	"unicode"
)

// errCircular is the exact error text mandated for reference cycles.
const errCircular = "circular"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp
	tokLParen
	tokRParen
	tokComma
	tokColon
)

type token struct {
	kind tokenKind
	text string
	num  float64
}

type lexer struct {
	src []rune
	pos int
	err string
}

func (l *lexer) next() token {
	for l.pos < len(l.src) && unicode.IsSpace(l.src[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.src) {
		return token{kind: tokEOF}
	}
	c := l.src[l.pos]

	switch {
	case unicode.IsDigit(c) || (c == '.' && l.pos+1 < len(l.src) && unicode.IsDigit(l.src[l.pos+1])):
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '.') {
			l.pos++
		}
		text := string(l.src[start:l.pos])
		n, err := strconv.ParseFloat(text, 64)
		if err != nil {
			l.err = "bad number " + text
			return token{kind: tokEOF}
		}
		return token{kind: tokNumber, text: text, num: n}

	case unicode.IsLetter(c) || c == '_':
		start := l.pos
		for l.pos < len(l.src) && (unicode.IsLetter(l.src[l.pos]) || unicode.IsDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.pos++
		}
		return token{kind: tokIdent, text: string(l.src[start:l.pos])}

	case c == '"':
		l.pos++
		var b strings.Builder
		for l.pos < len(l.src) {
			if l.src[l.pos] == '"' {
				if l.pos+1 < len(l.src) && l.src[l.pos+1] == '"' {
					b.WriteRune('"')
					l.pos += 2
					continue
				}
				l.pos++
				return token{kind: tokString, text: b.String()}
			}
			b.WriteRune(l.src[l.pos])
			l.pos++
		}
		l.err = "unterminated string"
		return token{kind: tokEOF}

	case c == '(':
		l.pos++
		return token{kind: tokLParen}
	case c == ')':
		l.pos++
		return token{kind: tokRParen}
	case c == ',':
		l.pos++
		return token{kind: tokComma}
	case c == ':':
		l.pos++
		return token{kind: tokColon}

	case c == '<':
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '=' || l.src[l.pos] == '>') {
			op := "<" + string(l.src[l.pos])
			l.pos++
			return token{kind: tokOp, text: op}
		}
		return token{kind: tokOp, text: "<"}
	case c == '>':
		l.pos++
		if l.pos < len(l.src) && l.src[l.pos] == '=' {
			l.pos++
			return token{kind: tokOp, text: ">="}
		}
		return token{kind: tokOp, text: ">"}
	case c == '=' || c == '+' || c == '-' || c == '*' || c == '/' || c == '&':
		l.pos++
		return token{kind: tokOp, text: string(c)}
	}

	l.err = "unexpected character " + string(c)
	l.pos++
	return token{kind: tokEOF}
}

// evaluator walks a formula's token stream and resolves references against
// the grid. visiting tracks the cells on the current resolution path so a
// cycle surfaces as Error("circular") instead of recursing forever.
type evaluator struct {
	grid     *Grid
	visiting map[CellRef]bool

	lex  *lexer
	cur  token
	fail string
}

func (e *evaluator) cell(ref CellRef) CellValue {
	if e.visiting[ref] {
		return ErrorVal(errCircular)
	}
	raw := e.grid.Raw(ref)
	if !strings.HasPrefix(raw, "=") {
		return Literal(raw)
	}
	e.visiting[ref] = true
	defer delete(e.visiting, ref)
	return e.formula(raw)
}

func (e *evaluator) formula(expr string) CellValue {
	expr = strings.TrimPrefix(strings.TrimSpace(expr), "=")

	savedLex, savedCur, savedFail := e.lex, e.cur, e.fail
	defer func() { e.lex, e.cur, e.fail = savedLex, savedCur, savedFail }()

	e.lex = &lexer{src: []rune(expr)}
	e.fail = ""
	e.advance()

	v := e.comparison()
	if e.fail != "" {
		return ErrorVal(e.fail)
	}
	if e.lex.err != "" {
		return ErrorVal(e.lex.err)
	}
	if e.cur.kind != tokEOF {
		return ErrorVal("unexpected trailing input")
	}
	return v.scalar()
}

func (e *evaluator) advance() {
	e.cur = e.lex.next()
}

func (e *evaluator) abort(msg string) operand {
	if e.fail == "" {
		e.fail = msg
	}
	return operand{value: ErrorVal(msg)}
}

// operand is either a scalar value or an expanded range. Ranges are only
// meaningful as function arguments; using one as a scalar is an error.
type operand struct {
	value   CellValue
	isRange bool
	items   []CellValue
}

func (o operand) scalar() CellValue {
	if o.isRange {
		return ErrorVal("range used as a value")
	}
	return o.value
}

func scalarOp(v CellValue) operand { return operand{value: v} }

func (e *evaluator) comparison() operand {
	left := e.additive()
	if e.cur.kind == tokOp {
		switch e.cur.text {
		case "=", "<>", "<", "<=", ">", ">=":
			op := e.cur.text
			e.advance()
			right := e.additive()
			return scalarOp(compareValues(left.scalar(), right.scalar(), op))
		}
	}
	return left
}

func (e *evaluator) additive() operand {
	left := e.multiplicative()
	for e.cur.kind == tokOp && (e.cur.text == "+" || e.cur.text == "-" || e.cur.text == "&") {
		op := e.cur.text
		e.advance()
		right := e.multiplicative()
		left = scalarOp(arith(left.scalar(), right.scalar(), op))
	}
	return left
}

func (e *evaluator) multiplicative() operand {
	left := e.unary()
	for e.cur.kind == tokOp && (e.cur.text == "*" || e.cur.text == "/") {
		op := e.cur.text
		e.advance()
		right := e.unary()
		left = scalarOp(arith(left.scalar(), right.scalar(), op))
	}
	return left
}

func (e *evaluator) unary() operand {
	if e.cur.kind == tokOp && (e.cur.text == "-" || e.cur.text == "+") {
		neg := e.cur.text == "-"
		e.advance()
		v := e.unary().scalar()
		if v.Kind == KindError {
			return scalarOp(v)
		}
		n, ok := v.AsNumber()
		if !ok {
			return e.abort("cannot negate non-number")
		}
		if neg {
			n = -n
		}
		return scalarOp(NumberVal(n))
	}
	return e.primary()
}

func (e *evaluator) primary() operand {
	switch e.cur.kind {
	case tokNumber:
		first := e.cur
		e.advance()
		// "3:3" is a whole-row range.
		if e.cur.kind == tokColon {
			e.advance()
			if e.cur.kind != tokNumber {
				return e.abort("bad row range")
			}
			second := e.cur
			e.advance()
			return e.rowRange(int(first.num), int(second.num))
		}
		return scalarOp(NumberVal(first.num))

	case tokString:
		s := e.cur.text
		e.advance()
		return scalarOp(TextVal(s))

	case tokIdent:
		name := e.cur.text
		e.advance()

		if e.cur.kind == tokLParen {
			return e.call(name)
		}
		if e.cur.kind == tokColon {
			e.advance()
			return e.rangeFrom(name)
		}

		switch strings.ToUpper(name) {
		case "TRUE":
			return scalarOp(NumberVal(1))
		case "FALSE":
			return scalarOp(NumberVal(0))
		}
		if ref, ok := ParseCellRef(name); ok {
			return scalarOp(e.cell(ref))
		}
		return e.abort("unknown name " + name)

	case tokLParen:
		e.advance()
		v := e.comparison()
		if e.cur.kind != tokRParen {
			return e.abort("missing )")
		}
		e.advance()
		return v
	}
	return e.abort("unexpected token")
}

// rangeFrom handles "A1:B5" and "A:A" after the colon was consumed.
func (e *evaluator) rangeFrom(first string) operand {
	if e.cur.kind != tokIdent {
		return e.abort("bad range")
	}
	second := e.cur.text
	e.advance()

	if r1, ok := ParseCellRef(first); ok {
		r2, ok := ParseCellRef(second)
		if !ok {
			return e.abort("bad range end " + second)
		}
		return e.blockRange(r1, r2)
	}

	// Column-only range: every populated row of the columns.
	c1 := columnIndex(first)
	c2 := columnIndex(second)
	if c1 > c2 {
		c1, c2 = c2, c1
	}
	return e.blockRange(CellRef{Col: c1, Row: 0}, CellRef{Col: c2, Row: e.grid.Rows() - 1})
}

func (e *evaluator) rowRange(r1, r2 int) operand {
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	return e.blockRange(CellRef{Col: 0, Row: r1 - 1}, CellRef{Col: e.grid.Cols() - 1, Row: r2 - 1})
}

func (e *evaluator) blockRange(a, b CellRef) operand {
	if a.Col > b.Col {
		a.Col, b.Col = b.Col, a.Col
	}
	if a.Row > b.Row {
		a.Row, b.Row = b.Row, a.Row
	}
	var items []CellValue
	for r := a.Row; r <= b.Row; r++ {
		for c := a.Col; c <= b.Col; c++ {
			items = append(items, e.cell(CellRef{Col: c, Row: r}))
		}
	}
	return operand{isRange: true, items: items}
}

// call parses and dispatches a function invocation; the opening paren is
// the current token.
func (e *evaluator) call(name string) operand {
	e.advance()
	var args []operand
	if e.cur.kind != tokRParen {
		for {
			args = append(args, e.comparison())
			if e.cur.kind != tokComma {
				break
			}
			e.advance()
		}
	}
	if e.cur.kind != tokRParen {
		return e.abort("missing ) after " + name)
	}
	e.advance()
	return scalarOp(callBuiltin(strings.ToUpper(name), args))
}

// flatten expands ranges into their cells and keeps scalars as-is.
func flatten(args []operand) []CellValue {
	var out []CellValue
	for _, a := range args {
		if a.isRange {
			out = append(out, a.items...)
		} else {
			out = append(out, a.value)
		}
	}
	return out
}

func compareValues(a, b CellValue, op string) CellValue {
	if a.Kind == KindError {
		return a
	}
	if b.Kind == KindError {
		return b
	}

	var c int
	an, aok := a.AsNumber()
	bn, bok := b.AsNumber()
	switch {
	case aok && bok:
		switch {
		case an < bn:
			c = -1
		case an > bn:
			c = 1
		}
	default:
		c = strings.Compare(strings.ToLower(a.String()), strings.ToLower(b.String()))
	}

	var ok bool
	switch op {
	case "=":
		ok = c == 0
	case "<>":
		ok = c != 0
	case "<":
		ok = c < 0
	case "<=":
		ok = c <= 0
	case ">":
		ok = c > 0
	case ">=":
		ok = c >= 0
	}
	if ok {
		return NumberVal(1)
	}
	return NumberVal(0)
}

func arith(a, b CellValue, op string) CellValue {
	if a.Kind == KindError {
		return a
	}
	if b.Kind == KindError {
		return b
	}

	if op == "&" {
		return TextVal(a.String() + b.String())
	}

	// "+" on two texts concatenates, matching how cell edits are typed.
	an, aok := a.AsNumber()
	bn, bok := b.AsNumber()
	if op == "+" && !aok && !bok && (a.Kind == KindText || b.Kind == KindText) {
		return TextVal(a.String() + b.String())
	}
	if a.Kind == KindEmpty {
		an, aok = 0, true
	}
	if b.Kind == KindEmpty {
		bn, bok = 0, true
	}
	if !aok || !bok {
		return ErrorVal("non-numeric operand")
	}

	switch op {
	case "+":
		return NumberVal(an + bn)
	case "-":
		return NumberVal(an - bn)
	case "*":
		return NumberVal(an * bn)
	case "/":
		if bn == 0 {
			return ErrorVal("division by zero")
		}
		return NumberVal(an / bn)
	}
	return ErrorVal("bad operator " + op)
}
