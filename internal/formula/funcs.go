package formula

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// now is swapped in tests.
var now = time.Now

// callBuiltin dispatches one function call. Every failure mode (arity,
// coercion, division by zero) is an Error value, never a panic.
func callBuiltin(name string, args []operand) CellValue {
	switch name {
	case "SUM", "AVG", "AVERAGE", "MIN", "MAX", "COUNT", "COUNTA":
		return aggregate(name, flatten(args))
	case "ABS":
		n, err := oneNumber(name, args)
		if err != nil {
			return ErrorVal(err.Error())
		}
		return NumberVal(math.Abs(n))
	case "ROUND":
		return roundFn(args)
	case "IF":
		return ifFn(args)

	case "CONCAT", "CONCATENATE":
		var b strings.Builder
		for _, v := range flatten(args) {
			if v.Kind == KindError {
				return v
			}
			b.WriteString(v.String())
		}
		return TextVal(b.String())
	case "UPPER":
		s, err := oneText(name, args)
		if err != nil {
			return ErrorVal(err.Error())
		}
		return TextVal(strings.ToUpper(s))
	case "LOWER":
		s, err := oneText(name, args)
		if err != nil {
			return ErrorVal(err.Error())
		}
		return TextVal(strings.ToLower(s))
	case "TRIM":
		s, err := oneText(name, args)
		if err != nil {
			return ErrorVal(err.Error())
		}
		return TextVal(strings.TrimSpace(s))
	case "LEN":
		s, err := oneText(name, args)
		if err != nil {
			return ErrorVal(err.Error())
		}
		return NumberVal(float64(len([]rune(s))))
	case "LEFT":
		return leftRight(name, args, true)
	case "RIGHT":
		return leftRight(name, args, false)
	case "MID":
		return midFn(args)
	case "REPLACE":
		return replaceFn(args)
	case "SUBSTITUTE":
		return substituteFn(args)
	case "TEXT":
		return textFn(args)
	case "REPT":
		return reptFn(args)

	case "TODAY":
		if len(args) != 0 {
			return ErrorVal("TODAY takes no arguments")
		}
		return TextVal(now().Format("2006-01-02"))
	case "NOW":
		if len(args) != 0 {
			return ErrorVal("NOW takes no arguments")
		}
		return TextVal(now().Format("2006-01-02T15:04:05"))
	case "YEAR", "MONTH", "DAY", "HOUR", "MINUTE", "WEEKDAY", "WEEKNUM":
		return datePart(name, args)
	case "DATEDIF":
		return dateDif(args)
	case "DATEFORMAT":
		return dateFormat(args)
	case "EOMONTH":
		return eoMonth(args)
	}
	return ErrorVal("unknown function " + name)
}

// aggregate folds the numeric aggregates. Empty cells contribute nothing;
// COUNTA counts every non-empty value regardless of type.
func aggregate(name string, vals []CellValue) CellValue {
	var (
		sum      float64
		min, max float64
		n        int
		nonEmpty int
	)
	for _, v := range vals {
		if v.Kind == KindError {
			return v
		}
		if !v.IsEmpty() {
			nonEmpty++
		}
		if v.Kind != KindNumber {
			continue
		}
		if n == 0 {
			min, max = v.Number, v.Number
		} else {
			if v.Number < min {
				min = v.Number
			}
			if v.Number > max {
				max = v.Number
			}
		}
		sum += v.Number
		n++
	}

	switch name {
	case "SUM":
		return NumberVal(sum)
	case "AVG", "AVERAGE":
		if n == 0 {
			return ErrorVal("AVG of no numbers")
		}
		return NumberVal(sum / float64(n))
	case "MIN":
		if n == 0 {
			return NumberVal(0)
		}
		return NumberVal(min)
	case "MAX":
		if n == 0 {
			return NumberVal(0)
		}
		return NumberVal(max)
	case "COUNT":
		return NumberVal(float64(n))
	case "COUNTA":
		return NumberVal(float64(nonEmpty))
	}
	return ErrorVal("unknown aggregate " + name)
}

// roundFn rounds half away from zero. ROUND(2.5) is 3, ROUND(-2.5) is -3.
func roundFn(args []operand) CellValue {
	if len(args) < 1 || len(args) > 2 {
		return ErrorVal("ROUND takes 1 or 2 arguments")
	}
	n, ok := args[0].scalar().AsNumber()
	if !ok {
		return ErrorVal("ROUND needs a number")
	}
	digits := 0.0
	if len(args) == 2 {
		d, ok := args[1].scalar().AsNumber()
		if !ok {
			return ErrorVal("ROUND digits must be a number")
		}
		digits = d
	}
	p := math.Pow(10, math.Trunc(digits))
	scaled := n * p
	if scaled < 0 {
		return NumberVal(-math.Floor(-scaled+0.5) / p)
	}
	return NumberVal(math.Floor(scaled+0.5) / p)
}

func ifFn(args []operand) CellValue {
	if len(args) != 3 {
		return ErrorVal("IF takes 3 arguments")
	}
	cond := args[0].scalar()
	if cond.Kind == KindError {
		return cond
	}
	if cond.truthy() {
		return args[1].scalar()
	}
	return args[2].scalar()
}

func leftRight(name string, args []operand, fromLeft bool) CellValue {
	if len(args) != 2 {
		return ErrorVal(name + " takes 2 arguments")
	}
	s := args[0].scalar()
	if s.Kind == KindError {
		return s
	}
	n, ok := args[1].scalar().AsNumber()
	if !ok || n < 0 {
		return ErrorVal(name + " length must be a number")
	}
	runes := []rune(s.String())
	k := int(n)
	if k > len(runes) {
		k = len(runes)
	}
	if fromLeft {
		return TextVal(string(runes[:k]))
	}
	return TextVal(string(runes[len(runes)-k:]))
}

func midFn(args []operand) CellValue {
	if len(args) != 3 {
		return ErrorVal("MID takes 3 arguments")
	}
	s := args[0].scalar()
	start, ok1 := args[1].scalar().AsNumber()
	length, ok2 := args[2].scalar().AsNumber()
	if s.Kind == KindError {
		return s
	}
	if !ok1 || !ok2 || start < 1 || length < 0 {
		return ErrorVal("MID start and length must be positive numbers")
	}
	runes := []rune(s.String())
	from := int(start) - 1
	if from >= len(runes) {
		return TextVal("")
	}
	to := from + int(length)
	if to > len(runes) {
		to = len(runes)
	}
	return TextVal(string(runes[from:to]))
}

func replaceFn(args []operand) CellValue {
	if len(args) != 4 {
		return ErrorVal("REPLACE takes 4 arguments")
	}
	s := args[0].scalar()
	start, ok1 := args[1].scalar().AsNumber()
	length, ok2 := args[2].scalar().AsNumber()
	repl := args[3].scalar()
	if s.Kind == KindError {
		return s
	}
	if repl.Kind == KindError {
		return repl
	}
	if !ok1 || !ok2 || start < 1 || length < 0 {
		return ErrorVal("REPLACE start and length must be positive numbers")
	}
	runes := []rune(s.String())
	from := int(start) - 1
	if from > len(runes) {
		from = len(runes)
	}
	to := from + int(length)
	if to > len(runes) {
		to = len(runes)
	}
	return TextVal(string(runes[:from]) + repl.String() + string(runes[to:]))
}

func substituteFn(args []operand) CellValue {
	if len(args) != 3 {
		return ErrorVal("SUBSTITUTE takes 3 arguments")
	}
	s := args[0].scalar()
	old := args[1].scalar()
	repl := args[2].scalar()
	for _, v := range []CellValue{s, old, repl} {
		if v.Kind == KindError {
			return v
		}
	}
	return TextVal(strings.ReplaceAll(s.String(), old.String(), repl.String()))
}

// textFn formats a number with a pattern: decimals come from the digits
// after '.', a trailing '%' scales by 100.
func textFn(args []operand) CellValue {
	if len(args) != 2 {
		return ErrorVal("TEXT takes 2 arguments")
	}
	n, ok := args[0].scalar().AsNumber()
	if !ok {
		return ErrorVal("TEXT needs a number")
	}
	format := args[1].scalar().String()

	percent := strings.HasSuffix(format, "%")
	if percent {
		format = strings.TrimSuffix(format, "%")
		n *= 100
	}
	decimals := 0
	if dot := strings.IndexByte(format, '.'); dot >= 0 {
		decimals = strings.Count(format[dot+1:], "0")
	}
	out := fmt.Sprintf("%.*f", decimals, n)
	if percent {
		out += "%"
	}
	return TextVal(out)
}

func reptFn(args []operand) CellValue {
	if len(args) != 2 {
		return ErrorVal("REPT takes 2 arguments")
	}
	s := args[0].scalar()
	if s.Kind == KindError {
		return s
	}
	n, ok := args[1].scalar().AsNumber()
	if !ok || n < 0 || n > 10000 {
		return ErrorVal("REPT count out of range")
	}
	return TextVal(strings.Repeat(s.String(), int(n)))
}

var dateLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

func parseDate(v CellValue) (time.Time, bool) {
	if v.Kind != KindText {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(v.Text)); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func datePart(name string, args []operand) CellValue {
	if len(args) != 1 {
		return ErrorVal(name + " takes 1 argument")
	}
	t, ok := parseDate(args[0].scalar())
	if !ok {
		return ErrorVal(name + " needs a date")
	}
	switch name {
	case "YEAR":
		return NumberVal(float64(t.Year()))
	case "MONTH":
		return NumberVal(float64(t.Month()))
	case "DAY":
		return NumberVal(float64(t.Day()))
	case "HOUR":
		return NumberVal(float64(t.Hour()))
	case "MINUTE":
		return NumberVal(float64(t.Minute()))
	case "WEEKDAY":
		// ISO numbering, Monday is 1.
		wd := int(t.Weekday())
		if wd == 0 {
			wd = 7
		}
		return NumberVal(float64(wd))
	case "WEEKNUM":
		_, week := t.ISOWeek()
		return NumberVal(float64(week))
	}
	return ErrorVal("unknown date part " + name)
}

// dateDif measures the interval between two dates. Months and years are
// approximated as 30 and 365 days.
func dateDif(args []operand) CellValue {
	if len(args) != 3 {
		return ErrorVal("DATEDIF takes 3 arguments")
	}
	a, ok1 := parseDate(args[0].scalar())
	b, ok2 := parseDate(args[1].scalar())
	if !ok1 || !ok2 {
		return ErrorVal("DATEDIF needs two dates")
	}
	unit := strings.ToUpper(args[2].scalar().String())

	d := b.Sub(a)
	switch unit {
	case "D":
		return NumberVal(math.Trunc(d.Hours() / 24))
	case "H":
		return NumberVal(math.Trunc(d.Hours()))
	case "M":
		return NumberVal(math.Trunc(d.Hours() / 24 / 30))
	case "Y":
		return NumberVal(math.Trunc(d.Hours() / 24 / 365))
	}
	return ErrorVal("DATEDIF unit must be D, H, M, or Y")
}

// dateFormat renders a date with YYYY, MM, DD, HH, mm, ss tokens.
func dateFormat(args []operand) CellValue {
	if len(args) != 2 {
		return ErrorVal("DATEFORMAT takes 2 arguments")
	}
	t, ok := parseDate(args[0].scalar())
	if !ok {
		return ErrorVal("DATEFORMAT needs a date")
	}
	format := args[1].scalar().String()

	r := strings.NewReplacer(
		"YYYY", "2006",
		"YY", "06",
		"MM", "01",
		"DD", "02",
		"HH", "15",
		"mm", "04",
		"ss", "05",
	)
	return TextVal(t.Format(r.Replace(format)))
}

func eoMonth(args []operand) CellValue {
	if len(args) != 2 {
		return ErrorVal("EOMONTH takes 2 arguments")
	}
	t, ok := parseDate(args[0].scalar())
	if !ok {
		return ErrorVal("EOMONTH needs a date")
	}
	months, ok := args[1].scalar().AsNumber()
	if !ok {
		return ErrorVal("EOMONTH offset must be a number")
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := first.AddDate(0, int(months)+1, -1)
	return TextVal(end.Format("2006-01-02"))
}

func oneNumber(name string, args []operand) (float64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s takes 1 argument", name)
	}
	v := args[0].scalar()
	if v.Kind == KindError {
		return 0, fmt.Errorf("%s", v.Err)
	}
	n, ok := v.AsNumber()
	if !ok {
		return 0, fmt.Errorf("%s needs a number", name)
	}
	return n, nil
}

func oneText(name string, args []operand) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("%s takes 1 argument", name)
	}
	v := args[0].scalar()
	if v.Kind == KindError {
		return "", fmt.Errorf("%s", v.Err)
	}
	return v.String(), nil
}
