package builtins

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"

	"jscore/pkg/vm"
)

type JSONInitializer struct{}

func (j *JSONInitializer) Name() string {
	return "JSON"
}

func (j *JSONInitializer) Priority() int {
	return PriorityJSON
}

func (j *JSONInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	jsonObj := v.NewObject()
	if err := defineMethod(v, jsonObj, "parse", jsonParse, 1); err != nil {
		return err
	}
	if err := defineMethod(v, jsonObj, "stringify", jsonStringify, 3); err != nil {
		return err
	}
	return ctx.DefineGlobal("JSON", vm.ObjectValue(jsonObj))
}

// jsonSyntaxError marks a malformed input, as opposed to a script
// exception raised while building the result.
type jsonSyntaxError struct{ error }

func jsonParse(v *vm.VM) error {
	text, err := v.ToString(0)
	if err != nil {
		return err
	}
	base := v.Top()
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	err = pushJSON(v, dec)
	if err == nil {
		if _, terr := dec.Token(); terr != io.EOF {
			err = jsonSyntaxError{errors.New("unexpected data after value")}
		}
	}
	var syn jsonSyntaxError
	if errors.As(err, &syn) {
		v.SetTop(base)
		return v.ThrowSyntaxError("JSON.parse: %s", syn.error)
	}
	return err
}

// pushJSON decodes one value from dec and pushes it.
func pushJSON(v *vm.VM, dec *json.Decoder) error {
	tok, err := dec.Token()
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		return jsonSyntaxError{err}
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			v.PushNewObject()
			for dec.More() {
				tok, err := dec.Token()
				if err != nil {
					return jsonSyntaxError{err}
				}
				key, _ := tok.(string)
				if err := pushJSON(v, dec); err != nil {
					return err
				}
				if err := v.SetProp(-2, key); err != nil {
					return err
				}
			}
		case '[':
			v.PushNewArray()
			for i := 0; dec.More(); i++ {
				if err := pushJSON(v, dec); err != nil {
					return err
				}
				if err := v.SetIndex(-2, i); err != nil {
					return err
				}
			}
		default:
			return jsonSyntaxError{errors.Errorf("unexpected %q", rune(t))}
		}
		if _, err := dec.Token(); err != nil {
			return jsonSyntaxError{err}
		}
	case string:
		v.PushString(t)
	case json.Number:
		// Out of range literals become infinities.
		f, _ := strconv.ParseFloat(string(t), 64)
		v.PushNumber(f)
	case bool:
		v.PushBoolean(t)
	case nil:
		v.PushNull()
	}
	return nil
}

type jsonStringifier struct {
	v        *vm.VM
	replacer vm.Value
	gap      string
	stack    []*vm.Object
}

func jsonStringify(v *vm.VM) error {
	s := &jsonStringifier{v: v, replacer: vm.Undefined}
	if v.IsCallable(1) {
		s.replacer = v.Get(1)
	}
	switch {
	case v.IsNumber(2):
		n, err := v.ToInteger(2)
		if err != nil {
			return err
		}
		s.gap = strings.Repeat(" ", int(max(0, min(10, n))))
	case v.IsString(2):
		gap, err := v.ToString(2)
		if err != nil {
			return err
		}
		for utf8.RuneCountInString(gap) > 10 {
			_, size := utf8.DecodeLastRuneInString(gap)
			gap = gap[:len(gap)-size]
		}
		s.gap = gap
	}

	// The replacer sees the value as the "" property of a wrapper.
	v.PushNewObject()
	v.Copy(0)
	if err := v.SetProp(-2, ""); err != nil {
		return err
	}
	text, ok, err := s.str(v.Get(-1), "", v.Get(0), "")
	if err != nil {
		return err
	}
	if !ok {
		v.PushUndefined()
		return nil
	}
	v.PushString(text)
	return nil
}

// str serializes val found under key in holder. ok is false when the
// value has no JSON form and must be skipped.
func (s *jsonStringifier) str(holder vm.Value, key string, val vm.Value, indent string) (string, bool, error) {
	base := s.v.Top()
	text, ok, err := s.serialize(holder, key, val, indent)
	if err == nil {
		s.v.SetTop(base)
	}
	return text, ok, err
}

// serialize may leave scratch values on the stack. A thrown exception
// has already reset the stack, so only str's success path trims it.
func (s *jsonStringifier) serialize(holder vm.Value, key string, val vm.Value, indent string) (string, bool, error) {
	v := s.v

	if val.IsObject() {
		v.PushValue(val)
		if err := v.GetProp(-1, "toJSON"); err != nil {
			return "", false, err
		}
		if v.IsCallable(-1) {
			res, err := v.CallValue(v.Get(-1), val, v.NewString(key))
			if err != nil {
				return "", false, err
			}
			val = res
			v.PushValue(res)
		}
	}
	if s.replacer.IsObject() {
		res, err := v.CallValue(s.replacer, holder, v.NewString(key), val)
		if err != nil {
			return "", false, err
		}
		val = res
		v.PushValue(res)
	}

	if val.IsObject() {
		if prim, ok := val.AsObject().PrimitiveValue(); ok && val.AsObject().Class != vm.ClassDate {
			val = prim
		}
	}

	switch {
	case val.IsUndefined():
		return "", false, nil
	case val.IsNull():
		return "null", true, nil
	case val.IsBoolean():
		return strconv.FormatBool(val.AsBoolean()), true, nil
	case val.IsNumber():
		return jsonNumber(val.AsNumber()), true, nil
	case val.IsString():
		return jsonQuote(val.AsString()), true, nil
	}

	obj := val.AsObject()
	if obj.IsCallable() {
		return "", false, nil
	}
	for _, seen := range s.stack {
		if seen == obj {
			return "", false, v.ThrowTypeError("JSON.stringify: cyclic object value")
		}
	}
	s.stack = append(s.stack, obj)
	defer func() { s.stack = s.stack[:len(s.stack)-1] }()

	v.PushValue(val)
	if obj.Class == vm.ClassArray {
		return s.array(val, indent)
	}
	return s.object(val, indent)
}

func (s *jsonStringifier) array(arr vm.Value, indent string) (string, bool, error) {
	v := s.v
	inner := indent + s.gap
	n, err := v.GetLength(-1)
	if err != nil {
		return "", false, err
	}
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		if err := v.GetIndex(-1, i); err != nil {
			return "", false, err
		}
		text, ok, err := s.str(arr, strconv.Itoa(i), v.Get(-1), inner)
		if err != nil {
			return "", false, err
		}
		v.Pop(1)
		if !ok {
			text = "null"
		}
		parts[i] = text
	}
	return s.wrap("[", "]", parts, indent), true, nil
}

func (s *jsonStringifier) object(obj vm.Value, indent string) (string, bool, error) {
	v := s.v
	inner := indent + s.gap
	colon := ":"
	if s.gap != "" {
		colon = ": "
	}
	if err := v.PushIterator(-1, true); err != nil {
		return "", false, err
	}
	var parts []string
	for {
		key, more, err := v.NextIterator(-1)
		if err != nil {
			return "", false, err
		}
		if !more {
			break
		}
		if err := v.GetProp(-2, key); err != nil {
			return "", false, err
		}
		text, ok, err := s.str(obj, key, v.Get(-1), inner)
		if err != nil {
			return "", false, err
		}
		v.Pop(1)
		if ok {
			parts = append(parts, jsonQuote(key)+colon+text)
		}
	}
	return s.wrap("{", "}", parts, indent), true, nil
}

func (s *jsonStringifier) wrap(open, close string, parts []string, indent string) string {
	if len(parts) == 0 {
		return open + close
	}
	if s.gap == "" {
		return open + strings.Join(parts, ",") + close
	}
	inner := indent + s.gap
	return open + "\n" + inner + strings.Join(parts, ",\n"+inner) + "\n" + indent + close
}

func jsonNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	return vm.NumberToString(f)
}

func jsonQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
