package vm

import (
	"math"
	"strings"

	"github.com/dlclark/regexp2"
)

// RegExpFlags holds the g, i and m flags of a regexp.
type RegExpFlags uint8

const (
	RegExpGlobal RegExpFlags = 1 << iota
	RegExpIgnoreCase
	RegExpMultiline
)

func (f RegExpFlags) String() string {
	var sb strings.Builder
	if f&RegExpGlobal != 0 {
		sb.WriteByte('g')
	}
	if f&RegExpIgnoreCase != 0 {
		sb.WriteByte('i')
	}
	if f&RegExpMultiline != 0 {
		sb.WriteByte('m')
	}
	return sb.String()
}

// ParseRegExpFlags parses a flag string such as "gi". Repeated or unknown
// flags are rejected.
func ParseRegExpFlags(s string) (RegExpFlags, bool) {
	var f RegExpFlags
	for _, c := range s {
		var bit RegExpFlags
		switch c {
		case 'g':
			bit = RegExpGlobal
		case 'i':
			bit = RegExpIgnoreCase
		case 'm':
			bit = RegExpMultiline
		default:
			return 0, false
		}
		if f&bit != 0 {
			return 0, false
		}
		f |= bit
	}
	return f, true
}

// RegExp is the payload of a regexp object. LastIndex is the match cursor
// used by global regexps.
type RegExp struct {
	Source    string
	Flags     RegExpFlags
	LastIndex int
	prog      *regexp2.Regexp
}

// RegExpMatch describes one successful match. Offsets count runes.
type RegExpMatch struct {
	Index    int
	End      int
	Captures []string
	Matched  []bool
}

// SetLastIndex stores an already integral cursor value.
func (re *RegExp) SetLastIndex(f float64) {
	switch {
	case f > math.MaxInt32:
		re.LastIndex = math.MaxInt32
	case f < math.MinInt32:
		re.LastIndex = math.MinInt32
	default:
		re.LastIndex = int(f)
	}
}

// Exec matches input starting at start (in runes). It returns nil when
// there is no match.
func (re *RegExp) Exec(input string, start int) (*RegExpMatch, error) {
	runes := []rune(input)
	if start < 0 || start > len(runes) {
		return nil, nil
	}
	m, err := re.prog.FindRunesMatchStartingAt(runes, start)
	if err != nil || m == nil {
		return nil, err
	}
	groups := m.Groups()
	res := &RegExpMatch{
		Index:    m.Index,
		End:      m.Index + m.Length,
		Captures: make([]string, len(groups)),
		Matched:  make([]bool, len(groups)),
	}
	for i, g := range groups {
		if len(g.Captures) > 0 {
			res.Captures[i] = g.String()
			res.Matched[i] = true
		}
	}
	return res, nil
}

// compileRegExp returns a compiled program, consulting the engine's cache.
func (vm *VM) compileRegExp(source string, flags RegExpFlags) (*regexp2.Regexp, error) {
	key := flags.String() + "/" + source
	if cached, ok := vm.regexps.Get(key); ok {
		return cached.(*regexp2.Regexp), nil
	}
	var opts regexp2.RegexOptions = regexp2.ECMAScript
	if flags&RegExpIgnoreCase != 0 {
		opts |= regexp2.IgnoreCase
	}
	if flags&RegExpMultiline != 0 {
		opts |= regexp2.Multiline
	}
	prog, err := regexp2.Compile(source, opts)
	if err != nil {
		return nil, err
	}
	vm.regexps.Add(key, prog)
	return prog, nil
}

// NewRegExp compiles source and wraps it in a regexp object. A malformed
// pattern raises a SyntaxError.
func (vm *VM) NewRegExp(source string, flags RegExpFlags) (*Object, error) {
	prog, err := vm.compileRegExp(source, flags)
	if err != nil {
		return nil, vm.ThrowSyntaxError("invalid regular expression: %s", err)
	}
	obj := vm.newObject(ClassRegExp, vm.RegExpPrototype)
	obj.regexp = &RegExp{Source: source, Flags: flags, prog: prog}
	return obj, nil
}

// PushRegExp pushes a new regexp object.
func (vm *VM) PushRegExp(source string, flags RegExpFlags) error {
	obj, err := vm.NewRegExp(source, flags)
	if err != nil {
		return err
	}
	vm.PushObject(obj)
	return nil
}
