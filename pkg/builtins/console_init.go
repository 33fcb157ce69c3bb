package builtins

import (
	"fmt"
	"io"
	"strings"
	"time"

	"jscore/pkg/vm"
)

type ConsoleInitializer struct{}

func (c *ConsoleInitializer) Name() string {
	return "console"
}

func (c *ConsoleInitializer) Priority() int {
	return PriorityConsole
}

// console holds the per-VM state behind the console object.
type console struct {
	out    io.Writer
	depth  int
	counts map[string]int
	timers map[string]time.Time
	now    func() time.Time
}

func (c *ConsoleInitializer) InitRuntime(ctx *RuntimeContext) error {
	v := ctx.VM
	con := &console{
		out:    ctx.Output,
		counts: make(map[string]int),
		timers: make(map[string]time.Time),
		now:    time.Now,
	}
	obj := v.NewObject()

	methods := []struct {
		name   string
		fn     vm.NativeFunc
		length int
	}{
		{"log", con.printer(""), 0},
		{"info", con.printer(""), 0},
		{"debug", con.printer(""), 0},
		{"warn", con.printer("WARN: "), 0},
		{"error", con.printer("ERROR: "), 0},
		{"trace", con.trace, 0},
		{"count", con.count, 1},
		{"countReset", con.countReset, 1},
		{"time", con.time, 1},
		{"timeEnd", con.timeEnd, 1},
		{"group", con.group, 0},
		{"groupEnd", con.groupEnd, 0},
	}
	for _, m := range methods {
		if err := defineMethod(v, obj, m.name, m.fn, m.length); err != nil {
			return err
		}
	}
	return ctx.DefineGlobal("console", vm.ObjectValue(obj))
}

func (c *console) writeln(line string) {
	fmt.Fprintf(c.out, "%s%s\n", strings.Repeat("  ", c.depth), line)
}

// joinArgs converts every argument with ToString and joins them with
// spaces.
func joinArgs(v *vm.VM) (string, error) {
	parts := make([]string, v.Top())
	for i := range parts {
		s, err := v.ToString(i)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return strings.Join(parts, " "), nil
}

func (c *console) printer(prefix string) vm.NativeFunc {
	return func(v *vm.VM) error {
		line, err := joinArgs(v)
		if err != nil {
			return err
		}
		c.writeln(prefix + line)
		v.PushUndefined()
		return nil
	}
}

// trace prints its arguments followed by the script call stack.
func (c *console) trace(v *vm.VM) error {
	line, err := joinArgs(v)
	if err != nil {
		return err
	}
	c.writeln("Trace: " + line + v.StackTrace(1))
	v.PushUndefined()
	return nil
}

func label(v *vm.VM) (string, error) {
	if !v.IsDefined(0) {
		return "default", nil
	}
	return v.ToString(0)
}

func (c *console) count(v *vm.VM) error {
	l, err := label(v)
	if err != nil {
		return err
	}
	c.counts[l]++
	c.writeln(fmt.Sprintf("%s: %d", l, c.counts[l]))
	v.PushUndefined()
	return nil
}

func (c *console) countReset(v *vm.VM) error {
	l, err := label(v)
	if err != nil {
		return err
	}
	delete(c.counts, l)
	v.PushUndefined()
	return nil
}

func (c *console) time(v *vm.VM) error {
	l, err := label(v)
	if err != nil {
		return err
	}
	c.timers[l] = c.now()
	v.PushUndefined()
	return nil
}

func (c *console) timeEnd(v *vm.VM) error {
	l, err := label(v)
	if err != nil {
		return err
	}
	start, ok := c.timers[l]
	if !ok {
		c.writeln(fmt.Sprintf("Timer '%s' does not exist", l))
	} else {
		elapsed := c.now().Sub(start)
		c.writeln(fmt.Sprintf("%s: %.3fms", l, float64(elapsed.Nanoseconds())/1e6))
		delete(c.timers, l)
	}
	v.PushUndefined()
	return nil
}

func (c *console) group(v *vm.VM) error {
	line, err := joinArgs(v)
	if err != nil {
		return err
	}
	if line != "" {
		c.writeln(line)
	}
	c.depth++
	v.PushUndefined()
	return nil
}

func (c *console) groupEnd(v *vm.VM) error {
	if c.depth > 0 {
		c.depth--
	}
	v.PushUndefined()
	return nil
}
