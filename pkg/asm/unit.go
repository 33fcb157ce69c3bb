// Package asm reads and writes function units: YAML files that describe a
// vm.Function instruction by instruction.
//
// A unit looks like this:
//
//	name: main
//	params: [a, b]
//	strict: true
//	code:
//	  - [line, 1]
//	  - [getvar, print]
//	  - [undef]
//	  - [string, hello]
//	  - [call, 1]
//	  - [label, done]
//	  - [return]
//	functions:
//	  - name: helper
//	    code: [...]
//
// Opcode names are case-insensitive and may carry the "Op" prefix. The
// pseudo-instruction [label, name] marks a jump target; jumps name their
// target label, closures name a nested function, and local slots may be
// given by number or by parameter/local name. [number, x] picks the
// shortest encoding for x.
package asm

import (
	"gopkg.in/yaml.v3"
)

// Unit is the YAML form of one function.
type Unit struct {
	Name        string   `yaml:"name,omitempty"`
	File        string   `yaml:"file,omitempty"`
	Line        int      `yaml:"line,omitempty"`
	Params      []string `yaml:"params,flow,omitempty"`
	Locals      []string `yaml:"locals,flow,omitempty"`
	Strict      bool     `yaml:"strict,omitempty"`
	Lightweight bool     `yaml:"lightweight,omitempty"`
	Arguments   bool     `yaml:"arguments,omitempty"`
	Code        []Instr  `yaml:"code"`
	Functions   []*Unit  `yaml:"functions,omitempty"`
}

// Instr is one line of code: an opcode or pseudo-op and its operands.
type Instr struct {
	Args []string
	Line int // source line in the YAML file, 0 when built in memory
}

func (i *Instr) UnmarshalYAML(node *yaml.Node) error {
	i.Line = node.Line
	if node.Kind == yaml.ScalarNode {
		i.Args = []string{node.Value}
		return nil
	}
	return node.Decode(&i.Args)
}

func (i Instr) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, arg := range i.Args {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: arg})
	}
	return node, nil
}

func (i Instr) op() string {
	if len(i.Args) == 0 {
		return ""
	}
	return i.Args[0]
}
