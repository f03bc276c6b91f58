package tiny

import (
	"fmt"
	"strings"
)

// astDumper renders a parsed program as an indented, Lisp-ish tree,
// used by cmd/tiny's -ast flag. It implements Visitor the same way
// CodeGen does, just to print instead of emit.
type astDumper struct {
	b     strings.Builder
	depth int
}

// DumpProgram renders every top-level statement returned by
// Parser.ParseProgram.
func DumpProgram(stmts []Node) string {
	d := &astDumper{}
	for _, s := range stmts {
		d.line(s)
	}
	return d.b.String()
}

// DumpSource parses src on a throwaway State and renders its AST,
// without compiling or running it. Used by cmd/tiny's -ast flag.
func DumpSource(file string, src []byte) (string, error) {
	st := NewState()
	parser, err := NewParser(file, src, st.symbols, st.numbers, st.strings)
	if err != nil {
		return "", err
	}
	stmts, err := parser.ParseProgram()
	if err != nil {
		return "", err
	}
	return DumpProgram(stmts), nil
}

func (d *astDumper) writeln(format string, args ...any) {
	d.b.WriteString(strings.Repeat("  ", d.depth))
	fmt.Fprintf(&d.b, format, args...)
	d.b.WriteByte('\n')
}

func (d *astDumper) line(n Node) {
	if n == nil {
		return
	}
	_ = n.Accept(d)
}

func (d *astDumper) child(label string, n Node) {
	d.writeln("%s:", label)
	d.depth++
	d.line(n)
	d.depth--
}

func (d *astDumper) VisitNull(n *NullNode) error { d.writeln("null"); return nil }

func (d *astDumper) VisitBool(n *BoolNode) error { d.writeln("bool %v", n.Value); return nil }

func (d *astDumper) VisitNum(n *NumNode) error { d.writeln("number %g", n.Value); return nil }

func (d *astDumper) VisitStr(n *StrNode) error { d.writeln("string %q", n.Value); return nil }

func (d *astDumper) VisitId(n *IdNode) error { d.writeln("id %s", n.Name); return nil }

func (d *astDumper) VisitCall(n *CallNode) error {
	d.writeln("call %s", n.Callee)
	d.depth++
	for _, a := range n.Args {
		d.line(a)
	}
	d.depth--
	return nil
}

func (d *astDumper) VisitBinary(n *BinaryNode) error {
	d.writeln("binary %s", TokenKind(n.Op))
	d.depth++
	d.child("lhs", n.LHS)
	d.child("rhs", n.RHS)
	d.depth--
	return nil
}

func (d *astDumper) VisitUnary(n *UnaryNode) error {
	d.writeln("unary %s", TokenKind(n.Op))
	d.depth++
	d.line(n.Child)
	d.depth--
	return nil
}

func (d *astDumper) VisitParen(n *ParenNode) error { return n.Child.Accept(d) }

func (d *astDumper) VisitBlock(n *BlockNode) error {
	d.writeln("block")
	d.depth++
	for _, s := range n.Stmts {
		d.line(s)
	}
	d.depth--
	return nil
}

func (d *astDumper) VisitProc(n *ProcNode) error {
	d.writeln("func %s(%s)", n.Name, strings.Join(n.Args, ", "))
	d.depth++
	d.line(n.Body)
	d.depth--
	return nil
}

func (d *astDumper) VisitIf(n *IfNode) error {
	d.writeln("if")
	d.depth++
	d.child("cond", n.Cond)
	d.child("then", n.Body)
	if n.Alt != nil {
		d.child("else", n.Alt)
	}
	d.depth--
	return nil
}

func (d *astDumper) VisitWhile(n *WhileNode) error {
	d.writeln("while")
	d.depth++
	d.child("cond", n.Cond)
	d.child("body", n.Body)
	d.depth--
	return nil
}

func (d *astDumper) VisitFor(n *ForNode) error {
	d.writeln("for")
	d.depth++
	d.child("init", n.Init)
	d.child("cond", n.Cond)
	d.child("step", n.Step)
	d.child("body", n.Body)
	d.depth--
	return nil
}

func (d *astDumper) VisitReturn(n *ReturnNode) error {
	if n.Expr == nil {
		d.writeln("return")
		return nil
	}
	d.writeln("return")
	d.depth++
	d.line(n.Expr)
	d.depth--
	return nil
}
