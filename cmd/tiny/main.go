// Command tiny compiles and runs tiny scripts.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clarete/tiny"
)

func main() {
	input := flag.String("input", "", "path to a script file (reads stdin if empty)")
	printAST := flag.Bool("ast", false, "print the parsed syntax tree instead of running the script")
	printDisasm := flag.Bool("disasm", false, "print the compiled bytecode instead of running the script")
	interactive := flag.Bool("interactive", false, "start a line-by-line REPL")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("tiny: ")

	if *interactive {
		runREPL()
		return
	}

	file := *input
	var src []byte
	var err error
	if file == "" {
		file = "<stdin>"
		src, err = readAll(os.Stdin)
	} else {
		src, err = os.ReadFile(file)
	}
	if err != nil {
		log.Fatalf("reading %s: %v", file, err)
	}

	switch {
	case *printAST:
		out, err := tiny.DumpSource(file, src)
		if err != nil {
			reportAndExit(file, src, err)
		}
		fmt.Print(out)
	case *printDisasm:
		state := tiny.NewState()
		if err := state.Compile(file, src); err != nil {
			reportAndExit(file, src, err)
		}
		fmt.Print(tiny.Disassemble(state))
	default:
		state := tiny.NewState()
		if err := state.Compile(file, src); err != nil {
			reportAndExit(file, src, err)
		}
		th := tiny.NewThread(state)
		if err := th.Run(); err != nil {
			log.Fatal(err)
		}
	}
}

func readAll(f *os.File) ([]byte, error) {
	var buf []byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		buf = append(buf, scanner.Bytes()...)
		buf = append(buf, '\n')
	}
	return buf, scanner.Err()
}

func reportAndExit(file string, src []byte, err error) {
	if ce, ok := err.(*tiny.CompileError); ok {
		fmt.Fprintln(os.Stderr, tiny.SourceWindow(src, ce.Loc))
	}
	log.Fatal(err)
}

func runREPL() {
	state := tiny.NewState()
	th := tiny.NewThread(state)
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()
		if err := state.Compile("<repl>", []byte(line)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			fmt.Print("> ")
			continue
		}
		th.ResumeAt(state.LastEntryPC())
		if err := th.Run(); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Print("> ")
	}
}
