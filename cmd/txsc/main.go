// txsc compiles a Bitcoin-style script between TxScript, ASM and
// byte-script source.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"

	"github.com/dr8co/txsc/compiler"
	"github.com/dr8co/txsc/config"
	"github.com/dr8co/txsc/txscerr"
)

const version = "0.1.0"

var (
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true)

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#04B575"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAF00"))
)

// printUsage displays custom usage information.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, `txsc v%s

USAGE:
    %s -i <path> -s <dialect> -t <dialect> [OPTIONS]

DESCRIPTION:
    txsc compiles a script between three dialects: txscript (a small
    C-like source language), asm (symbolic assembly), and bytescript
    (raw hex). There is no interactive mode; every run compiles one
    file and writes the result to stdout.

OPTIONS:
    -i, --in <path>         Source file to compile
    -s, --src <dialect>     Source dialect: txscript, asm, bytescript
    -t, --target <dialect>  Target dialect: txscript, asm, bytescript
    -O, --opt <level>       Optimization level: 0, 1 or 2 (default 2)
    -v, --version           Show version information
    -h, --help              Show this help message

EXAMPLES:
    %s -i redeem.txs -s txscript -t bytescript
    %s -i redeem.asm -s asm -t txscript -O 0
`, version, os.Args[0], os.Args[0], os.Args[0])
}

func main() {
	flag.Usage = printUsage

	inFlag := flag.String("in", "", "Source file to compile")
	srcFlag := flag.String("src", "", "Source dialect: txscript, asm, bytescript")
	targetFlag := flag.String("target", "", "Target dialect: txscript, asm, bytescript")
	optFlag := flag.Int("opt", int(config.OptFull), "Optimization level: 0, 1 or 2")
	versionFlag := flag.Bool("version", false, "Show version information")

	flag.StringVar(inFlag, "i", "", "Source file to compile")
	flag.StringVar(srcFlag, "s", "", "Source dialect: txscript, asm, bytescript")
	flag.StringVar(targetFlag, "t", "", "Target dialect: txscript, asm, bytescript")
	flag.IntVar(optFlag, "O", int(config.OptFull), "Optimization level: 0, 1 or 2")
	flag.BoolVar(versionFlag, "v", false, "Show version information")

	flag.Parse()

	if *versionFlag {
		fmt.Printf("txsc v%s\n", version)
		return
	}

	if *inFlag == "" || *srcFlag == "" || *targetFlag == "" {
		printUsage()
		os.Exit(1)
	}

	if err := run(*inFlag, *srcFlag, *targetFlag, *optFlag); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func run(path, src, target string, optLevel int) error {
	cleaned := filepath.Clean(path)
	//nolint:gosec // the path is operator-supplied, not untrusted input
	content, err := os.ReadFile(cleaned)
	if err != nil {
		return fmt.Errorf("reading %s: %w", cleaned, err)
	}

	opts := config.Default()
	opts.OptLevel = config.OptLevel(optLevel)
	opts, err = config.ParseDirectives(string(content), opts)
	if err != nil {
		return err
	}

	result, err := compiler.Compile(string(content), compiler.Dialect(src), opts)
	if err != nil {
		return err
	}

	if opts.Verbose {
		for _, w := range result.Warnings {
			_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", warnStyle.Render("warning:"), w)
		}
	}

	out, err := compiler.Emit(result, compiler.Dialect(target))
	if err != nil {
		return err
	}

	fmt.Println(okStyle.Render(out))
	return nil
}

// printError renders a compilation error, color-coding the error kind
// when it carries one.
func printError(err error) {
	if e, ok := err.(*txscerr.Error); ok {
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", kindStyle.Render(string(e.Kind)+":"), errorStyle.Render(e.Error()))
		return
	}
	_, _ = fmt.Fprintln(os.Stderr, errorStyle.Render(err.Error()))
}
