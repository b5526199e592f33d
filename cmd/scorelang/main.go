// Command scorelang drives the compiler core from the terminal: compile a
// score to MusicXML, format or minify it, run the validator, or poke at
// sources interactively in a REPL.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/peterh/liner"

	score "github.com/scorelang/score"
)

const (
	appName     = "scorelang"
	historyFile = ".scorelang_history"
	promptMain  = "==> "
	promptCont  = "... "
)

var banner = fmt.Sprintf("Scorelang %s REPL\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.", score.Version)

const replHelp = `
REPL commands:
  :xml      Compile the buffered score to MusicXML
  :fmt      Pretty-print the buffered score
  :min      Minify the buffered score
  :check    Validate the buffered score
  :clear    Drop the buffered score
  :quit     Exit the REPL
Anything else is appended to the score buffer.
`

func red(s string) string { return "\x1b[31m" + s + "\x1b[0m" }

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch cmd := os.Args[1]; cmd {
	case "xml":
		os.Exit(cmdXML(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "version":
		fmt.Println(score.Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command %q\n", appName, cmd)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Printf(`Scorelang %s

Usage:
  %s xml [-compact] [-no-decl] [-o out.musicxml] [file.score]   Compile to MusicXML
  %s fmt [-w] [-minify] [file.score ...]                        Format source file(s)
  %s check [file.score ...]                                     Parse and validate
  %s repl                                                       Interactive session
  %s version                                                    Print the version

With no file, xml reads from stdin.
`, score.Version, appName, appName, appName, appName, appName)
}

func readSource(path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

// reportDiagnostics renders every diagnostic with its caret snippet and
// reports whether any was an error.
func reportDiagnostics(src, name string, ds []score.Diagnostic) bool {
	bad := false
	for _, d := range ds {
		if d.Severity == score.SeverityError {
			bad = true
		}
		if name != "" {
			fmt.Fprintf(os.Stderr, "%s: ", name)
		}
		fmt.Fprintln(os.Stderr, score.RenderDiagnostic(src, d))
	}
	return bad
}

// -----------------------------------------------------------------------------
// xml
// -----------------------------------------------------------------------------

func cmdXML(args []string) int {
	fs := flag.NewFlagSet("xml", flag.ContinueOnError)
	compact := fs.Bool("compact", false, "emit compact XML without indentation")
	noDecl := fs.Bool("no-decl", false, "omit the XML declaration and doctype")
	out := fs.String("o", "", "write output to a file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := ""
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	src, err := readSource(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, path, err)
		return 1
	}

	res := score.Parse(src)
	reportDiagnostics(src, path, append(res.Errors, res.Warnings...))
	if res.Score == nil {
		return 1
	}

	opts := score.DefaultXMLOptions()
	opts.PrettyPrint = !*compact
	opts.IncludeXMLDeclaration = !*noDecl
	xml := score.ToMusicXML(res.Score, &opts)

	if *out == "" {
		fmt.Print(xml)
		return 0
	}
	if err := os.WriteFile(*out, []byte(xml), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "%s: cannot write %s: %v\n", appName, *out, err)
		return 1
	}
	return 0
}

// -----------------------------------------------------------------------------
// fmt
// -----------------------------------------------------------------------------

func cmdFmt(args []string) int {
	fs := flag.NewFlagSet("fmt", flag.ContinueOnError)
	write := fs.Bool("w", false, "rewrite file(s) in place")
	minify := fs.Bool("minify", false, "minify instead of pretty-printing")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	paths := fs.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	for _, path := range paths {
		src, err := readSource(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, path, err)
			return 1
		}
		var outText string
		if *minify {
			outText = score.Minify(src)
		} else {
			outText = score.Format(src, nil)
		}
		if *write && path != "-" {
			if err := os.WriteFile(path, []byte(outText), 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "%s: cannot write %s: %v\n", appName, path, err)
				return 1
			}
			continue
		}
		fmt.Print(outText)
	}
	return 0
}

// -----------------------------------------------------------------------------
// check
// -----------------------------------------------------------------------------

func cmdCheck(args []string) int {
	if len(args) == 0 {
		args = []string{"-"}
	}
	ret := 0
	for _, path := range args {
		src, err := readSource(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: cannot read %s: %v\n", appName, path, err)
			return 1
		}
		res := score.Parse(src)
		bad := reportDiagnostics(src, path, append(res.Errors, res.Warnings...))
		if res.Score != nil {
			vr := score.Validate(res.Score)
			if reportDiagnostics(src, path, vr.Diagnostics) {
				bad = true
			}
		} else {
			bad = true
		}
		if bad {
			ret = 1
		}
	}
	return ret
}

// -----------------------------------------------------------------------------
// repl
// -----------------------------------------------------------------------------

func cmdRepl(_ []string) int {
	fmt.Println(banner)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigc)
	go func() {
		<-sigc
		ln.Close()
		os.Exit(130)
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	var buf strings.Builder
	for {
		prompt := promptMain
		if buf.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return 0
		}
		if err != nil {
			continue
		}
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, ":") {
			src := buf.String()
			switch strings.ToLower(trimmed) {
			case ":quit":
				return 0
			case ":help":
				fmt.Print(replHelp)
			case ":clear":
				buf.Reset()
			case ":fmt":
				fmt.Print(score.Format(src, nil))
			case ":min":
				fmt.Print(score.Minify(src))
			case ":check":
				res := score.Parse(src)
				bad := reportDiagnostics(src, "", append(res.Errors, res.Warnings...))
				if res.Score != nil {
					bad = reportDiagnostics(src, "", score.Validate(res.Score).Diagnostics) || bad
				}
				if !bad {
					fmt.Println("ok")
				}
			case ":xml":
				res := score.Parse(src)
				reportDiagnostics(src, "", append(res.Errors, res.Warnings...))
				if res.Score == nil {
					fmt.Fprintln(os.Stderr, red("no score"))
					continue
				}
				fmt.Print(score.ToMusicXML(res.Score, nil))
			default:
				fmt.Println("unknown command. Type :help for commands.")
			}
			continue
		}

		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
		if trimmed != "" {
			ln.AppendHistory(line)
		}
	}
}
