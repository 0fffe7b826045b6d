package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/a68/check"
	"github.com/a68/diag"
	"github.com/a68/genie"
	"github.com/a68/mode"
	"github.com/a68/symtab"
	"github.com/a68/transput"
	"github.com/chzyer/readline"
	"github.com/npillmayer/schuko/gtrace"
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
	"github.com/pterm/pterm"
)

// environ bundles the static collaborators a demo program is checked
// and declared against, separate from the Evaluator that runs it , 
// mirroring the split between check.Checker's and genie.Evaluator's
// own, largely overlapping, sets of fields (§4.3, §4.7).
type environ struct {
	modes  *mode.Table
	scopes *symtab.ScopeTree
	global *symtab.Scope
	bag    *diag.Bag
	binder *symtab.Binder
}

func main() {
	initDisplay()
	gtrace.SyntaxTracer = gologadapter.New()
	tlevel := flag.String("trace", "Info", "Trace level [Debug|Info|Error]")
	heapSize := flag.Int("heap", 1<<16, "heap size in bytes for the genie's collector")
	flag.Parse()
	gtrace.SyntaxTracer.SetTraceLevel(tracing.TraceLevelFromString(*tlevel))

	pterm.Info.Println("a68 core driver, mode system, checker and genie over demo fragments")

	if name := strings.TrimSpace(strings.Join(flag.Args(), " ")); name != "" {
		runOne(name, *heapSize)
		return
	}

	repl, err := readline.New("a68> ")
	if err != nil {
		pterm.Error.Println(err.Error())
		os.Exit(3)
	}
	defer repl.Close()

	pterm.Info.Println("type a demo name to run it, :list to see them, <ctrl>D to quit")
	for {
		line, err := repl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ":list" {
			listDemos()
			continue
		}
		runOne(line, *heapSize)
	}
	fmt.Println("Good bye!")
}

func initDisplay() {
	pterm.Info.Prefix = pterm.Prefix{
		Text:  "  >>",
		Style: pterm.NewStyle(pterm.BgCyan, pterm.FgBlack),
	}
	pterm.Error.Prefix = pterm.Prefix{
		Text:  "  Error",
		Style: pterm.NewStyle(pterm.BgRed, pterm.FgBlack),
	}
}

func listDemos() {
	names := make([]string, len(demoPrograms))
	for i, p := range demoPrograms {
		names[i] = fmt.Sprintf("%-10s %s", p.name, p.doc)
	}
	sort.Strings(names)
	for _, n := range names {
		pterm.Println(n)
	}
}

// newEnviron builds a fresh mode table, scope tree and standard environ
// for one demo run, demo programs don't share state across runs, the
// way each REPL line in trepl/repl.go is evaluated against the same
// long-lived environment, but here every run gets its own clean
// standard environ instead, since the demo set never builds on a prior
// run's declarations.
func newEnviron(heapBytes int) (*environ, *check.Checker, *genie.Evaluator) {
	bag := diag.NewBag()
	modes := mode.NewTable(bag)
	scopes := &symtab.ScopeTree{}
	global := scopes.PushNewScope("global")
	binder := symtab.NewBinder(scopes, bag)
	ann := check.NewAnnotations()

	checker := check.NewChecker(modes, scopes, binder, bag)
	checker.Ann = ann

	ev := genie.NewEvaluator(modes, scopes, binder, bag, ann, heapBytes)
	ev.Frames.Open("global", nil, 0)
	ev.InstallStandardEnviron()
	ev.InstallTransput(transput.NewBasic(os.Stdin))

	env := &environ{modes: modes, scopes: scopes, global: global, bag: bag, binder: binder}
	return env, checker, ev
}

func runOne(name string, heapBytes int) {
	demo := findDemo(name)
	if demo == nil {
		pterm.Error.Println(fmt.Sprintf("no such demo %q (try :list)", name))
		return
	}

	env, checker, ev := newEnviron(heapBytes)
	if demo.declare != nil {
		demo.declare(env)
	}
	tree := demo.build()

	checker.CheckUnit(tree, mode.NoMode, check.ContextStrong)
	if env.bag.HasErrors() {
		for _, d := range env.bag.All() {
			pterm.Error.Println(d.String())
		}
		return
	}
	for _, d := range env.bag.All() {
		pterm.Warning.Println(d.String())
	}

	result, err := ev.Eval(tree)
	if err != nil {
		pterm.Error.Println(err.Error())
		return
	}
	pterm.Info.Println(result.String())
}
