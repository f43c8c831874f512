/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// ordo is a small interactive host for the expression/rule engine: a
// readline REPL (mirroring scm/prompt.go) over a directory of ruleset
// JSON files, hot-recompiled on change via fsnotify.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/dc0d/onexit"
	"github.com/fsnotify/fsnotify"

	"github.com/launix-de/ordo-engine/expr"
	"github.com/launix-de/ordo-engine/expr/jit/cache"
	"github.com/launix-de/ordo-engine/expr/profiler"
	"github.com/launix-de/ordo-engine/expr/tiered"
	"github.com/launix-de/ordo-engine/rule"
	"github.com/launix-de/ordo-engine/trace"
	"github.com/launix-de/ordo-engine/value"
)

const (
	newprompt    = "\033[32mordo>\033[0m "
	resultprompt = "\033[31m=\033[0m "
)

// registry holds every ruleset currently loaded from a directory, keyed
// by file basename (without extension), recompiled as files change.
type registry struct {
	mu    sync.RWMutex
	rules map[string]*rule.CompiledRuleSet
	errs  map[string]error
}

func newRegistry() *registry {
	return &registry{rules: make(map[string]*rule.CompiledRuleSet), errs: make(map[string]error)}
}

func (reg *registry) load(path string) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	data, err := os.ReadFile(path)
	if err != nil {
		reg.setError(name, err)
		return
	}
	r, err := rule.ParseRuleSet(data)
	if err != nil {
		reg.setError(name, err)
		return
	}
	cr, err := rule.Compile(r)
	if err != nil {
		reg.setError(name, err)
		return
	}
	reg.mu.Lock()
	reg.rules[name] = cr
	delete(reg.errs, name)
	reg.mu.Unlock()
}

func (reg *registry) setError(name string, err error) {
	reg.mu.Lock()
	reg.errs[name] = err
	reg.mu.Unlock()
	fmt.Fprintf(os.Stderr, "ordo: failed to load ruleset %q: %v\n", name, err)
}

func (reg *registry) get(name string) (*rule.CompiledRuleSet, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	cr, ok := reg.rules[name]
	return cr, ok
}

func (reg *registry) names() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]string, 0, len(reg.rules))
	for n := range reg.rules {
		out = append(out, n)
	}
	return out
}

// loadDir loads every *.json file under dir and starts an fsnotify
// watcher that reloads a file whenever it's written, created or
// renamed into place.
func loadDir(dir string, reg *registry) (*fsnotify.Watcher, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		reg.load(filepath.Join(dir, e.Name()))
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Ext(ev.Name) != ".json" {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					reg.load(ev.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				fmt.Fprintf(os.Stderr, "ordo: watcher error: %v\n", err)
			}
		}
	}()
	return w, nil
}

func main() {
	fmt.Print(`ordo rule engine REPL
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	logger := trace.NewFileLogger(os.Stdout)
	jitCache := cache.New(cache.DefaultConfig())
	onexit.Register(func() {
		if err := jitCache.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "ordo: closing jit cache: %v\n", err)
		}
	})
	prof := profiler.New()
	evaluator := tiered.New(prof, jitCache)
	executor := rule.NewExecutor(evaluator, nil, logger, nil, nil)

	reg := newRegistry()
	if dir := rulesetDir(); dir != "" {
		if w, err := loadDir(dir, reg); err != nil {
			fmt.Fprintf(os.Stderr, "ordo: watching %s: %v\n", dir, err)
		} else {
			onexit.Register(func() { w.Close() })
		}
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:            newprompt,
		HistoryFile:       ".ordo-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		panic(err)
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			panic(err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		runLine(line, reg, executor, prof)
	}
}

func rulesetDir() string {
	if len(os.Args) > 1 {
		return os.Args[1]
	}
	return ""
}

// runLine dispatches one REPL line to a command handler, recovering
// from any panic the same way scm/prompt.go's Repl does so a bad
// expression never kills the session.
func runLine(line string, reg *registry, executor *rule.Executor, prof *profiler.Profiler) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Println("panic:", r)
		}
	}()

	fields := strings.SplitN(line, " ", 2)
	switch fields[0] {
	case ":list":
		for _, n := range reg.names() {
			fmt.Println(" ", n)
		}
	case ":run":
		runRuleset(fields, reg, executor)
	case ":profile":
		printProfile(prof)
	default:
		evalLine(line)
	}
}

// printProfile dumps every expression the profiler has observed so far,
// hottest first — cmd/ordo's stand-in for a dashboard.
func printProfile(prof *profiler.Profiler) {
	snapshots := prof.AllExpressionSnapshots()
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].HotScore > snapshots[j].HotScore })
	for _, s := range snapshots {
		fmt.Printf("  hash=%x count=%d tier=%s jit=%v score=%.0f\n", s.Hash, s.Count, s.Tier, s.JITTriggered, s.HotScore)
	}
}

func runRuleset(fields []string, reg *registry, executor *rule.Executor) {
	if len(fields) < 2 {
		fmt.Println("usage: :run <ruleset> <json-input>")
		return
	}
	rest := strings.SplitN(fields[1], " ", 2)
	if len(rest) < 2 {
		fmt.Println("usage: :run <ruleset> <json-input>")
		return
	}
	name, inputJSON := rest[0], rest[1]
	cr, ok := reg.get(name)
	if !ok {
		fmt.Printf("ordo: no ruleset loaded named %q\n", name)
		return
	}
	input, err := rule.ValueFromJSON([]byte(inputJSON))
	if err != nil {
		fmt.Println("input error:", err)
		return
	}
	res, err := executor.Execute(cr, input, rule.Options{})
	if err != nil {
		fmt.Println("execution error:", err)
		return
	}
	fmt.Printf("%scode=%s output=%v\n", resultprompt, res.Code, res.Output)
}

// evalLine evaluates a bare expression against an empty input, useful
// for ad-hoc checks of the expression language itself.
func evalLine(src string) {
	e, err := expr.Parse(src)
	if err != nil {
		fmt.Println("parse error:", err)
		return
	}
	result, err := expr.Eval(e, emptyResolver{})
	if err != nil {
		fmt.Println("eval error:", err)
		return
	}
	fmt.Print(resultprompt)
	fmt.Println(result.String())
}

type emptyResolver struct{}

func (emptyResolver) Resolve(string) (value.Value, bool) { return value.Value{}, false }
