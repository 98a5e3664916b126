package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cognicore/consult/pkg/consult"
	"github.com/cognicore/consult/pkg/consult/config"
	"github.com/cognicore/consult/pkg/consult/kbstore/sqlite"
	"github.com/cognicore/consult/pkg/consult/knowledge"
)

func main() {
	var (
		kbPath  = flag.String("kb", "", "Rulebase YAML file (mutually exclusive with --db)")
		dbPath  = flag.String("db", "", "Rulebase library database")
		name    = flag.String("name", "", "Rulebase name in the library (with --db)")
		verbose = flag.Bool("verbose", false, "Log engine events to stderr")
	)
	flag.Parse()

	if (*kbPath == "") == (*dbPath == "") {
		log.Fatal("exactly one of --kb or --db required")
	}
	if *dbPath != "" && *name == "" {
		log.Fatal("--name required with --db")
	}

	ctx := context.Background()

	base, target, err := loadRulebase(ctx, *kbPath, *dbPath, *name)
	if err != nil {
		log.Fatal(err)
	}

	logger := zerolog.Nop()
	if *verbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
			With().Timestamp().Logger()
	}

	session, err := consult.New(consult.Options{
		Base:   base,
		Target: target,
		Logger: &logger,
	})
	if err != nil {
		log.Fatal(err)
	}

	goal := base.Variable(target)
	fmt.Println("===========================================")
	fmt.Println("  Consult CLI")
	fmt.Printf("  Goal: %s\n", describe(goal))
	fmt.Println("===========================================")
	fmt.Println()
	fmt.Println("Answer by number or value name.")
	fmt.Println("Commands: facts, retract <variable>, quit")
	fmt.Println()

	runConsultation(session, bufio.NewScanner(os.Stdin))
}

func runConsultation(session *consult.Session, scanner *bufio.Scanner) {
	base := session.Base()

	for {
		if value, known := session.TargetValue(); known {
			fmt.Printf("\nVerdict: %s = %s\n", base.Variable(session.Target()).Name, value.Label)
			fmt.Println("(retract an answer to explore further, or quit)")
		}

		open := session.VariablesToQuery()
		if _, known := session.TargetValue(); !known && len(open) == 0 {
			fmt.Println("\nThe goal cannot be determined from the remaining questions.")
			return
		}

		var current *knowledge.Variable
		if len(open) > 0 {
			current = open[0]
			fmt.Printf("\n%s\n", describe(current))
			for i, valID := range current.Values {
				fmt.Printf("  %d) %s\n", i+1, base.Value(valID).Label)
			}
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println("\nGoodbye!")
			return
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		switch {
		case input == "quit":
			fmt.Println("Goodbye!")
			return
		case input == "facts":
			printFacts(session)
			continue
		case strings.HasPrefix(input, "retract "):
			retractByName(session, strings.TrimSpace(strings.TrimPrefix(input, "retract ")))
			continue
		}

		if current == nil {
			fmt.Println("No open question; use a command.")
			continue
		}

		valID, ok := resolveAnswer(base, current, input)
		if !ok {
			fmt.Printf("Not a valid answer for %s: %q\n", current.Name, input)
			continue
		}

		session.Assert(knowledge.Fact{
			Var:    current.ID,
			Value:  valID,
			Origin: knowledge.Entered,
		})
	}
}

func resolveAnswer(base *knowledge.Base, v *knowledge.Variable, input string) (knowledge.ValueID, bool) {
	if n, err := strconv.Atoi(input); err == nil {
		if n >= 1 && n <= len(v.Values) {
			return v.Values[n-1], true
		}
		return 0, false
	}
	return base.ValueByName(v.ID, input)
}

func retractByName(session *consult.Session, name string) {
	id, ok := session.Base().VariableByName(name)
	if !ok {
		fmt.Printf("Unknown variable: %q\n", name)
		return
	}
	session.Retract(id)
	fmt.Printf("Retracted %s.\n", name)
}

func printFacts(session *consult.Session) {
	facts := session.Facts()
	if len(facts) == 0 {
		fmt.Println("No facts yet.")
		return
	}
	base := session.Base()
	for _, f := range facts {
		fmt.Printf("  %s = %s (%s)\n",
			base.Variable(f.Var).Name,
			base.Value(f.Value).Label,
			f.Origin,
		)
	}
}

func describe(v *knowledge.Variable) string {
	if v.Question != "" {
		return v.Question
	}
	return v.Name + "?"
}

func loadRulebase(ctx context.Context, kbPath, dbPath, name string) (*knowledge.Base, knowledge.VarID, error) {
	if kbPath != "" {
		loader := config.Loader{Path: kbPath}
		comp, err := loader.Load()
		if err != nil {
			return nil, 0, err
		}
		return comp.Base, comp.Target, nil
	}

	store, err := sqlite.Open(ctx, dbPath)
	if err != nil {
		return nil, 0, fmt.Errorf("open library: %w", err)
	}
	defer store.Close()

	rb, found, err := store.GetRulebase(ctx, name)
	if err != nil {
		return nil, 0, fmt.Errorf("get rulebase: %w", err)
	}
	if !found {
		return nil, 0, fmt.Errorf("rulebase %q not in library", name)
	}

	doc, err := config.ParseDocument(rb.Document)
	if err != nil {
		return nil, 0, err
	}
	return config.Resolve(doc)
}
