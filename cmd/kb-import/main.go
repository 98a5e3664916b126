package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/consult/pkg/consult/config"
	"github.com/cognicore/consult/pkg/consult/kbstore"
	"github.com/cognicore/consult/pkg/consult/kbstore/sqlite"
)

func main() {
	var (
		dbPath = flag.String("db", "", "Rulebase library database (required)")
		file   = flag.String("file", "", "Rulebase YAML file to import (required)")
		name   = flag.String("name", "", "Library name (defaults to file base name)")
		list   = flag.Bool("list", false, "List library contents instead of importing")
	)
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("--db required")
	}

	ctx := context.Background()

	store, err := sqlite.Open(ctx, *dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	if *list {
		if err := listLibrary(ctx, store); err != nil {
			log.Fatal(err)
		}
		return
	}

	if *file == "" {
		log.Fatal("--file required")
	}

	if err := importFile(ctx, store, *file, *name); err != nil {
		log.Fatal(err)
	}
}

func importFile(ctx context.Context, store kbstore.Store, file, name string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("read rulebase: %w", err)
	}

	// Resolve before storing so broken documents never enter the library.
	doc, err := config.ParseDocument(data)
	if err != nil {
		return err
	}
	if _, _, err := config.Resolve(doc); err != nil {
		return err
	}

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	}

	stored, err := store.UpsertRulebase(ctx, kbstore.Rulebase{
		Name:     name,
		Target:   doc.Target,
		Document: data,
	})
	if err != nil {
		return fmt.Errorf("store rulebase: %w", err)
	}

	fmt.Printf("Imported %q (target %s, revision %s)\n", stored.Name, stored.Target, stored.Revision)
	return nil
}

func listLibrary(ctx context.Context, store kbstore.Store) error {
	infos, err := store.ListRulebases(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("Library is empty.")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%-20s target=%-12s revision=%s imported=%s\n",
			info.Name, info.Target, info.Revision, info.ImportedAt.Format("2006-01-02"))
	}
	return nil
}
