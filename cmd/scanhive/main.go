package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/scanhive/scanhive/cmd/internal"
	"github.com/scanhive/scanhive/internal/statsdb"
	"github.com/scanhive/scanhive/scanner"
)

func main() {
	statsDSN := flag.String("stats-dsn", "", "MySQL DSN to persist per-file scan statistics to (optional)")
	timeout := flag.Duration("timeout", 30*time.Second, "per-file scan timeout")
	flag.Parse()

	if flag.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: scanhive [flags] <rules.yar> <path>\n")
		flag.PrintDefaults()
		os.Exit(1)
	}
	rulesFile, scanPath := flag.Arg(0), flag.Arg(1)

	rules, err := internal.CompileRules(rulesFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error compiling rules: %v\n", err)
		os.Exit(1)
	}

	acPatterns, rawRegexes := rules.Stats()
	fmt.Fprintf(os.Stderr, "compiled %d rules (%d AC patterns, %d raw regexes)\n", rules.NumRules(), acPatterns, rawRegexes)

	var db *statsdb.DB
	if *statsDSN != "" {
		db, err = statsdb.Open(context.Background(), *statsDSN)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening stats sink: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
	}

	var scanned, matched int
	err = filepath.WalkDir(scanPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return nil
		}
		if d.IsDir() {
			return nil
		}
		scanned++

		start := time.Now()
		var matches scanner.MatchRules
		scanErr := rules.ScanFile(path, 0, *timeout, &matches)
		duration := time.Since(start)
		if scanErr != nil {
			fmt.Fprintf(os.Stderr, "error scanning %s: %v\n", path, scanErr)
			return nil
		}

		if len(matches) > 0 {
			matched++
			fmt.Println(path)
		}

		if db != nil {
			rec := statsdb.ScanRecord{
				Path:         path,
				RuleCount:    rules.NumRules(),
				ACPatterns:   acPatterns,
				RawRegexes:   rawRegexes,
				MatchedRules: len(matches),
				Duration:     duration,
				ScannedAt:    start,
			}
			if err := db.Insert(context.Background(), rec); err != nil {
				fmt.Fprintf(os.Stderr, "error persisting stats for %s: %v\n", path, err)
			}
		}

		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error walking path: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "scanned %d files, %d matched\n", scanned, matched)
}
