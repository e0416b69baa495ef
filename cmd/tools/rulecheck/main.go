// Command rulecheck compiles every ruleset document under a directory.
// Exit code 0 = ok, 1 = invalid document, 2 = other error.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/noah-isme/toko-promo/internal/ruleset"
)

func main() {
	root := flag.String("dir", "rules", "directory holding ruleset YAML files")
	flag.Parse()

	results, err := scan(*root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rulecheck error: %v\n", err)
		os.Exit(2)
	}
	failed := false
	for _, r := range results {
		if r.err != nil {
			failed = true
			fmt.Fprintf(os.Stderr, "INVALID: %s: %v\n", r.path, r.err)
			continue
		}
		fmt.Printf("ok: %s (%s)\n", r.path, strings.Join(r.names, ", "))
	}
	if failed {
		os.Exit(1)
	}
}

type result struct {
	path  string
	names []string
	err   error
}

// scan returns one result per YAML file. Read failures abort the scan;
// compile failures are reported per file.
func scan(dir string) ([]result, error) {
	var results []result
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".yaml", ".yml":
		default:
			return nil
		}
		rs, err := ruleset.Load(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				return err
			}
			results = append(results, result{path: path, err: err})
			return nil
		}
		results = append(results, result{path: path, names: rs.Names()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
