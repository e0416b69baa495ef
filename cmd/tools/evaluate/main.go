// Command evaluate applies a ruleset to a cart JSON file and prints the
// evaluated cart and campaign report.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/cart"
	"github.com/noah-isme/toko-promo/internal/checkout"
	"github.com/noah-isme/toko-promo/internal/engine"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/ruleset"
)

func main() {
	var (
		rulesPath = flag.String("rules", os.Getenv("RULESET_PATH"), "ruleset YAML file; defaults to the embedded storefront rules")
		cartPath  = flag.String("cart", "-", "cart JSON file, or - for stdin")
		list      = flag.Bool("list", false, "print the configured campaigns and exit")
		verbose   = flag.Bool("v", false, "log each campaign decision to stderr")
	)
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger := obs.NewLoggerWriter(os.Stderr, "console", level)

	if err := run(context.Background(), logger, *rulesPath, *cartPath, *list, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("evaluate: %v", err)
	}
}

func run(ctx context.Context, logger zerolog.Logger, rulesPath, cartPath string, list bool, stdin io.Reader, stdout io.Writer) error {
	rs, err := ruleset.Load(rulesPath)
	if err != nil {
		return err
	}
	svc := &checkout.Service{Engine: engine.New(rs.Campaigns, logger), Digest: rs.Digest, Logger: logger}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if list {
		return enc.Encode(svc.Campaigns())
	}

	in, err := readCart(cartPath, stdin)
	if err != nil {
		return err
	}
	result, err := svc.Evaluate(ctx, in)
	if err != nil {
		return err
	}
	return enc.Encode(result)
}

func readCart(path string, stdin io.Reader) (cart.Input, error) {
	var in cart.Input
	r := stdin
	if p := strings.TrimSpace(path); p != "" && p != "-" {
		f, err := os.Open(p)
		if err != nil {
			return in, fmt.Errorf("open cart: %w", err)
		}
		defer f.Close()
		r = f
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("decode cart: %w", err)
	}
	return in, nil
}
