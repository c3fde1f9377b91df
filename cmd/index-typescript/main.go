// Command index-typescript indexes TypeScript/TSX and JavaScript/JSX
// source files into SourceMinder's occurrence store. Both grammars are
// served by the same internal/walker/typescript package, but each needs
// its own tree-sitter language and SymbolTable, so this binary registers
// two indexcli.Profiles rather than one.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sourceminder/sourceminder/internal/indexcli"
	"github.com/sourceminder/sourceminder/internal/logx"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker/typescript"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := indexcli.ParseFlags("typescript", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log := logx.New(cfg.LogLevel())

	tsExts, err := indexcli.ResolveExtensions("typescript", cfg.ExtensionsFile)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	jsExts, err := indexcli.ResolveExtensions("javascript", cfg.ExtensionsFile)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	// JavaScript has no separate built-in keyword list (DefaultKeywords
	// only declares one for "typescript"): its grammar is a subset of
	// TypeScript's reserved words, so the TypeScript Symbol Filter is
	// reused for both profiles.
	filt, err := indexcli.ResolveFilter("typescript", cfg.KeywordsFile)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}

	tsFront := parsefrontend.New(typescript.Language())
	jsFront := parsefrontend.New(typescript.LanguageJS())
	profiles := []indexcli.Profile{
		{Name: "typescript", Extensions: tsExts, Frontend: tsFront, Walker: typescript.New(tsFront.Symbols())},
		{Name: "javascript", Extensions: jsExts, Frontend: jsFront, Walker: typescript.New(jsFront.Symbols())},
	}

	res, err := indexcli.Run(context.Background(), cfg, profiles, filt, log)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	log.Infof("indexed %d file(s), %d failed", res.FilesIndexed, res.FilesFailed)
	return 0
}
