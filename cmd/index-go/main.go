// Command index-go indexes Go source files into SourceMinder's occurrence
// store, using the Go Parse Frontend and Language Walker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sourceminder/sourceminder/internal/indexcli"
	"github.com/sourceminder/sourceminder/internal/logx"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker/golang"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := indexcli.ParseFlags("go", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log := logx.New(cfg.LogLevel())

	exts, err := indexcli.ResolveExtensions("go", cfg.ExtensionsFile)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	filt, err := indexcli.ResolveFilter("go", cfg.KeywordsFile)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}

	front := parsefrontend.New(golang.Language())
	profiles := []indexcli.Profile{
		{Name: "go", Extensions: exts, Frontend: front, Walker: golang.New(front.Symbols())},
	}

	res, err := indexcli.Run(context.Background(), cfg, profiles, filt, log)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	log.Infof("indexed %d file(s), %d failed", res.FilesIndexed, res.FilesFailed)
	return 0
}
