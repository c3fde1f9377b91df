// Command index-python indexes Python source files into SourceMinder's
// occurrence store, using the Python Parse Frontend and Language Walker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sourceminder/sourceminder/internal/indexcli"
	"github.com/sourceminder/sourceminder/internal/logx"
	"github.com/sourceminder/sourceminder/internal/parsefrontend"
	"github.com/sourceminder/sourceminder/internal/walker/python"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := indexcli.ParseFlags("python", args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	log := logx.New(cfg.LogLevel())

	exts, err := indexcli.ResolveExtensions("python", cfg.ExtensionsFile)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	filt, err := indexcli.ResolveFilter("python", cfg.KeywordsFile)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}

	front := parsefrontend.New(python.Language())
	profiles := []indexcli.Profile{
		{Name: "python", Extensions: exts, Frontend: front, Walker: python.New(front.Symbols())},
	}

	res, err := indexcli.Run(context.Background(), cfg, profiles, filt, log)
	if err != nil {
		log.Errorf("%v", err)
		return 1
	}
	log.Infof("indexed %d file(s), %d failed", res.FilesIndexed, res.FilesFailed)
	return 0
}
