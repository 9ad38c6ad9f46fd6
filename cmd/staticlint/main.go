// Command staticlint runs the project's static checks in one multichecker
// binary: selected passes from x/tools, ineffassign, nilerr, the staticcheck
// analyzers and the project analyzer noosexit.
//
// Staticcheck analyzers are chosen by a config.json next to the binary:
//
//	{"Staticcheck": ["SA1000", "SA4006"]}
//
// Without that file every SA analyzer is enabled.
package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/gordonklaus/ineffassign/pkg/ineffassign"
	"github.com/gostaticanalysis/nilerr"
	"golang.org/x/tools/go/analysis"
	"golang.org/x/tools/go/analysis/multichecker"
	"golang.org/x/tools/go/analysis/passes/copylock"
	"golang.org/x/tools/go/analysis/passes/loopclosure"
	"golang.org/x/tools/go/analysis/passes/lostcancel"
	"golang.org/x/tools/go/analysis/passes/printf"
	"golang.org/x/tools/go/analysis/passes/structtag"
	"golang.org/x/tools/go/analysis/passes/unmarshal"
	"golang.org/x/tools/go/analysis/passes/unreachable"
	"honnef.co/go/tools/staticcheck"

	"github.com/patric-chuzhbe/biolink/cmd/staticlint/noosexit"
)

// Config is the name of the JSON file listing the enabled staticcheck analyzers.
const Config = `config.json`

type ConfigData struct {
	Staticcheck []string
}

func loadConfig() (ConfigData, error) {
	var cfg ConfigData

	appfile, err := os.Executable()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(filepath.Join(filepath.Dir(appfile), Config))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	err = json.Unmarshal(data, &cfg)

	return cfg, err
}

func staticcheckAnalyzers(enabled []string) []*analysis.Analyzer {
	checks := make(map[string]bool, len(enabled))
	for _, v := range enabled {
		checks[v] = true
	}

	var result []*analysis.Analyzer
	for _, v := range staticcheck.Analyzers {
		name := v.Analyzer.Name
		if checks[name] || (len(checks) == 0 && strings.HasPrefix(name, "SA")) {
			result = append(result, v.Analyzer)
		}
	}

	return result
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	myChecks := []*analysis.Analyzer{
		copylock.Analyzer,
		loopclosure.Analyzer,
		lostcancel.Analyzer,
		printf.Analyzer,
		structtag.Analyzer,
		unmarshal.Analyzer,
		unreachable.Analyzer,

		ineffassign.Analyzer,
		nilerr.Analyzer,

		noosexit.Analyzer,
	}
	myChecks = append(myChecks, staticcheckAnalyzers(cfg.Staticcheck)...)

	multichecker.Main(myChecks...)
}
