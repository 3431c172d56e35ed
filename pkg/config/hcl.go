package config

import (
	"context"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(filename, ".hcl")
}

// 📝 Parse parses the config from HCL
func (p *HCLParser) Parse(ctx context.Context, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return nil, errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{},
	}

	// Define HCL schema
	type hclScan struct {
		IncludeExtensions []string `hcl:"include_extensions,optional"`
		ExcludeExtensions []string `hcl:"exclude_extensions,optional"`
		ExcludeFolders    []string `hcl:"exclude_folders,optional"`
		IgnorePatterns    []string `hcl:"ignore_patterns,optional"`
	}
	type hclConfig struct {
		DataDir           string   `hcl:"data_dir,optional"`
		DatabasePath      string   `hcl:"database_path,optional"`
		Workers           int      `hcl:"workers,optional"`
		GitTimeoutSeconds int      `hcl:"git_timeout_seconds,optional"`
		Scan              *hclScan `hcl:"scan,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return nil, errors.Errorf("decoding HCL: %s", diags.Error())
	}

	// Convert to model
	cfg := &Config{
		DataDir:           hclCfg.DataDir,
		DatabasePath:      hclCfg.DatabasePath,
		Workers:           hclCfg.Workers,
		GitTimeoutSeconds: hclCfg.GitTimeoutSeconds,
	}
	if hclCfg.Scan != nil {
		cfg.Scan = ScanPolicy{
			IncludeExtensions: hclCfg.Scan.IncludeExtensions,
			ExcludeExtensions: hclCfg.Scan.ExcludeExtensions,
			ExcludeFolders:    hclCfg.Scan.ExcludeFolders,
			IgnorePatterns:    hclCfg.Scan.IgnorePatterns,
		}
	}

	return cfg, nil
}
