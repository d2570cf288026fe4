package gridhcl

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/taskgridgo/internal/ctxlog"
)

// fileRoot decodes the top-level blocks of one grid file.
type fileRoot struct {
	Engine *engineBlock `hcl:"engine,block"`
	Nodes  []*nodeBlock `hcl:"node,block"`
}

type engineBlock struct {
	Workers *int  `hcl:"workers,optional"`
	Loops   *int  `hcl:"loops,optional"`
	Jitter  *bool `hcl:"jitter,optional"`
}

type nodeBlock struct {
	Label      string         `hcl:"label,label"`
	DurationMS *int64         `hcl:"duration_ms,optional"`
	After      hcl.Expression `hcl:"after,optional"`
}

// Load parses the grid definition at path, which may be a single .hcl file
// or a directory searched recursively for .hcl files. Blocks from all files
// are merged into one Spec; at most one engine block is allowed across the
// whole grid.
func Load(ctx context.Context, path string) (*Spec, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := findGridFiles(path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered grid files.", "count", len(files))

	spec := &Spec{}
	parser := hclparse.NewParser()
	engineSeen := ""

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse grid file %s: %w", file, diags)
		}

		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode grid file %s: %w", file, diags)
		}

		if root.Engine != nil {
			if engineSeen != "" {
				return nil, fmt.Errorf("duplicate engine block in %s (already declared in %s)", file, engineSeen)
			}
			engineSeen = file
			if root.Engine.Workers != nil {
				spec.Workers = *root.Engine.Workers
			}
			if root.Engine.Loops != nil {
				spec.Loops = *root.Engine.Loops
			}
			spec.Jitter = root.Engine.Jitter
		}

		for _, block := range root.Nodes {
			ns, err := translateNode(block)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", file, err)
			}
			spec.Nodes = append(spec.Nodes, ns)
		}
	}

	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("grid at %s declares no nodes", path)
	}

	logger.Debug("Grid loading complete.", "nodes", len(spec.Nodes))
	return spec, nil
}

// findGridFiles resolves path to the list of .hcl files to parse.
func findGridFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("grid path: %w", err)
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".hcl") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl files found under %s", path)
	}
	return files, nil
}
