package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// RequestFile is the file ExecGenerator writes the request manifest to. Its
// path is passed as the last command argument.
const RequestFile = "launcher-request.json"

// ExecGenerator delegates generation to an external command, run with the
// output directory as working directory.
type ExecGenerator struct {
	Command string
	Args    []string
}

// NewExecGenerator creates an exec generator.
func NewExecGenerator(command string, args []string) *ExecGenerator {
	return &ExecGenerator{Command: command, Args: args}
}

// Generate implements Generator. The command is killed when ctx is done.
func (g *ExecGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	if g.Command == "" {
		return nil, fmt.Errorf("exec generator: no command configured")
	}
	req.ApplyDefaults()
	if err := ValidateRequest(&req); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(req.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	data, err := json.Marshal(NewManifest(req))
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	requestPath := filepath.Join(req.OutputDir, RequestFile)
	if err := os.WriteFile(requestPath, data, 0644); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	args := append(append([]string{}, g.Args...), requestPath)
	cmd := exec.CommandContext(ctx, g.Command, args...)
	cmd.Dir = req.OutputDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("generator %s: %w", g.Command, ctx.Err())
		}
		return nil, fmt.Errorf("generator %s failed: %w: %s", g.Command, err, strings.TrimSpace(stderr.String()))
	}

	files, err := listFiles(req.OutputDir)
	if err != nil {
		return nil, err
	}
	return &Result{Dir: req.OutputDir, Files: files}, nil
}

func listFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing generated files: %w", err)
	}
	return files, nil
}
