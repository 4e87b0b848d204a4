package bundler

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CLI is the alternate build backend: it writes the virtual files into a
// scratch directory and shells out to an esbuild binary. Pure process
// orchestration with the same contract as Engine; kept for environments where
// running the engine in process is undesirable.
type CLI struct {
	esbuildPath string
	workDir     string
	timeout     time.Duration
}

// NewCLI locates the esbuild binary and returns the subprocess backend.
// workDir is the parent for per-build scratch directories (the system temp
// directory when empty); timeout bounds each subprocess invocation.
func NewCLI(workDir string, timeout time.Duration) (*CLI, error) {
	esbuildPath, err := exec.LookPath("esbuild")
	if err != nil {
		commonPaths := []string{
			"/usr/local/bin/esbuild",
			"/usr/bin/esbuild",
			"/opt/homebrew/bin/esbuild",
		}
		if home, homeErr := os.UserHomeDir(); homeErr == nil {
			commonPaths = append(commonPaths, filepath.Join(home, ".local", "bin", "esbuild"))
		}
		for _, candidate := range commonPaths {
			if _, statErr := os.Stat(candidate); statErr == nil {
				esbuildPath = candidate
				break
			}
		}
		if esbuildPath == "" {
			return nil, fmt.Errorf("esbuild binary not found in PATH or common locations")
		}
	}

	return &CLI{
		esbuildPath: esbuildPath,
		workDir:     workDir,
		timeout:     timeout,
	}, nil
}

// Build materializes the request files on disk and runs the esbuild CLI over
// them with the same configuration the in-process engine uses.
func (b *CLI) Build(ctx context.Context, req *Request) (*Result, error) {
	if len(req.Files) == 0 {
		return nil, newBuildError("build failed: no files provided")
	}

	store := NewFileStore(req.Files)
	entry := req.Entrypoint
	if entry == "" {
		entry = DefaultEntrypoint
	}
	entryKey := StripPath(ResolveImportPath(entry, ""))
	if !store.Has(entryKey) {
		return nil, newBuildError("entrypoint %q not found in files", entry)
	}

	tmpDir, err := os.MkdirTemp(b.workDir, "bundler-build-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	for inputPath, contents := range req.Files {
		key := StripPath(inputPath)
		// Request paths come from unauthenticated callers. Anything that would
		// land outside the scratch directory is rejected before touching disk.
		if !filepath.IsLocal(key) {
			return nil, newBuildError("invalid file path %q", inputPath)
		}
		fullPath := filepath.Join(tmpDir, key)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", inputPath, err)
		}
		if err := os.WriteFile(fullPath, []byte(contents), 0600); err != nil {
			return nil, fmt.Errorf("failed to write file %s: %w", inputPath, err)
		}
	}

	outPath := filepath.Join(tmpDir, "dist", "out.js")

	args := []string{
		entryKey,
		"--bundle",
		"--format=esm",
		"--target=es2020",
		"--minify",
		"--banner:js=" + cwdBanner,
		"--define:process.cwd=cwd",
		"--outfile=" + outPath,
	}
	for _, external := range NodeExternals() {
		args = append(args, "--external:"+external)
	}

	buildCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	log.Debug().
		Str("command", b.esbuildPath).
		Str("entry", entryKey).
		Str("dir", tmpDir).
		Msg("Running esbuild subprocess")

	cmd := exec.CommandContext(buildCtx, b.esbuildPath, args...)
	cmd.Dir = tmpDir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if buildCtx.Err() == context.DeadlineExceeded {
		return nil, newBuildError("build failed: timeout after %s", b.timeout)
	}
	if runErr != nil {
		errMsg := stderr.String()
		if errMsg == "" {
			errMsg = stdout.String()
		}
		if errMsg == "" {
			errMsg = runErr.Error()
		}
		return nil, &BuildError{Message: cleanSubprocessError(errMsg, tmpDir)}
	}

	bundled, err := os.ReadFile(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundled output: %w", err)
	}

	return &Result{Base64: encodeOutput(bundled)}, nil
}

// cleanSubprocessError strips the per-build scratch directory from CLI stderr
// so error messages reference request paths, not temp paths, and keeps the
// lines that describe actual resolution or syntax problems.
func cleanSubprocessError(errMsg, scratchDir string) string {
	if scratchDir != "" {
		errMsg = strings.ReplaceAll(errMsg, scratchDir+string(os.PathSeparator), "")
		errMsg = strings.ReplaceAll(errMsg, scratchDir, "")
	}

	lines := strings.Split(errMsg, "\n")
	var relevant []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.Contains(line, "[ERROR]") ||
			strings.Contains(line, "error:") ||
			strings.Contains(line, "Could not resolve") ||
			strings.Contains(line, "Expected") ||
			strings.Contains(line, "Unexpected") {
			relevant = append(relevant, line)
		}
	}
	if len(relevant) > 0 {
		return strings.Join(relevant, "\n")
	}
	return errMsg
}
