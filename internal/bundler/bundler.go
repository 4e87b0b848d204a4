// Package bundler implements the virtual-filesystem-backed build pipeline:
// path canonicalization, the per-request file store, the Node built-in interop
// shim, the esbuild resolution plugins and the build driver itself.
package bundler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/deco-sites/bundler/internal/importmap"
)

// DefaultEntrypoint is used when a request does not name an entry file.
const DefaultEntrypoint = "index.ts"

// cwdBanner defines the working-directory stub prepended to every bundle. The
// sandboxed runtime has no meaningful process working directory, so
// process.cwd references are rewritten to this stub via Define.
const cwdBanner = `var cwd=()=>"/";`

// Request is one build: a mapping from path to source text plus an optional
// entry file name. Paths may carry a leading "./" or "/".
type Request struct {
	Files      map[string]string `json:"files"`
	Entrypoint string            `json:"entrypoint,omitempty"`
}

// Result carries the bundled artifact as base64-encoded text. It is
// constructed once per build and not retained by the service.
type Result struct {
	Base64 string `json:"base64"`
}

// Backend is one build strategy. The in-process Engine is the default; CLI
// shells out to an esbuild binary instead. Both honor the same contract:
// a single complete artifact or a BuildError, never partial output.
type Backend interface {
	Build(ctx context.Context, req *Request) (*Result, error)
}

// Engine bundles in process through the esbuild API with the virtual
// filesystem plugins attached.
type Engine struct{}

// NewEngine returns the in-process build backend.
func NewEngine() *Engine {
	return &Engine{}
}

// Build resolves the module graph of the request against its virtual file
// store, bundles and minifies it, and returns the single output artifact
// base64-encoded. Any engine diagnostics are aggregated into one BuildError;
// unexpected panics from the orchestration are normalized the same way.
func (e *Engine) Build(ctx context.Context, req *Request) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = newBuildError("build failed: %v", r)
		}
	}()

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

	// Plugin order is load-bearing: the shim must see require()d built-ins
	// before generic virtual resolution, and import-map aliasing only applies
	// to specifiers neither of the earlier hooks claimed.
	plugins := []api.Plugin{
		NodeShimPlugin(),
		VirtualPlugin(store),
		importmap.Plugin(importMapFromStore(store)),
	}

	res := api.Build(api.BuildOptions{
		EntryPoints:       []string{"./" + entryKey},
		Bundle:            true,
		Write:             false,
		Outdir:            "dist",
		Format:            api.FormatESModule,
		Target:            api.ES2020,
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		Sourcemap:         api.SourceMapNone,
		External:          NodeExternals(),
		Banner:            map[string]string{"js": cwdBanner},
		Define:            map[string]string{"process.cwd": "cwd"},
		Plugins:           plugins,
		LogLevel:          api.LogLevelSilent,
	})

	if len(res.Errors) > 0 {
		messages := make([]string, 0, len(res.Errors))
		for _, msg := range res.Errors {
			messages = append(messages, msg.Text)
		}
		return nil, &BuildError{Message: strings.Join(messages, "\n")}
	}
	if len(res.OutputFiles) == 0 {
		return nil, newBuildError("build failed: no output produced")
	}

	return &Result{Base64: encodeOutput(res.OutputFiles[0].Contents)}, nil
}

// encodeOutput encodes the artifact as transportable text. The driver has
// already failed if there is no artifact; this never checks.
func encodeOutput(contents []byte) string {
	return base64.StdEncoding.EncodeToString(contents)
}

// importMapFiles are checked, in order, for an "imports" field feeding the
// fallback resolution plugin.
var importMapFiles = []string{"import_map.json", "deno.json"}

// importMapFromStore extracts an import map from the virtual files, if the
// request shipped one. Unparsable candidates are skipped rather than failing
// the build.
func importMapFromStore(store *FileStore) importmap.Map {
	for _, name := range importMapFiles {
		raw, ok := store.Lookup(name)
		if !ok {
			continue
		}
		var cfg struct {
			Imports map[string]string `json:"imports"`
		}
		if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
			log.Debug().Err(err).Str("file", name).Msg("Ignoring unparsable import map")
			continue
		}
		if len(cfg.Imports) > 0 {
			return importmap.Map(cfg.Imports)
		}
	}
	return nil
}
