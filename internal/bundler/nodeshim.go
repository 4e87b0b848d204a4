package bundler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// shimNamespace holds generated interop modules for require()d Node built-ins.
const shimNamespace = "node-shim"

// nodeBuiltins lists the Node.js core modules, top-level names only. Both the
// bare spelling and the "node:" prefixed spelling are recognized.
var nodeBuiltins = map[string]bool{
	"assert":              true,
	"async_hooks":         true,
	"buffer":              true,
	"child_process":       true,
	"cluster":             true,
	"console":             true,
	"constants":           true,
	"crypto":              true,
	"dgram":               true,
	"diagnostics_channel": true,
	"dns":                 true,
	"domain":              true,
	"events":              true,
	"fs":                  true,
	"http":                true,
	"http2":               true,
	"https":               true,
	"inspector":           true,
	"module":              true,
	"net":                 true,
	"os":                  true,
	"path":                true,
	"perf_hooks":          true,
	"process":             true,
	"punycode":            true,
	"querystring":         true,
	"readline":            true,
	"repl":                true,
	"stream":              true,
	"string_decoder":      true,
	"sys":                 true,
	"timers":              true,
	"tls":                 true,
	"trace_events":        true,
	"tty":                 true,
	"url":                 true,
	"util":                true,
	"v8":                  true,
	"vm":                  true,
	"wasi":                true,
	"worker_threads":      true,
	"zlib":                true,
}

// IsNodeBuiltin reports whether name refers to a Node core module. It handles
// the "node:" prefix and subpath specifiers like "fs/promises".
func IsNodeBuiltin(name string) bool {
	name = strings.TrimPrefix(name, "node:")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	return nodeBuiltins[name]
}

// NodeExternals returns the built-in module set in both spellings, sorted, for
// the engine's external list. Built-ins are never bundled; they stay as
// external references in the output.
func NodeExternals() []string {
	externals := make([]string, 0, len(nodeBuiltins)*2)
	for name := range nodeBuiltins {
		externals = append(externals, name, "node:"+name)
	}
	sort.Strings(externals)
	return externals
}

// NodeShimPlugin redirects require() calls against Node built-ins into
// generated ESM interop modules. The bundled sources may use the CommonJS
// calling convention while the output format is ESM; without the shim such
// references fail resolution. Static ESM imports of built-ins are left alone
// and resolve through the external list instead.
//
// This plugin must be registered before the virtual filesystem plugin: resolve
// hooks run in registration order and the first opinion wins.
func NodeShimPlugin() api.Plugin {
	return api.Plugin{
		Name: "node-shim",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind != api.ResolveJSRequireCall || !IsNodeBuiltin(args.Path) {
					return api.OnResolveResult{}, nil
				}
				return api.OnResolveResult{
					Path:      strings.TrimPrefix(args.Path, "node:"),
					Namespace: shimNamespace,
				}, nil
			})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: shimNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				contents := fmt.Sprintf("import * as mod from %q;\nexport default mod;\n", "node:"+args.Path)
				return api.OnLoadResult{Contents: &contents, Loader: api.LoaderJS}, nil
			})
		},
	}
}
