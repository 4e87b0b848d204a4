package bundler

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// virtualNamespace marks modules served from the request's file store rather
// than a real filesystem or package registry.
const virtualNamespace = "virtual"

// VirtualPlugin resolves and loads modules from the request-scoped file store.
// The resolve hook canonicalizes every specifier against its importer (the
// importer is empty at the graph root) and looks the stripped key up in the
// store. Hits short-circuit into the virtual namespace; misses return no
// opinion so later-registered resolvers and the engine's defaults take over.
func VirtualPlugin(store *FileStore) api.Plugin {
	return api.Plugin{
		Name: "virtual-fs",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				key := StripPath(ResolveImportPath(args.Path, args.Importer))
				if !store.Has(key) {
					return api.OnResolveResult{}, nil
				}
				return api.OnResolveResult{Path: key, Namespace: virtualNamespace}, nil
			})

			build.OnLoad(api.OnLoadOptions{Filter: `.*`, Namespace: virtualNamespace}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				contents, ok := store.Lookup(args.Path)
				if !ok {
					// Resolve only places store hits in this namespace.
					return api.OnLoadResult{}, fmt.Errorf("virtual module %q not found", args.Path)
				}
				return api.OnLoadResult{Contents: &contents, Loader: loaderFor(args.Path)}, nil
			})
		},
	}
}

// loaderFor picks the loader by extension sniffing: TypeScript extensions get
// the typed loaders, everything else is treated as plain JavaScript.
func loaderFor(path string) api.Loader {
	switch {
	case strings.HasSuffix(path, ".tsx"):
		return api.LoaderTSX
	case strings.HasSuffix(path, ".ts"):
		return api.LoaderTS
	default:
		return api.LoaderJS
	}
}
