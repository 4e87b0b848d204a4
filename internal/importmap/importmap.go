// Package importmap converts dependency manifests into import maps and
// provides the fallback resolution plugin that applies them during a build.
package importmap

import (
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Map aliases bare import specifiers to fully qualified module URLs, in the
// shape of an import map's "imports" field. Keys ending in "/" are prefix
// aliases covering subpath imports.
type Map map[string]string

const (
	// registryBase resolves plain "name -> version" dependencies.
	registryBase = "https://esm.sh/"
	// githubPrefix is the alternate registry spelling for packages pinned to
	// a repository, "gh:owner/repo@version".
	githubPrefix = "gh:"
	// githubBase is the canonical registry those specifiers normalize to.
	githubBase = "https://denopkg.com/"
)

// FromManifest converts a dependency manifest (package name to version, or
// package name to registry specifier) into an import map. Plain versions
// resolve through the esm.sh registry. Specifiers carrying the "gh:" prefix
// normalize to their canonical denopkg URL and additionally get a
// trailing-slash alias so subpath imports resolve under the same pin.
func FromManifest(deps map[string]string) Map {
	m := make(Map, len(deps)*2)
	for name, spec := range deps {
		if strings.HasPrefix(spec, githubPrefix) {
			target := githubBase + strings.TrimPrefix(spec, githubPrefix)
			m[name] = target
			m[name+"/"] = target + "/"
			continue
		}
		m[name] = registryBase + name + "@" + spec
	}
	return m
}

// Resolve maps a specifier through the import map. Exact matches win; failing
// that, the longest trailing-slash prefix alias applies and the remainder of
// the specifier is appended to its target.
func (m Map) Resolve(specifier string) (string, bool) {
	if target, ok := m[specifier]; ok {
		return target, true
	}
	best := ""
	for key := range m {
		if strings.HasSuffix(key, "/") && strings.HasPrefix(specifier, key) && len(key) > len(best) {
			best = key
		}
	}
	if best == "" {
		return "", false
	}
	return m[best] + strings.TrimPrefix(specifier, best), true
}

// Plugin resolves bare specifiers through the import map and marks the mapped
// URL external, so aliased dependencies stay as references in the output
// instead of being fetched and bundled. Registered after the virtual
// filesystem plugin: virtual hits always win over aliasing.
func Plugin(m Map) api.Plugin {
	return api.Plugin{
		Name: "import-map",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: `.*`}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if len(m) == 0 || strings.HasPrefix(args.Path, ".") || strings.HasPrefix(args.Path, "/") {
					return api.OnResolveResult{}, nil
				}
				target, ok := m.Resolve(args.Path)
				if !ok {
					return api.OnResolveResult{}, nil
				}
				return api.OnResolveResult{Path: target, External: true}, nil
			})
		},
	}
}
