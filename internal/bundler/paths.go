package bundler

import (
	"path"
	"strings"
)

// ResolveImportPath canonicalizes an import specifier into the project-root
// relative form used everywhere in the resolution layer. The result always
// carries a leading "./", no matter whether the input was absolute,
// root-relative or importer-relative.
//
// When importerPath is empty the specifier is resolved directly against the
// project root. Otherwise it is resolved against the directory containing the
// importer. Specifiers that climb out of the project root are not rejected;
// they canonicalize to whatever relative path results and simply miss the
// virtual file store.
func ResolveImportPath(importPath, importerPath string) string {
	resolved := StripPath(importPath)
	if importerPath != "" {
		resolved = path.Join(path.Dir(StripPath(importerPath)), resolved)
	}
	return "./" + path.Clean(resolved)
}

// StripPath removes a leading "./" or "/" from a path, producing the key form
// used by the virtual file store.
func StripPath(p string) string {
	p = strings.TrimPrefix(p, "./")
	return strings.TrimPrefix(p, "/")
}
