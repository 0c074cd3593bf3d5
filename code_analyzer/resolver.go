package code_analyzer

import (
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/meysamhadeli/codai-impact/code_analyzer/models"
)

const (
	packageInitFile = "__init__.py"

	// MaxListEntries caps imports_from, used_by and function_calls_to.
	MaxListEntries = 10
)

// ResolvedModule holds the project-relative targets of one module's imports
type ResolvedModule struct {
	// Imports lists every resolved target in parse order, deduplicated and uncapped.
	Imports []string
	// Calls lists calls to symbols of resolved modules as canonical dotted names.
	Calls []string
}

// symbolBinding is what a local name refers to after an import
type symbolBinding struct {
	qualified string
	module    bool
}

// ModuleResolver maps dotted Python module names onto files inside the project root.
type ModuleResolver struct {
	projectRoot string
	sourceRoots []string

	mutex  sync.RWMutex
	exists map[string]bool
}

// NewModuleResolver creates a resolver searching the given source roots (relative to projectRoot)
// in order. The project root itself is used when no roots are given.
func NewModuleResolver(projectRoot string, sourceRoots []string) *ModuleResolver {
	var roots []string
	for _, root := range sourceRoots {
		cleaned := path.Clean(filepath.ToSlash(root))
		if cleaned == ".." || strings.HasPrefix(cleaned, "../") || path.IsAbs(cleaned) {
			continue
		}
		roots = append(roots, cleaned)
	}
	if len(roots) == 0 {
		roots = []string{"."}
	}

	return &ModuleResolver{
		projectRoot: projectRoot,
		sourceRoots: roots,
		exists:      make(map[string]bool),
	}
}

// ResolveModule returns the project-relative file defining the dotted module name.
// "a.b" resolves to a/b.py, then a/b/__init__.py, under each source root.
func (r *ModuleResolver) ResolveModule(dotted string) (string, bool) {
	if dotted == "" || strings.HasPrefix(dotted, ".") {
		return "", false
	}
	parts := strings.Split(dotted, ".")
	for _, part := range parts {
		if part == "" {
			return "", false
		}
	}

	for _, root := range r.sourceRoots {
		base := path.Join(append([]string{root}, parts...)...)
		for _, candidate := range []string{base + pythonExtension, path.Join(base, packageInitFile)} {
			if r.isFile(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// Resolve turns a parsed module's imports and calls into project-relative targets.
func (r *ModuleResolver) Resolve(parsed *models.ParsedModule) ResolvedModule {
	var resolved ResolvedModule
	if parsed == nil || parsed.ParseFailed {
		return resolved
	}

	seen := make(map[string]bool)
	addImport := func(target string) {
		if !seen[target] {
			seen[target] = true
			resolved.Imports = append(resolved.Imports, target)
		}
	}

	bindings := make(map[string]symbolBinding)

	for _, ref := range parsed.Imports {
		target, ok := r.ResolveModule(ref.Module)

		if !ref.FromImport {
			if !ok {
				continue
			}
			addImport(target)
			local := ref.Module
			if ref.Alias != "" {
				local = ref.Alias
			}
			bindings[local] = symbolBinding{qualified: ref.Module, module: true}
			continue
		}

		if ok {
			addImport(target)
		}
		for _, name := range ref.Names {
			qualified := ref.Module + "." + name.Name
			// "from pkg import mod" also depends on pkg/mod.py when it exists
			submodule, subOK := r.ResolveModule(qualified)
			if subOK {
				addImport(submodule)
			}
			if !ok && !subOK {
				continue
			}
			local := name.Name
			if name.Alias != "" {
				local = name.Alias
			}
			bindings[local] = symbolBinding{qualified: qualified, module: subOK}
		}
	}

	resolved.Calls = resolveCalls(parsed.Calls, bindings)
	return resolved
}

// resolveCalls keeps calls whose longest dotted prefix is bound by a resolved import
func resolveCalls(calls []string, bindings map[string]symbolBinding) []string {
	var out []string
	seen := make(map[string]bool)

	for _, call := range calls {
		prefix, rest := call, ""
		for {
			if binding, ok := bindings[prefix]; ok {
				// calling a bare module object is not a symbol reference
				if !(binding.module && rest == "") {
					symbol := binding.qualified + rest
					if !seen[symbol] {
						seen[symbol] = true
						out = append(out, symbol)
					}
				}
				break
			}
			idx := strings.LastIndex(prefix, ".")
			if idx < 0 {
				break
			}
			rest = prefix[idx:] + rest
			prefix = prefix[:idx]
		}
	}

	return out
}

// isFile reports whether rel is a regular file under the project root, memoizing the answer
func (r *ModuleResolver) isFile(rel string) bool {
	r.mutex.RLock()
	known, ok := r.exists[rel]
	r.mutex.RUnlock()
	if ok {
		return known
	}

	info, err := os.Stat(filepath.Join(r.projectRoot, filepath.FromSlash(rel)))
	found := err == nil && info.Mode().IsRegular()

	r.mutex.Lock()
	r.exists[rel] = found
	r.mutex.Unlock()

	return found
}

// capList returns the first n entries of list, never nil
func capList(list []string, n int) []string {
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}

// sortedCap sorts a copy of list lexically and returns its first n entries
func sortedCap(list []string, n int) []string {
	sorted := make([]string, len(list))
	copy(sorted, list)
	sort.Strings(sorted)
	return capList(sorted, n)
}
