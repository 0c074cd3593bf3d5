package models

// FileDependency holds the dependency analysis of a single source module
type FileDependency struct {
	FilePath        string   `json:"file_path" yaml:"file_path"`
	ImportsFrom     []string `json:"imports_from" yaml:"imports_from"`
	UsedBy          []string `json:"used_by" yaml:"used_by"`
	UsedByCount     int      `json:"used_by_count" yaml:"used_by_count"`
	FunctionCallsTo []string `json:"function_calls_to" yaml:"function_calls_to"`
	HasTests        bool     `json:"has_tests" yaml:"has_tests"`
	ImpactScore     int      `json:"impact_score" yaml:"impact_score"`
	ParseFailed     bool     `json:"parse_failed,omitempty" yaml:"parse_failed,omitempty"`
}

// NewFileDependency returns an empty dependency record for the given relative path.
// List fields are non-nil so the record serializes with empty arrays.
func NewFileDependency(filePath string) FileDependency {
	return FileDependency{
		FilePath:        filePath,
		ImportsFrom:     []string{},
		UsedBy:          []string{},
		FunctionCallsTo: []string{},
	}
}

// CacheEntry is the persisted form of one analyzed module
type CacheEntry struct {
	Mtime      float64        `json:"mtime"`
	Dependency FileDependency `json:"dependency"`
}

// AnalysisResult is the outcome of one analysis invocation
type AnalysisResult struct {
	Dependencies    map[string]FileDependency `json:"dependencies" yaml:"dependencies"`
	Hits            int                       `json:"hits" yaml:"hits"`
	Misses          int                       `json:"misses" yaml:"misses"`
	Skipped         bool                      `json:"skipped" yaml:"skipped"`
	SkipReason      string                    `json:"skip_reason,omitempty" yaml:"skip_reason,omitempty"`
	FilesConsidered int                       `json:"files_considered" yaml:"files_considered"`
}

// ImportRef is one import statement target as written in source
type ImportRef struct {
	// Module is the dotted module path, e.g. "pkg.sub".
	Module string
	// Names holds the imported names of a from-import, empty for plain imports.
	Names []ImportedName
	// Alias is set for "import pkg.sub as alias".
	Alias string
	// FromImport distinguishes "from x import y" from "import x".
	FromImport bool
}

// ImportedName is a single name of a from-import with its optional alias
type ImportedName struct {
	Name  string
	Alias string
}

// ParsedModule is the raw result of parsing one source module
type ParsedModule struct {
	Imports     []ImportRef
	Calls       []string
	ParseFailed bool
}
