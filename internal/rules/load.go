package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// Load reads every *.yaml file below the root of fsys and builds a
// repository. Errors are collected across all files; any error fails
// the load with a *LoadError. Warnings are kept on the repository.
func Load(fsys fs.FS) (*Repository, error) {
	repo, problems := load(fsys)
	var errs []ValidationError
	for _, p := range problems {
		if !p.IsWarning() {
			errs = append(errs, p)
		}
	}
	if len(errs) > 0 {
		return nil, &LoadError{Errors: errs}
	}
	return repo, nil
}

// LoadDir loads the rule files below dir.
func LoadDir(dir string) (*Repository, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &LoadError{Errors: []ValidationError{{File: dir, Message: err.Error(), Code: ErrNoFiles}}}
	}
	if !info.IsDir() {
		return nil, &LoadError{Errors: []ValidationError{{File: dir, Message: "not a directory", Code: ErrNoFiles}}}
	}
	return Load(os.DirFS(dir))
}

// Validate loads fsys and returns every error and warning found.
func Validate(fsys fs.FS) []ValidationError {
	_, problems := load(fsys)
	return problems
}

func load(fsys fs.FS) (*Repository, []ValidationError) {
	var problems []ValidationError

	paths, err := doublestar.Glob(fsys, "**/*.yaml")
	if err != nil {
		return nil, []ValidationError{{File: ".", Message: fmt.Sprintf("scanning rule files: %v", err), Code: ErrNoFiles}}
	}
	slices.Sort(paths)
	if len(paths) == 0 {
		return nil, []ValidationError{{File: ".", Message: "no rule files found", Code: ErrNoFiles}}
	}

	sources := map[string]*source{}
	for _, p := range paths {
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			problems = append(problems, ValidationError{File: p, Message: err.Error(), Code: ErrSchema})
			continue
		}
		f, errs := parseFile(p, raw)
		problems = append(problems, errs...)
		if f == nil {
			// keep the path so includers do not report it missing
			sources[p] = nil
			continue
		}
		sources[p] = &source{path: p, raw: raw, file: f}
	}

	repo := newRepository()
	for _, p := range paths {
		src := sources[p]
		if src == nil || src.file.Kind == KindFragment {
			continue
		}
		var chain []*source
		errs := resolveIncludes(sources, src, nil, map[string]bool{}, &chain)
		problems = append(problems, errs...)
		if len(errs) > 0 {
			continue
		}
		rs, errs := compileRuleSet(src, chain)
		problems = append(problems, errs...)
		if rs == nil {
			continue
		}
		problems = append(problems, repo.add(rs, src)...)
	}
	problems = append(problems, repo.finish()...)
	repo.warnings = slices.DeleteFunc(slices.Clone(problems), func(p ValidationError) bool { return !p.IsWarning() })
	return repo, problems
}

// parseFile checks raw against the schema and decodes it strictly.
func parseFile(p string, raw []byte) (*File, []ValidationError) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, []ValidationError{{File: p, Message: fmt.Sprintf("invalid YAML: %v", err), Code: ErrSchema}}
	}
	if errs := checkSchema(p, doc); len(errs) > 0 {
		return nil, errs
	}

	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, []ValidationError{{File: p, Message: fmt.Sprintf("decoding: %v", err), Code: ErrSchema}}
	}
	return &f, nil
}

// resolveIncludes appends src and everything it includes to chain,
// includes first, each file once.
func resolveIncludes(sources map[string]*source, src *source, stack []string, done map[string]bool, chain *[]*source) []ValidationError {
	if i := slices.Index(stack, src.path); i >= 0 {
		cycle := append(slices.Clone(stack[i:]), src.path)
		return []ValidationError{{
			File:    src.path,
			Field:   "include",
			Message: "include cycle: " + strings.Join(cycle, " -> "),
			Code:    ErrIncludeCycle,
		}}
	}
	if done[src.path] {
		return nil
	}
	stack = append(stack, src.path)

	var errs []ValidationError
	for i, inc := range src.file.Include {
		target := path.Join(path.Dir(src.path), inc)
		dep, ok := sources[target]
		if !ok {
			errs = append(errs, ValidationError{
				File:    src.path,
				Field:   fmt.Sprintf("include[%d]", i),
				Message: fmt.Sprintf("included file %q not found", target),
				Code:    ErrIncludeNotFound,
			})
			continue
		}
		if dep == nil {
			errs = append(errs, ValidationError{
				File:    src.path,
				Field:   fmt.Sprintf("include[%d]", i),
				Message: fmt.Sprintf("included file %q is invalid", target),
				Code:    ErrIncludeNotFound,
			})
			continue
		}
		errs = append(errs, resolveIncludes(sources, dep, stack, done, chain)...)
	}
	done[src.path] = true
	*chain = append(*chain, src)
	return errs
}
