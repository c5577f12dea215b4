package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"proxeek/internal/logging"
)

// Paths locates the four input documents.
type Paths struct {
	Annotation          string // file, or directory of haptic_annotation*.json exports
	PhysicalDatabase    string
	ProxyRatings        string
	RelationshipRatings string
}

// ResolveAnnotationPath returns path unchanged when it is a file. For a
// directory it returns the lexicographically last haptic_annotation*.json,
// which is the newest export because the exporter timestamps file names.
func ResolveAnnotationPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &LoadError{Document: DocAnnotation, Path: path, Err: ErrMissingDocument}
		}
		return "", &LoadError{Document: DocAnnotation, Path: path, Err: err}
	}
	if !info.IsDir() {
		return path, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return "", &LoadError{Document: DocAnnotation, Path: path, Err: err}
	}
	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, "haptic_annotation") && strings.HasSuffix(name, ".json") {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", &LoadError{Document: DocAnnotation, Path: path, Err: fmt.Errorf("%w: no haptic_annotation*.json in directory", ErrMissingDocument)}
	}
	sort.Strings(candidates)
	return filepath.Join(path, candidates[len(candidates)-1]), nil
}

// ReadAnnotationTree reads a haptic annotation export. nodeAnnotations is required.
func ReadAnnotationTree(path string) (*AnnotationTree, error) {
	data, err := readFile(DocAnnotation, path)
	if err != nil {
		return nil, err
	}

	var raw map[string]json.RawMessage
	if err := decode(DocAnnotation, path, data, &raw); err != nil {
		return nil, err
	}
	if _, ok := raw["nodeAnnotations"]; !ok {
		return nil, &LoadError{Document: DocAnnotation, Path: path, Err: fmt.Errorf("%w: missing nodeAnnotations", ErrInvalidDocument)}
	}

	var tree AnnotationTree
	if err := decode(DocAnnotation, path, data, &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// ReadPhysicalDatabase reads the per-image object detection database.
func ReadPhysicalDatabase(path string) (PhysicalDatabase, error) {
	var db PhysicalDatabase
	if err := readJSON(DocPhysicalDatabase, path, &db); err != nil {
		return nil, err
	}
	return db, nil
}

// ReadProxyRatings reads the proxy candidate rating list.
func ReadProxyRatings(path string) ([]ProxyRating, error) {
	var ratings []ProxyRating
	if err := readJSON(DocProxyRatings, path, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

// ReadRelationshipRatings reads the relationship rating list.
func ReadRelationshipRatings(path string) ([]RelationshipRating, error) {
	var ratings []RelationshipRating
	if err := readJSON(DocRelationshipRatings, path, &ratings); err != nil {
		return nil, err
	}
	return ratings, nil
}

func readJSON(document, path string, v interface{}) error {
	data, err := readFile(document, path)
	if err != nil {
		return err
	}
	return decode(document, path, data, v)
}

func readFile(document, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{Document: document, Path: path, Err: ErrMissingDocument}
		}
		return nil, &LoadError{Document: document, Path: path, Err: err}
	}
	return data, nil
}

func decode(document, path string, data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &LoadError{Document: document, Path: path, Err: fmt.Errorf("%w: %v", ErrInvalidDocument, err)}
	}
	return nil
}

// ReadDocuments reads all four documents. The first failure aborts.
func ReadDocuments(ctx context.Context, paths Paths) (*Documents, error) {
	annotationPath, err := ResolveAnnotationPath(paths.Annotation)
	if err != nil {
		return nil, err
	}
	logging.Loader("Loading haptic annotation file: %s", annotationPath)

	docs := &Documents{}
	steps := []func() error{
		func() error {
			tree, err := ReadAnnotationTree(annotationPath)
			if err == nil {
				docs.Annotation = *tree
			}
			return err
		},
		func() error {
			db, err := ReadPhysicalDatabase(paths.PhysicalDatabase)
			docs.Physical = db
			return err
		},
		func() error {
			r, err := ReadProxyRatings(paths.ProxyRatings)
			docs.ProxyRatings = r
			return err
		},
		func() error {
			r, err := ReadRelationshipRatings(paths.RelationshipRatings)
			docs.RelationshipRatings = r
			return err
		},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step(); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Load reads the four documents and builds the Problem.
func Load(ctx context.Context, paths Paths) (*Problem, *Diagnostics, error) {
	docs, err := ReadDocuments(ctx, paths)
	if err != nil {
		return nil, nil, err
	}

	p, diag := Build(docs)
	logging.Loader("Loaded %d virtual objects, %d physical objects (%d records skipped)",
		p.NumVirtual(), p.NumPhysical(), diag.Count())
	for _, v := range p.Virtual {
		logging.Get(logging.CategoryLoader).Debug("priority %s: %d", v.Name, v.EngagementPriority)
	}
	return p, diag, nil
}
