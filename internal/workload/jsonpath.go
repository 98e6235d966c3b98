package workload

import (
	"context"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/torosent/crankbench/internal/harness"
)

var (
	errEmptyDocument   = errors.New("jsonpath: document is required")
	errInvalidDocument = errors.New("jsonpath: document is not valid JSON")
)

// jsonPath queries a JSON document and reports how many values the path
// selects: the element count for arrays, 1 for any other match, 0 if the
// path does not exist.
type jsonPath struct {
	doc  []byte
	path string
}

func newJSONPath(p Params) (harness.Factory, error) {
	if p.Document == "" {
		return nil, errEmptyDocument
	}
	if !gjson.Valid(p.Document) {
		return nil, errInvalidDocument
	}
	path := normalizePath(p.Path)
	return harness.NewFactory("jsonpath", func(int64) (harness.Workload, error) {
		// Each worker gets its own copy of the document.
		return &jsonPath{doc: []byte(p.Document), path: path}, nil
	}), nil
}

func (j *jsonPath) RunIteration(context.Context, int) (int, error) {
	result := gjson.GetBytes(j.doc, j.path)
	if !result.Exists() {
		return 0, nil
	}
	if result.IsArray() {
		return len(result.Array()), nil
	}
	return 1, nil
}

// normalizePath accepts $.field and field syntax; a bare $ (or an empty
// path) selects the whole document.
func normalizePath(path string) string {
	if path == "" || path == "$" {
		return "@this"
	}
	if len(path) > 1 && path[0] == '$' && path[1] == '.' {
		return path[2:]
	}
	return path
}
