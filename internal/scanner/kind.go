package scanner

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/l3aro/go-cegar/internal/model"
)

// header is the part of a model file needed to recognise it.
type header struct {
	Kind model.Kind `yaml:"kind"`
}

// SniffKind reports the model kind declared by the file at path. Files that
// are not YAML or declare no known kind yield ok == false.
func SniffKind(path string) (model.Kind, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var h header
	if err := yaml.Unmarshal(data, &h); err != nil {
		return "", false
	}
	switch h.Kind {
	case model.KindSTS, model.KindCFA:
		return h.Kind, true
	}
	return "", false
}

func hasExt(name string, exts []string) bool {
	return slices.Contains(exts, strings.ToLower(filepath.Ext(name)))
}
