package document

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/ardnew/mung"
)

// PathEnv names the environment variable holding the document search path.
const PathEnv = "HYPERDASH_PATH"

// Extensions are tried in order when a document name has none.
var Extensions = []string{".yaml", ".yml", ".json"}

// SearchPath returns dirs followed by the directories listed in [PathEnv].
// Empty entries are dropped.
func SearchPath(dirs ...string) []string {
	list := mung.Make(
		mung.WithSubjectItems(os.Getenv(PathEnv)),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(dirs...),
	).String()

	return slices.DeleteFunc(filepath.SplitList(list), func(s string) bool {
		return s == ""
	})
}

// Find returns the path of the document name. A name containing a path
// separator is used as given; otherwise each directory of
// [SearchPath](dirs...) is tried in order, with and without [Extensions].
func Find(name string, dirs ...string) (string, error) {
	if filepath.Base(name) != name || filepath.IsAbs(name) {
		if isFile(name) {
			return name, nil
		}

		return "", ErrNotFound.With(slog.String("path", name))
	}

	search := SearchPath(dirs...)

	for _, dir := range search {
		for _, cand := range candidates(filepath.Join(dir, name)) {
			if isFile(cand) {
				return cand, nil
			}
		}
	}

	return "", ErrNotFound.With(
		slog.String("name", name),
		slog.Any("search", search),
	)
}

func candidates(path string) []string {
	if filepath.Ext(path) != "" {
		return []string{path}
	}

	out := []string{path}
	for _, ext := range Extensions {
		out = append(out, path+ext)
	}

	return out
}

func isFile(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
