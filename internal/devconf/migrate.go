package devconf

import (
	"fmt"

	"github.com/cvalentine99/uConsole-RF-Tools/internal/interfaces"
)

// CurrentSchemaVersion is the document version Write produces and Read
// migrates toward.
const CurrentSchemaVersion = 1

// migration lifts a tree one schema version.
type migration func(tree interfaces.Tree) interfaces.Tree

// migrations maps a source version to the step that lifts it to the next
// one. Empty today; version 1 is the first published schema.
var migrations = map[int]migration{}

// migrate walks a parsed document from its declared version to the current
// one. Versions below 1 or above the current version are malformed input,
// not a migration problem, and surface as parse errors naming the file.
func migrate(path string, version int, tree interfaces.Tree) (interfaces.Tree, error) {
	return migrateTo(path, version, CurrentSchemaVersion, tree)
}

func migrateTo(path string, version, target int, tree interfaces.Tree) (interfaces.Tree, error) {
	if version < 1 || version > target {
		detail := fmt.Sprintf("unsupported schemaVersion %d (current is %d)", version, target)
		return nil, NewParseError(path, detail, nil)
	}
	for v := version; v < target; v++ {
		step, ok := migrations[v]
		if !ok {
			return nil, NewParseError(path, fmt.Sprintf("no migration from schemaVersion %d", v), nil)
		}
		tree = step(tree)
	}
	return tree, nil
}
