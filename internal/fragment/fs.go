package fragment

import (
	"context"
	"io/fs"
	"os"
	"path"

	"github.com/pkg/errors"
)

var schemaExtensions = map[string]bool{
	".graphql":  true,
	".graphqls": true,
	".gql":      true,
}

// FSLoader discovers SDL files in a file system. Files are returned in
// lexical path order so the discovery order is stable between runs.
type FSLoader struct {
	fsys   fs.FS
	prefix string
}

// NewFSLoader returns a loader over fsys. Fragment names are the slash
// separated paths inside fsys, prefixed with prefix when it is not empty.
func NewFSLoader(fsys fs.FS, prefix string) *FSLoader {
	return &FSLoader{fsys: fsys, prefix: prefix}
}

// NewDirLoader returns a loader over the directory tree rooted at dir.
func NewDirLoader(dir string) *FSLoader {
	return NewFSLoader(os.DirFS(dir), dir)
}

func (l *FSLoader) LoadSchemas(ctx context.Context) ([]SchemaFragment, error) {
	var out []SchemaFragment
	err := fs.WalkDir(l.fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || !schemaExtensions[path.Ext(p)] {
			return nil
		}
		content, err := fs.ReadFile(l.fsys, p)
		if err != nil {
			return errors.Wrapf(err, "failed to read schema fragment %q", p)
		}
		name := p
		if l.prefix != "" {
			name = path.Join(l.prefix, p)
		}
		out = append(out, SchemaFragment{Name: name, Source: string(content)})
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to discover schema fragments")
	}
	return out, nil
}
