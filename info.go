package gitview

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/goccy/go-yaml"
)

// InfoFileName is the name of the provenance file written by [Info].
const InfoFileName = ".gitview-info.yaml"

// InfoField is one key/value pair of an [Info] annotation. Values may carry
// the placeholders "#sha1" and "#tree", substituted per commit with the
// original commit id and the filtered tree id.
type InfoField struct {
	Key   string
	Value string
}

// Info annotates the filtered tree with a provenance file under Prefix. The
// content tree is otherwise unchanged, and edits made to the provenance file
// are discarded on unapply.
type Info struct {
	Prefix string
	Fields []InfoField
}

var _ Filter = (*Info)(nil)

// NewInfo creates an [Info] writing its annotation at prefix (empty for the
// filtered root).
func NewInfo(prefix string, fields []InfoField) *Info {
	return &Info{Prefix: strings.Trim(prefix, "/"), Fields: fields}
}

func (f *Info) file() string {
	return path.Join(f.Prefix, InfoFileName)
}

func (f *Info) Apply(ctx context.Context, src *Source, s storer.EncodedObjectStorer) (*object.Tree, error) {
	doc := make(yaml.MapSlice, 0, len(f.Fields))
	for _, field := range f.Fields {
		v := field.Value
		if src.Commit != nil {
			v = strings.ReplaceAll(v, "#sha1", src.Commit.Hash.String())
		}
		v = strings.ReplaceAll(v, "#tree", src.Tree.Hash.String())
		doc = append(doc, yaml.MapItem{Key: field.Key, Value: v})
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal provenance info: %w", err)
	}

	blob, err := writeBlob(ctx, s, data)
	if err != nil {
		return nil, fmt.Errorf("failed to save provenance info: %w", err)
	}

	return treeInsert(ctx, s, src.Tree, f.file(), object.TreeEntry{
		Mode: filemode.Regular,
		Hash: blob,
	})
}

// InvertPath discards edits to the provenance file and passes every other
// path through unchanged.
func (f *Info) InvertPath(p string) (string, bool, error) {
	if p == f.file() {
		return "", true, nil
	}

	return p, false, nil
}

func (f *Info) Spec() string {
	parts := make([]string, 0, len(f.Fields)+1)
	parts = append(parts, f.Prefix)
	for _, field := range f.Fields {
		parts = append(parts, field.Key+"="+escapeInfoValue(field.Value))
	}

	return ":info=" + strings.Join(parts, ",")
}

func (f *Info) Members() []Member { return []Member{{Path: "", Spec: f.Spec()}} }

// escapeInfoValue makes a value safe to embed in the filter mini-language,
// where ":" and "," are structural.
func escapeInfoValue(v string) string {
	v = strings.ReplaceAll(v, ":", "<colon>")

	return strings.ReplaceAll(v, ",", "<comma>")
}

func unescapeInfoValue(v string) string {
	v = strings.ReplaceAll(v, "<colon>", ":")

	return strings.ReplaceAll(v, "<comma>", ",")
}

// writeBlob stores data as a blob object in s.
func writeBlob(ctx context.Context, s storer.EncodedObjectStorer, data []byte) (plumbing.Hash, error) {
	select {
	case <-ctx.Done():
		return plumbing.ZeroHash, ctx.Err()
	default:
	}

	eo := s.NewEncodedObject()
	eo.SetType(plumbing.BlobObject)

	w, err := eo.Writer()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()

		return plumbing.ZeroHash, err
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, err
	}

	return s.SetEncodedObject(eo)
}
