package gitlib

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "codediff/gitlib"

// Sentinel errors.
var (
	ErrRevisionNotFound = errors.New("revision not found")
	ErrPathNotFound     = errors.New("path not found in revision")
	ErrNotAFile         = errors.New("path is not a file")
)

// Repository wraps a libgit2 repository.
type Repository struct {
	repo   *git2go.Repository
	tracer trace.Tracer
	path   string
}

// OpenRepository opens the git repository containing path. Parent
// directories are searched, like git itself does.
func OpenRepository(dir string) (*Repository, error) {
	repo, err := git2go.OpenRepositoryExtended(dir, 0, "")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	return &Repository{repo: repo, path: dir, tracer: otel.Tracer(tracerName)}, nil
}

// Path returns the path the repository was opened with.
func (r *Repository) Path() string {
	return r.path
}

// Workdir returns the root of the working directory, with a trailing
// separator, or "" for a bare repository.
func (r *Repository) Workdir() string {
	return r.repo.Workdir()
}

// Free releases the repository resources.
func (r *Repository) Free() {
	if r.repo != nil {
		r.repo.Free()
		r.repo = nil
	}
}

// ResolveCommit resolves a revision expression such as "HEAD~2", a branch
// name or an abbreviated hash to its commit.
func (r *Repository) ResolveCommit(rev string) (*Commit, error) {
	obj, err := r.repo.RevparseSingle(rev)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRevisionNotFound, rev, err)
	}
	defer obj.Free()

	peeled, err := obj.Peel(git2go.ObjectCommit)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a commit", ErrRevisionNotFound, rev)
	}
	defer peeled.Free()

	commit, err := peeled.AsCommit()
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", rev, err)
	}

	return &Commit{commit: commit}, nil
}

// LookupBlob returns the blob with the given hash.
func (r *Repository) LookupBlob(hash Hash) (*Blob, error) {
	oid := git2go.Oid(hash)

	blob, err := r.repo.LookupBlob(&oid)
	if err != nil {
		return nil, fmt.Errorf("lookup blob: %w", err)
	}

	return &Blob{blob: blob}, nil
}

// FileAtRevision returns the contents of filePath as of revision rev.
func (r *Repository) FileAtRevision(ctx context.Context, rev, filePath string) ([]byte, error) {
	_, span := r.tracer.Start(ctx, "gitlib.FileAtRevision",
		trace.WithAttributes(attribute.String("git.revision", rev)))
	defer span.End()

	data, err := r.fileAtRevision(rev, filePath)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(attribute.Int("git.blob_size", len(data)))

	return data, nil
}

func (r *Repository) fileAtRevision(rev, filePath string) ([]byte, error) {
	commit, err := r.ResolveCommit(rev)
	if err != nil {
		return nil, err
	}
	defer commit.Free()

	tree, err := commit.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	entry, err := tree.EntryByPath(cleanPath(filePath))
	if err != nil {
		return nil, fmt.Errorf("%s at %s: %w", filePath, rev, err)
	}

	if !entry.IsBlob() {
		return nil, fmt.Errorf("%w: %s at %s", ErrNotAFile, filePath, rev)
	}

	blob, err := r.LookupBlob(entry.Hash())
	if err != nil {
		return nil, err
	}
	defer blob.Free()

	return blob.Contents(), nil
}

// cleanPath turns a user-supplied path into a tree path: slash separated,
// no leading "./" or "/".
func cleanPath(p string) string {
	p = path.Clean(strings.ReplaceAll(p, "\\", "/"))

	return strings.TrimPrefix(p, "/")
}
