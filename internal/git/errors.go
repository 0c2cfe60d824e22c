package git

import (
	stderrors "errors"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"git.home.luguber.info/inful/pubgate/internal/foundation/errors"
)

var (
	// ErrNotRepository is returned when no repository encloses the path.
	ErrNotRepository = stderrors.New("not a git repository")
	// ErrNoCommits is returned for a repository whose HEAD points nowhere yet.
	ErrNoCommits = stderrors.New("repository has no commits")
)

// classify translates go-git failures into classified errors.
func classify(err error, op, path string) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.AsClassified(err); ok {
		return err
	}

	builder := errors.GitError("git operation failed").
		WithCause(err).
		WithContext("op", op).
		WithContext("path", path)

	l := strings.ToLower(err.Error())
	switch {
	case stderrors.Is(err, gogit.ErrRepositoryNotExists), stderrors.Is(err, ErrNotRepository):
		builder.WithCategory(errors.CategoryNotFound)
	case strings.Contains(l, "permission denied"):
		builder.WithCategory(errors.CategoryFileSystem).UserAction()
	case strings.Contains(l, "object not found"), strings.Contains(l, "reference not found"):
		builder.WithContext("corrupt", true)
	}
	return builder.Build()
}
