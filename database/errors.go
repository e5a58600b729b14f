package database

import (
	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound is returned by repositories when no document matches.
var ErrNotFound = errors.New("document not found")

// NotFoundOr maps mongo.ErrNoDocuments to ErrNotFound and wraps anything else.
func NotFoundOr(err error, msg string, args ...any) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return errors.WithStack(ErrNotFound)
	}
	return errors.Wrapf(err, msg, args...)
}
