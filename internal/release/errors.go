package release

import "errors"

var (
	// ErrDirtyTree means the distribution or build directory already holds
	// files that would be uploaded or deleted along with this release.
	ErrDirtyTree = errors.New("working tree has leftover release outputs")
	// ErrAlreadyPublished means history shows this version was already
	// uploaded to the same repository.
	ErrAlreadyPublished = errors.New("version already published")
	// ErrNoArtifacts means the build step produced nothing to upload.
	ErrNoArtifacts = errors.New("no distribution artifacts found")
	// ErrUploadDeclined means the confirmation prompt was answered no.
	ErrUploadDeclined = errors.New("upload declined")
)
