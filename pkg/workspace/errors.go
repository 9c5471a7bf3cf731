package workspace

import "errors"

var (
	// ErrRootNotFound indicates no package.json between the git root and
	// the working directory
	ErrRootNotFound = errors.New("could not find workspace root")

	// ErrDuplicatePackage indicates two packages share a name
	ErrDuplicatePackage = errors.New("duplicate package name")

	// ErrPackageNotFound indicates a selected package is not in the workspace
	ErrPackageNotFound = errors.New("could not find package")
)
