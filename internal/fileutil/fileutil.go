// Package fileutil holds file permission modes for generated output.
package fileutil

import "os"

// OwnerReadWrite is the file permission mode for reports and configuration
// files that may name credential env vars (owner read/write only).
const OwnerReadWrite os.FileMode = 0o600

// ReadableByAll is the file permission mode for generated source code
// files intended to be read by build tools and other users.
const ReadableByAll os.FileMode = 0o644

// DirReadableByAll is the permission mode for generated directories.
const DirReadableByAll os.FileMode = 0o755
