// Package storage handles homework uploads to the shared bucket.
// Objects are partitioned by role folder and identity; the bucket
// policy scopes each user to their own prefix.
package storage

import (
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/egepakten/cognito-student-registry/internal/roles"
)

// ObjectKey builds the bucket key for a user's file. The filename is
// stripped of any path components and NFC-normalized so the same
// visible name always maps to the same key regardless of how the
// client composed it.
func ObjectKey(role roles.Role, identityID, fileName string) string {
	clean := path.Base(strings.ReplaceAll(fileName, "\\", "/"))
	if clean == "." || clean == "/" {
		clean = "upload"
	}
	clean = norm.NFC.String(clean)
	return roles.Folder(role) + "/" + identityID + "/" + clean
}

// ObjectPrefix is the key prefix holding all of one user's files.
func ObjectPrefix(role roles.Role, identityID string) string {
	return roles.Folder(role) + "/" + identityID + "/"
}
