package mdpad

// Permission is the access level negotiated for a document, per
// spec.md §6.
type Permission string

const (
	PermissionFreely    Permission = "freely"
	PermissionEditable  Permission = "editable"
	PermissionLimited   Permission = "limited"
	PermissionLocked    Permission = "locked"
	PermissionPrivate   Permission = "private"
	PermissionProtected Permission = "protected"
)

// canEdit reports whether perm allows writes for the given credentials,
// per spec.md §6's permission model: freely always; editable/limited
// require authentication; locked/protected/private require ownership.
func canEdit(perm Permission, authenticated, isOwner bool) bool {
	switch perm {
	case PermissionFreely:
		return true
	case PermissionEditable, PermissionLimited:
		return authenticated
	case PermissionLocked, PermissionProtected, PermissionPrivate:
		return isOwner
	default:
		return false
	}
}
