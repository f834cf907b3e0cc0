// Package authz loads tenant-scoped permission grants and owns the default
// role policy. Permissions are queried fresh on every request so a role
// change or revocation takes effect on the very next call; nothing here is
// cached.
package authz
