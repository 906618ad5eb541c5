// Package role is the role registry of simple-usermgmt.
//
// Role names are unique regardless of case. Deleting a role first removes every
// membership that references it through the membership coordinator, inside a
// store transaction when the store supports one.
//
// # Basic Usage
//
//	s := store.NewInMemoryStore(nil)
//	svc := role.NewRoleService(s, membership.NewCoordinator(s))
//
//	admin, err := svc.Create(ctx, "Admin")
//	_, err = svc.Create(ctx, "admin") // CONFLICT
//
//	_, err = svc.Rename(ctx, admin.ID, "Administrators")
//	err = svc.Delete(ctx, admin.ID)
//
// HTTP handlers live in the api subpackage.
package role
