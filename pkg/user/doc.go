// Package user is the user registry of simple-usermgmt.
//
// Emails are unique regardless of case and the username always mirrors the
// email. Passwords are checked against the configured policy and stored only
// as bcrypt hashes.
//
//	svc := user.NewUserService(s, membership.NewCoordinator(s),
//		user.WithPolicy(password.DefaultPolicy()))
//
//	u, err := svc.Create(ctx, user.Profile{Email: "alice@example.com"}, "Start1234!")
//	err = svc.ChangePassword(ctx, u.ID, "Start1234!", "Start5678!")
//	_, err = svc.AssignRoles(ctx, u.ID, []uuid.UUID{adminID})
package user
