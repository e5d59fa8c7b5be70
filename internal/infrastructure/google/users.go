package google

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// UserAdmin manages Firebase Auth accounts for operator tooling.
type UserAdmin struct {
	client *auth.Client
}

func NewUserAdmin(client *auth.Client) *UserAdmin {
	return &UserAdmin{client: client}
}

// EnsureUser creates the account or, when the email already exists, resets
// its password and display name. It returns the uid and whether it was created.
func (a *UserAdmin) EnsureUser(ctx context.Context, email, password, displayName string) (string, bool, error) {
	existing, err := a.client.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		upd := (&auth.UserToUpdate{}).Password(password)
		if displayName != "" {
			upd = upd.DisplayName(displayName)
		}
		if _, err := a.client.UpdateUser(ctx, existing.UID, upd); err != nil {
			return "", false, fmt.Errorf("update auth user %s: %w", email, err)
		}
		return existing.UID, false, nil
	case auth.IsUserNotFound(err):
		create := (&auth.UserToCreate{}).Email(email).Password(password).EmailVerified(true)
		if displayName != "" {
			create = create.DisplayName(displayName)
		}
		rec, err := a.client.CreateUser(ctx, create)
		if err != nil {
			return "", false, fmt.Errorf("create auth user %s: %w", email, err)
		}
		return rec.UID, true, nil
	default:
		return "", false, fmt.Errorf("look up auth user %s: %w", email, err)
	}
}

// SetClaims stores the role and university on the account's ID tokens.
func (a *UserAdmin) SetClaims(ctx context.Context, uid, role, universityID string) error {
	claims := map[string]interface{}{"role": role}
	if universityID != "" {
		claims["universityId"] = universityID
	}
	if err := a.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return fmt.Errorf("set claims for %s: %w", uid, err)
	}
	return nil
}
