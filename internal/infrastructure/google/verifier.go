package google

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"

	"github.com/campus-push/internal/domain"
)

// Verifier checks Firebase ID tokens issued to app users.
type Verifier struct {
	client *auth.Client
}

func NewVerifier(client *auth.Client) *Verifier {
	return &Verifier{client: client}
}

// Verify validates the ID token and maps its custom claims to a principal.
// Users without a role claim are students.
func (v *Verifier) Verify(ctx context.Context, idToken string) (*domain.Principal, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("invalid firebase token: %w", domain.ErrUnauthorized)
	}
	return principalFromClaims(tok.UID, tok.Claims), nil
}

func principalFromClaims(uid string, claims map[string]interface{}) *domain.Principal {
	p := &domain.Principal{UserID: uid, Role: domain.RoleStudent}
	if role, _ := claims["role"].(string); role != "" {
		p.Role = role
	}
	if uni, _ := claims["universityId"].(string); uni != "" {
		p.UniversityID = uni
	} else if uni, _ := claims["uniId"].(string); uni != "" {
		p.UniversityID = uni
	}
	return p
}
