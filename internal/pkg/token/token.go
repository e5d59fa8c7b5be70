package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	InvitePrefix   = "FAC-"
	inviteAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	inviteLength   = 6
)

// NewInviteCode returns a faculty invite code: "FAC-" followed by six characters from [A-Z0-9].
func NewInviteCode() (string, error) {
	b := make([]byte, inviteLength)
	max := big.NewInt(int64(len(inviteAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate invite code: %w", err)
		}
		b[i] = inviteAlphabet[n.Int64()]
	}
	return InvitePrefix + string(b), nil
}
