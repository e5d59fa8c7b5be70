package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/campus-push/internal/domain"
)

// TopicPrefix is prepended to a university id to form its broadcast topic.
const TopicPrefix = "university_"

// TopicForUniversity returns the broadcast topic for a university. The id is used verbatim.
func TopicForUniversity(universityID string) string {
	return TopicPrefix + universityID
}

type TargetKind int

const (
	TargetUnresolvable TargetKind = iota
	TargetTopic
	TargetUserTokens
)

func (k TargetKind) String() string {
	switch k {
	case TargetTopic:
		return "topic"
	case TargetUserTokens:
		return "user_tokens"
	default:
		return "unresolvable"
	}
}

// Target is where a notification goes: a topic name, or one user's live tokens.
type Target struct {
	Kind   TargetKind
	Topic  string
	UserID string
	Tokens []string
}

func (t Target) String() string {
	switch t.Kind {
	case TargetTopic:
		return "topic:" + t.Topic
	case TargetUserTokens:
		return fmt.Sprintf("user:%s (%d tokens)", t.UserID, len(t.Tokens))
	default:
		return "unresolvable"
	}
}

// TokenStore reads the device tokens registered for a user.
type TokenStore interface {
	ListTokens(ctx context.Context, userID string) ([]string, error)
}

type Resolver struct {
	tokens TokenStore
}

func NewResolver(tokens TokenStore) *Resolver {
	return &Resolver{tokens: tokens}
}

// Resolve picks the delivery target. A user id wins over a university id.
// A user with no tokens resolves to an empty token list, not an error.
func (r *Resolver) Resolve(ctx context.Context, n *domain.Notification) (Target, error) {
	if uid := n.TargetUserID(); uid != "" {
		raw, err := r.tokens.ListTokens(ctx, uid)
		if err != nil {
			return Target{}, fmt.Errorf("list tokens for user %s: %w", uid, err)
		}
		tokens := make([]string, 0, len(raw))
		for _, tok := range raw {
			if strings.TrimSpace(tok) != "" {
				tokens = append(tokens, tok)
			}
		}
		return Target{Kind: TargetUserTokens, UserID: uid, Tokens: tokens}, nil
	}
	if uni := n.TargetUniversityID(); uni != "" {
		return Target{Kind: TargetTopic, Topic: TopicForUniversity(uni)}, nil
	}
	return Target{Kind: TargetUnresolvable}, nil
}
