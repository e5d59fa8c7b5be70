package google

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/campus-push/internal/config"
	"github.com/campus-push/internal/domain"
)

// NewApp initialises the Firebase app shared by messaging, Firestore and auth.
// Without a credentials file the application default credentials apply.
func NewApp(ctx context.Context, cfg config.Firebase) (*firebase.App, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: initialise firebase app: %v", domain.ErrConfiguration, err)
	}
	return app, nil
}
