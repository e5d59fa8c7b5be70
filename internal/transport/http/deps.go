package http

import (
	"github.com/sirupsen/logrus"

	"github.com/campus-push/internal/application/admin"
	"github.com/campus-push/internal/application/device"
	"github.com/campus-push/internal/application/invite"
	"github.com/campus-push/internal/application/notification"
	"github.com/campus-push/internal/application/trigger"
	"github.com/campus-push/internal/transport/http/handler"
	"github.com/campus-push/internal/transport/http/middleware"
)

// Deps holds the services and collaborators the router wires into handlers.
type Deps struct {
	Notifications notification.Service
	Devices       device.Service
	Invites       invite.Service
	Admin         admin.Service
	Trigger       *trigger.Handler

	// OperatorAuth verifies operator JWTs; AppAuth verifies app-user ID tokens.
	// Either may be nil.
	OperatorAuth middleware.TokenVerifier
	AppAuth      middleware.TokenVerifier

	HealthChecks map[string]handler.Check
	Logger       logrus.FieldLogger
}

func (d *Deps) verifiers() []middleware.TokenVerifier {
	var vs []middleware.TokenVerifier
	if d.OperatorAuth != nil {
		vs = append(vs, d.OperatorAuth)
	}
	if d.AppAuth != nil {
		vs = append(vs, d.AppAuth)
	}
	return vs
}
