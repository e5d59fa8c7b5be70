package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/campus-push/internal/application/admin"
	"github.com/campus-push/internal/application/dispatch"
	"github.com/campus-push/internal/application/notification"
	"github.com/campus-push/internal/application/trigger"
	"github.com/campus-push/internal/domain"
	amqpinfra "github.com/campus-push/internal/infrastructure/amqp"
	jwtinfra "github.com/campus-push/internal/infrastructure/jwt"
	"github.com/campus-push/internal/pkg/validate"
)

type runner interface {
	run(ctx context.Context, e *env) error
}

type runFunc func(ctx context.Context, e *env) error

func (f runFunc) run(ctx context.Context, e *env) error { return f(ctx, e) }

type command struct {
	summary string
	parse   func(args []string, stderr io.Writer) (runner, error)
}

var commands = map[string]command{
	"create":             {"create one notification for a module (--send dispatches it)", parseCreate},
	"create-all":         {"create one sample notification per module for a university", parseCreateAll},
	"send":               {"dispatch a stored notification by id", parseSend},
	"sample":             {"create and send a sample notification", parseSample},
	"add-super-admin":    {"grant super admin rights to a user", parseAddSuperAdmin},
	"add-uni-admin":      {"make a user an admin of a university", parseAddUniAdmin},
	"add-domain":         {"allow an email domain for a university", parseAddDomain},
	"approve-recruiters": {"approve every recruiter account", parseNoFlags("approve-recruiters", approveRecruiters)},
	"seed":               {"seed the default university", parseSeed},
	"migrate-images":     {"inline announcement images stored as URLs", parseNoFlags("migrate-images", migrateImages)},
	"create-user":        {"create or reset an auth user with role claims", parseCreateUser},
	"token":              {"mint an operator JWT", parseToken},
	"emit":               {"publish a business event to the event queue", parseEmit},
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(programName+" "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	if fs.NArg() > 0 {
		return usageError{msg: fmt.Sprintf("unexpected arguments: %v", fs.Args())}
	}
	return nil
}

// validated runs struct validation and turns failures into usage errors.
func validated(opts interface{}) error {
	if err := validate.Struct(opts); err != nil {
		return usageError{msg: err.Error()}
	}
	return nil
}

func parseNoFlags(name string, fn runFunc) func([]string, io.Writer) (runner, error) {
	return func(args []string, stderr io.Writer) (runner, error) {
		if err := parseFlags(newFlagSet(name, stderr), args); err != nil {
			return nil, err
		}
		return fn, nil
	}
}

// ── Notifications ───────────────────────────────────────────────────────────

type createOptions struct {
	notification.ComposeInput
	Send bool
}

func parseCreate(args []string, stderr io.Writer) (runner, error) {
	opts, err := parseCreateOptions(args, stderr)
	if err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		return createAndReport(ctx, e, opts.ComposeInput, opts.Send)
	}), nil
}

func parseCreateOptions(args []string, stderr io.Writer) (createOptions, error) {
	var (
		opts   createOptions
		module string
	)
	in := &opts.ComposeInput
	fs := newFlagSet("create", stderr)
	fs.StringVar(&module, "module", string(notification.ModuleAnnouncement), "announcement|timetable|lostfound|marketplace|job|complaint|custom")
	fs.StringVar(&in.UniversityID, "uni", "", "target university id")
	fs.StringVar(&in.UserID, "user", "", "target user id")
	fs.StringVar(&in.Title, "title", "", "title (module default when empty)")
	fs.StringVar(&in.Body, "body", "", "body (module default when empty)")
	fs.StringVar(&in.ImageRef, "image", "", "image URL or base64 payload")
	fs.StringVar(&in.Priority, "priority", "", "normal|high")
	fs.StringVar(&in.Item, "item", "", "lost/found or marketplace item")
	fs.StringVar(&in.Price, "price", "", "marketplace price")
	fs.BoolVar(&in.IsLost, "lost", false, "lost item instead of found")
	fs.StringVar(&in.ClassName, "class", "", "timetable class name")
	fs.StringVar(&in.Company, "company", "", "job posting company")
	fs.StringVar(&in.RefID, "ref", "", "id of the referenced entity")
	fs.BoolVar(&opts.Send, "send", false, "dispatch right after creating")
	if err := parseFlags(fs, args); err != nil {
		return opts, err
	}
	m, err := notification.ParseModule(module)
	if err != nil {
		return opts, usageError{msg: err.Error()}
	}
	in.Module = m
	return opts, validated(&opts)
}

type createAllOptions struct {
	UniversityID string `validate:"required"`
	Send         bool
}

func parseCreateAll(args []string, stderr io.Writer) (runner, error) {
	var opts createAllOptions
	fs := newFlagSet("create-all", stderr)
	fs.StringVar(&opts.UniversityID, "uni", "", "target university id (required)")
	fs.BoolVar(&opts.Send, "send", false, "dispatch each record right after creating it")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&opts); err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		app, err := e.application(ctx)
		if err != nil {
			return err
		}
		all, err := app.Notifications.CreateAll(ctx, opts.UniversityID, opts.Send)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(all))
		for _, n := range all {
			ids = append(ids, n.NotificationID)
		}
		return e.print(map[string]interface{}{"created": ids, "sent": opts.Send})
	}), nil
}

type sendOptions struct {
	NotificationID string `validate:"required"`
}

func parseSend(args []string, stderr io.Writer) (runner, error) {
	var opts sendOptions
	fs := newFlagSet("send", stderr)
	fs.StringVar(&opts.NotificationID, "id", "", "notification id (required)")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&opts); err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		app, err := e.application(ctx)
		if err != nil {
			return err
		}
		res, err := app.Notifications.Dispatch(ctx, opts.NotificationID)
		if perr := e.print(summarize(res, err)); perr != nil {
			return perr
		}
		return err
	}), nil
}

type sampleOptions struct {
	UniversityID string `validate:"required_without=UserID"`
	UserID       string `validate:"required_without=UniversityID"`
	Title        string `validate:"max=200"`
	Body         string `validate:"max=2000"`
}

func parseSample(args []string, stderr io.Writer) (runner, error) {
	var opts sampleOptions
	fs := newFlagSet("sample", stderr)
	fs.StringVar(&opts.UniversityID, "uni", "", "broadcast to this university")
	fs.StringVar(&opts.UserID, "user", "", "send to this user's devices")
	fs.StringVar(&opts.Title, "title", "Sample Announcement", "title")
	fs.StringVar(&opts.Body, "body", "This is a sample notification generated locally.", "body")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&opts); err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		return createAndReport(ctx, e, notification.ComposeInput{
			Module:       notification.ModuleCustom,
			UniversityID: opts.UniversityID,
			UserID:       opts.UserID,
			Title:        opts.Title,
			Body:         opts.Body,
		}, true)
	}), nil
}

func createAndReport(ctx context.Context, e *env, in notification.ComposeInput, send bool) error {
	app, err := e.application(ctx)
	if err != nil {
		return err
	}
	n, res, err := app.Notifications.Create(ctx, in, send)
	if n == nil {
		return err
	}
	out := map[string]interface{}{"notification": n}
	if res != nil {
		out["dispatch"] = summarize(*res, err)
	}
	if perr := e.print(out); perr != nil {
		return perr
	}
	return err
}

type dispatchSummary struct {
	NotificationID string `json:"notification_id"`
	Target         string `json:"target,omitempty"`
	Skipped        bool   `json:"skipped,omitempty"`
	Delivered      int    `json:"delivered"`
	Failed         int    `json:"failed"`
	Sent           bool   `json:"sent"`
	Error          string `json:"error,omitempty"`
}

func summarize(res dispatch.Result, err error) dispatchSummary {
	s := dispatchSummary{
		NotificationID: res.NotificationID,
		Skipped:        res.Skipped,
		Delivered:      res.Outcome.Delivered(),
		Failed:         res.Outcome.Failed(),
		Sent:           res.Update.Sent,
	}
	if !res.Skipped {
		s.Target = res.Target.String()
	}
	if err != nil {
		s.Error = err.Error()
	}
	return s
}

// ── Administration ──────────────────────────────────────────────────────────

type addSuperAdminOptions struct {
	UserID string `validate:"required"`
	Email  string `validate:"omitempty,email"`
}

func parseAddSuperAdmin(args []string, stderr io.Writer) (runner, error) {
	var opts addSuperAdminOptions
	fs := newFlagSet("add-super-admin", stderr)
	fs.StringVar(&opts.UserID, "uid", "", "user id (required)")
	fs.StringVar(&opts.Email, "email", "", "user email")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&opts); err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		app, err := e.application(ctx)
		if err != nil {
			return err
		}
		if err := app.Admin.AddSuperAdmin(ctx, opts.UserID, opts.Email); err != nil {
			return err
		}
		return e.print(map[string]string{"super_admin": opts.UserID})
	}), nil
}

type addUniAdminOptions struct {
	UniversityID string `validate:"required"`
	UserID       string `validate:"required"`
}

func parseAddUniAdmin(args []string, stderr io.Writer) (runner, error) {
	var opts addUniAdminOptions
	fs := newFlagSet("add-uni-admin", stderr)
	fs.StringVar(&opts.UniversityID, "uni", "", "university id (required)")
	fs.StringVar(&opts.UserID, "uid", "", "user id (required)")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&opts); err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		app, err := e.application(ctx)
		if err != nil {
			return err
		}
		if err := app.Admin.AddUniversityAdmin(ctx, opts.UniversityID, opts.UserID); err != nil {
			return err
		}
		return e.print(map[string]string{"university_id": opts.UniversityID, "admin": opts.UserID})
	}), nil
}

type addDomainOptions struct {
	UniversityID string `validate:"required"`
	Domain       string `validate:"required"`
}

func parseAddDomain(args []string, stderr io.Writer) (runner, error) {
	var opts addDomainOptions
	fs := newFlagSet("add-domain", stderr)
	fs.StringVar(&opts.UniversityID, "uni", "", "university id (required)")
	fs.StringVar(&opts.Domain, "domain", "", "email domain, e.g. students.example.edu (required)")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&opts); err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		app, err := e.application(ctx)
		if err != nil {
			return err
		}
		added, err := app.Admin.AddDomain(ctx, opts.UniversityID, opts.Domain)
		if err != nil {
			return err
		}
		return e.print(map[string]interface{}{"university_id": opts.UniversityID, "added": added})
	}), nil
}

func approveRecruiters(ctx context.Context, e *env) error {
	app, err := e.application(ctx)
	if err != nil {
		return err
	}
	res, err := app.Admin.ApproveRecruiters(ctx)
	if err != nil {
		return err
	}
	return e.print(res)
}

type seedOptions struct {
	SuperAdminUID string
}

func parseSeed(args []string, stderr io.Writer) (runner, error) {
	var opts seedOptions
	fs := newFlagSet("seed", stderr)
	fs.StringVar(&opts.SuperAdminUID, "super-admin-uid", "", "also register this user as super admin")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		app, err := e.application(ctx)
		if err != nil {
			return err
		}
		uni, err := app.Admin.Seed(ctx, opts.SuperAdminUID)
		if err != nil {
			return err
		}
		return e.print(uni)
	}), nil
}

func migrateImages(ctx context.Context, e *env) error {
	app, err := e.application(ctx)
	if err != nil {
		return err
	}
	res, err := app.Admin.MigrateImages(ctx)
	if err != nil {
		return err
	}
	return e.print(res)
}

func parseCreateUser(args []string, stderr io.Writer) (runner, error) {
	var in admin.CreateUserInput
	fs := newFlagSet("create-user", stderr)
	fs.StringVar(&in.Email, "email", "", "account email (required)")
	fs.StringVar(&in.Password, "password", "", "account password (required)")
	fs.StringVar(&in.FullName, "name", "", "display name")
	fs.StringVar(&in.Role, "role", domain.RoleRecruiter, "role claim")
	fs.StringVar(&in.UniversityID, "uni", "", "university id claim")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&in); err != nil {
		return nil, err
	}
	return runFunc(func(ctx context.Context, e *env) error {
		app, err := e.application(ctx)
		if err != nil {
			return err
		}
		u, created, err := app.Admin.CreateUser(ctx, in)
		if err != nil {
			return err
		}
		return e.print(map[string]interface{}{"user": u, "created": created})
	}), nil
}

// ── Tooling ─────────────────────────────────────────────────────────────────

type tokenOptions struct {
	UserID       string `validate:"required"`
	Role         string `validate:"required,oneof=super_admin admin faculty recruiter student"`
	UniversityID string
}

func parseToken(args []string, stderr io.Writer) (runner, error) {
	var opts tokenOptions
	fs := newFlagSet("token", stderr)
	fs.StringVar(&opts.UserID, "uid", "", "subject user id (required)")
	fs.StringVar(&opts.Role, "role", domain.RoleAdmin, "role claim")
	fs.StringVar(&opts.UniversityID, "uni", "", "university id claim")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&opts); err != nil {
		return nil, err
	}
	return runFunc(func(_ context.Context, e *env) error {
		cfg, err := e.config()
		if err != nil {
			return err
		}
		p, err := jwtinfra.NewProvider(cfg)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
		}
		tok, err := p.Sign(opts.UserID, opts.Role, opts.UniversityID)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(e.out, tok)
		return err
	}), nil
}

type emitOptions struct {
	Type    string `validate:"required,oneof=announcement.created timetable.updated lost_found.posted marketplace.item_created device_token.registered"`
	Payload string `validate:"required"`
}

func parseEmit(args []string, stderr io.Writer) (runner, error) {
	var opts emitOptions
	fs := newFlagSet("emit", stderr)
	fs.StringVar(&opts.Type, "type", "", "event type, e.g. timetable.updated (required)")
	fs.StringVar(&opts.Payload, "payload", "", "event payload as JSON (required)")
	if err := parseFlags(fs, args); err != nil {
		return nil, err
	}
	if err := validated(&opts); err != nil {
		return nil, err
	}
	if !json.Valid([]byte(opts.Payload)) {
		return nil, usageError{msg: "payload is not valid JSON"}
	}
	envelope := trigger.Envelope{Type: trigger.EventType(opts.Type), Payload: json.RawMessage(opts.Payload)}
	return runFunc(func(ctx context.Context, e *env) error {
		cfg, err := e.config()
		if err != nil {
			return err
		}
		if cfg.RabbitMQURL == "" {
			return fmt.Errorf("%w: RABBITMQ_URL is not set", domain.ErrConfiguration)
		}
		pub, err := amqpinfra.NewPublisher(cfg.RabbitMQURL, cfg.RabbitMQueue)
		if err != nil {
			return err
		}
		defer pub.Close()
		if err := pub.Publish(ctx, envelope); err != nil {
			return errors.Join(domain.ErrTransport, err)
		}
		return e.print(map[string]string{"published": string(envelope.Type), "queue": cfg.RabbitMQueue})
	}), nil
}
