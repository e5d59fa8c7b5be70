package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/campus-push/internal/domain"
	"github.com/campus-push/internal/pkg/id"
)

// Module is the operator-facing name of a business module.
type Module string

const (
	ModuleAnnouncement Module = "announcement"
	ModuleTimetable    Module = "timetable"
	ModuleLostFound    Module = "lostfound"
	ModuleMarketplace  Module = "marketplace"
	ModuleJob          Module = "job"
	ModuleComplaint    Module = "complaint"
	ModuleCustom       Module = "custom"
)

// AllModules lists the modules a full test run creates, in order.
var AllModules = []Module{ModuleAnnouncement, ModuleTimetable, ModuleLostFound, ModuleMarketplace, ModuleJob, ModuleComplaint}

// Category maps a module to the stored notification type.
func (m Module) Category() domain.Category {
	switch m {
	case ModuleAnnouncement:
		return domain.CategoryAnnouncement
	case ModuleTimetable:
		return domain.CategoryTimetable
	case ModuleLostFound:
		return domain.CategoryLostAndFound
	case ModuleMarketplace:
		return domain.CategoryMarketplace
	case ModuleJob:
		return domain.CategoryJobPosting
	case ModuleComplaint:
		return domain.CategoryComplaintInProgress
	default:
		return domain.CategoryCustom
	}
}

// ComposeInput carries operator input for a new record. Empty fields fall
// back to per-module defaults.
type ComposeInput struct {
	Module       Module `json:"module"`
	UniversityID string `json:"university_id" validate:"required_without=UserID"`
	UserID       string `json:"user_id" validate:"required_without=UniversityID"`
	Title        string `json:"title" validate:"max=200"`
	Body         string `json:"body" validate:"max=2000"`
	ImageRef     string `json:"image"`
	Priority     string `json:"priority" validate:"omitempty,oneof=normal high"`

	// Module-specific inputs.
	Item      string `json:"item"`
	Price     string `json:"price"`
	IsLost    bool   `json:"is_lost"`
	ClassName string `json:"class_name"`
	Company   string `json:"company"`
	RefID     string `json:"ref_id"` // announcement, timetable, post, job or complaint id
}

// Compose builds a pending record for in. now stamps createdAt and seeds generated ids.
func Compose(in ComposeInput, now time.Time) (*domain.Notification, error) {
	if in.UniversityID == "" && in.UserID == "" {
		return nil, fmt.Errorf("universityId or userId is required: %w", domain.ErrBadRequest)
	}
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	ref := func(prefix string) string {
		if in.RefID != "" {
			return in.RefID
		}
		return prefix + ms
	}

	title, body := in.Title, in.Body
	data := map[string]any{}
	switch in.Module {
	case ModuleAnnouncement, "":
		title = or(title, "New Announcement")
		body = or(body, "Please check the announcement")
		data["announcement_id"] = ref("test-ann-")
	case ModuleTimetable:
		title = or(title, "Timetable Updated")
		body = or(body, fmt.Sprintf("Class %s schedule changed", or(in.ClassName, "X")))
		data["timetable_id"] = ref("tt-")
	case ModuleLostFound:
		if in.IsLost {
			title = or(title, "Lost Item Posted")
		} else {
			title = or(title, "Item Found")
		}
		body = or(body, "Someone posted about: "+or(in.Item, "an item"))
		data["post_id"] = ref("lf-")
		data["is_lost"] = in.IsLost
	case ModuleMarketplace:
		title = or(title, "New Item Listed")
		body = or(body, fmt.Sprintf("%s listed for %s", or(in.Item, "Item"), or(in.Price, "0")))
		data["post_id"] = ref("mp-")
	case ModuleJob:
		title = or(title, "New Job Posting")
		if in.Company != "" {
			body = or(body, in.Company+" posted a job")
		}
		body = or(body, "A new job was posted")
		data["job_id"] = ref("job-")
	case ModuleComplaint:
		title = or(title, "Complaint Status Updated")
		body = or(body, "Your complaint status changed")
		data["complaint_id"] = ref("c-")
	case ModuleCustom:
		title = or(title, "Test Notification")
		body = or(body, "This is a test notification")
	default:
		return nil, fmt.Errorf("unknown module %q: %w", in.Module, domain.ErrBadRequest)
	}

	module := in.Module
	if module == "" {
		module = ModuleAnnouncement
	}
	return &domain.Notification{
		NotificationID: id.NewAt(now),
		Title:          title,
		Body:           body,
		Category:       module.Category(),
		Priority:       or(in.Priority, domain.PriorityNormal),
		UniversityID:   domain.StrPtr(in.UniversityID),
		UserID:         domain.StrPtr(in.UserID),
		Data:           data,
		ImageRef:       domain.StrPtr(in.ImageRef),
		CreatedAt:      now.UTC(),
	}, nil
}

// ComposeAll builds one sample record per module for the same audience.
func ComposeAll(universityID string, now time.Time) ([]*domain.Notification, error) {
	samples := map[Module]ComposeInput{
		ModuleAnnouncement: {Title: "Test Announcement", Body: "Welcome back!"},
		ModuleTimetable:    {ClassName: "Math 101"},
		ModuleLostFound:    {Title: "Item Found Posted", Item: "test"},
		ModuleMarketplace:  {Item: "Used Phone", Price: "5000"},
		ModuleJob:          {Company: "ACME Corp"},
		ModuleComplaint:    {},
	}
	out := make([]*domain.Notification, 0, len(AllModules))
	for i, m := range AllModules {
		in := samples[m]
		in.Module = m
		in.UniversityID = universityID
		// Offset each record so they sort in module order.
		n, err := Compose(in, now.Add(time.Duration(i)*time.Millisecond))
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

// ParseModule accepts a module name case-insensitively.
func ParseModule(s string) (Module, error) {
	m := Module(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModuleAnnouncement, ModuleTimetable, ModuleLostFound, ModuleMarketplace, ModuleJob, ModuleComplaint, ModuleCustom:
		return m, nil
	}
	return "", fmt.Errorf("unknown module %q: %w", s, domain.ErrBadRequest)
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
