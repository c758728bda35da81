// internal/models/models.go
package models

import (
	"time"

	"gorm.io/datatypes"
)

// Owned is implemented by every per-user resource.
type Owned interface {
	OwnerID() uint
}

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"

	AssignmentStatusPending    = "pending"
	AssignmentStatusInProgress = "in_progress"
	AssignmentStatusCompleted  = "completed"

	ReportStatusDraft    = "draft"
	ReportStatusPending  = "pending"
	ReportStatusSent     = "sent"
	ReportStatusRejected = "rejected"

	ReminderTypeEmail        = "email"
	ReminderTypeNotification = "notification"
	ReminderTypeBoth         = "both"

	NotificationInfo    = "info"
	NotificationSuccess = "success"
	NotificationWarning = "warning"
	NotificationError   = "error"
)

// NormalizeTaskStatus maps the dashed spelling accepted from clients onto the
// stored form.
func NormalizeTaskStatus(status string) string {
	if status == "in-progress" {
		return TaskStatusInProgress
	}
	return status
}

type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null" json:"username"`
	Password  string    `gorm:"not null" json:"-"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Session struct {
	ID        string    `gorm:"primaryKey;size:36"`
	UserID    uint      `gorm:"not null;index"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

type Project struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Color       string    `json:"color"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (p Project) OwnerID() uint { return p.UserID }

type Task struct {
	ID          uint       `gorm:"primarykey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	UserID      uint       `gorm:"not null;index" json:"userId"`
	ProjectID   *uint      `gorm:"index" json:"projectId"`
	PlanID      *uint      `gorm:"index" json:"planId"`
	Status      string     `gorm:"not null;default:pending" json:"status"`
	Priority    string     `gorm:"not null;default:medium" json:"priority"`
	DueDate     *time.Time `gorm:"index" json:"dueDate"`
	Completed   bool       `gorm:"not null;default:false" json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	User    *User    `gorm:"foreignKey:UserID" json:"-"`
	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:SET NULL" json:"-"`
	Plan    *Plan    `gorm:"foreignKey:PlanID;constraint:OnDelete:SET NULL" json:"-"`
}

func (t Task) OwnerID() uint { return t.UserID }

type TaskAssignment struct {
	TaskID      uint       `gorm:"primaryKey;autoIncrement:false" json:"taskId"`
	UserID      uint       `gorm:"primaryKey;autoIncrement:false;index" json:"userId"`
	Status      string     `gorm:"not null;default:pending" json:"status"`
	AssignedBy  uint       `json:"assignedBy"`
	CompletedAt *time.Time `json:"completedAt"`
	Notes       string     `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time  `json:"assignedAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`

	Task *Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"task,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

type Report struct {
	ID          uint                        `gorm:"primarykey" json:"id"`
	Title       string                      `gorm:"not null" json:"title"`
	Description string                      `gorm:"type:text" json:"description"`
	Location    string                      `json:"location"`
	ReportType  string                      `json:"reportType"`
	Status      string                      `gorm:"not null;default:draft" json:"status"`
	ProjectID   *uint                       `gorm:"index" json:"projectId"`
	EmailTo     string                      `json:"emailTo"`
	Attachments datatypes.JSONSlice[string] `json:"attachments"`
	UserID      uint                        `gorm:"not null;index" json:"userId"`
	CreatedAt   time.Time                   `json:"createdAt"`
	UpdatedAt   time.Time                   `json:"updatedAt"`

	User    *User    `gorm:"foreignKey:UserID" json:"-"`
	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:SET NULL" json:"-"`
}

func (r Report) OwnerID() uint { return r.UserID }

type Part struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"not null" json:"name"`
	PartNumber  string    `gorm:"uniqueIndex;not null" json:"partNumber"`
	Length      *float64  `json:"length"`
	Width       *float64  `json:"width"`
	Height      *float64  `json:"height"`
	Weight      *float64  `json:"weight"`
	Color       string    `json:"color"`
	Category    string    `gorm:"index" json:"category"`
	Description string    `gorm:"type:text" json:"description"`
	QRCode      string    `gorm:"column:qr_code;type:text" json:"qrCode"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (p Part) OwnerID() uint { return p.UserID }

// BackgroundImage is a positioned image layer on a plan.
type BackgroundImage struct {
	ID     string  `json:"id" binding:"required"`
	URL    string  `json:"url" binding:"required"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width" binding:"gte=0"`
	Height float64 `json:"height" binding:"gte=0"`
}

// PlanPoint is a marker placed on a plan.
type PlanPoint struct {
	ID      string   `json:"id" binding:"required"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Notes   []string `json:"notes"`
	Images  []string `json:"images"`
	PartIDs []uint   `json:"partIds"`
}

// PlanContent is stored as an opaque JSON column; part ids inside it are not
// checked against the parts table.
type PlanContent struct {
	BackgroundImages []BackgroundImage `json:"backgroundImages" binding:"dive"`
	Points           []PlanPoint       `json:"points" binding:"dive"`
}

type Plan struct {
	ID        uint                            `gorm:"primarykey" json:"id"`
	Name      string                          `gorm:"not null" json:"name"`
	UserID    uint                            `gorm:"not null;index" json:"userId"`
	Content   datatypes.JSONType[PlanContent] `json:"content"`
	CreatedAt time.Time                       `json:"createdAt"`
	UpdatedAt time.Time                       `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (p Plan) OwnerID() uint { return p.UserID }

type PlanUser struct {
	PlanID     uint      `gorm:"primaryKey;autoIncrement:false" json:"planId"`
	UserID     uint      `gorm:"primaryKey;autoIncrement:false;index" json:"userId"`
	AssignedBy uint      `json:"assignedBy"`
	CreatedAt  time.Time `json:"assignedAt"`

	Plan *Plan `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"plan,omitempty"`
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
}

type Reminder struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	TaskID       uint      `gorm:"not null;index" json:"taskId"`
	UserID       uint      `gorm:"not null;index" json:"userId"`
	ReminderDate time.Time `gorm:"not null;index" json:"reminderDate"`
	ReminderType string    `gorm:"not null;default:notification" json:"reminderType"`
	Message      string    `gorm:"type:text" json:"message"`
	Sent         bool      `gorm:"not null;default:false;index" json:"sent"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Task *Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"-"`
	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (r Reminder) OwnerID() uint { return r.UserID }

type Notification struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"userId"`
	Title         string    `gorm:"not null" json:"title"`
	Message       string    `gorm:"type:text" json:"message"`
	Type          string    `gorm:"not null;default:info" json:"type"`
	IsRead        bool      `gorm:"not null;default:false;index" json:"isRead"`
	RelatedTaskID *uint     `json:"relatedTaskId"`
	RelatedPlanID *uint     `json:"relatedPlanId"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (n Notification) OwnerID() uint { return n.UserID }

type LocationReport struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"userId"`
	ReportDate  time.Time `gorm:"not null;index" json:"reportDate"`
	Location    string    `gorm:"not null" json:"location"`
	Description string    `gorm:"type:text" json:"description"`
	GPSLat      *float64  `gorm:"column:gps_lat" json:"gpsLat"`
	GPSLong     *float64  `gorm:"column:gps_long" json:"gpsLong"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (l LocationReport) OwnerID() uint { return l.UserID }

// All lists every model in migration order.
func All() []any {
	return []any{
		&User{},
		&Session{},
		&Project{},
		&Plan{},
		&Task{},
		&TaskAssignment{},
		&Report{},
		&Part{},
		&PlanUser{},
		&Reminder{},
		&Notification{},
		&LocationReport{},
	}
}
