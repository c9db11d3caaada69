package models

import "time"

// Volunteer represents a registered volunteer account. Email doubles as the
// login and the primary key.
type Volunteer struct {
	Email                   string    `db:"email" json:"email"`
	FullName                string    `db:"full_name" json:"full_name"`
	Phone                   *string   `db:"phone" json:"phone,omitempty"`
	PasswordHash            string    `db:"password_hash" json:"-"`
	City                    *string   `db:"city" json:"city,omitempty"`
	ManualActive            bool      `db:"manual_active" json:"manual_active"`
	AvailabilityJSON        string    `db:"availability_json" json:"-"`
	ResolvedCount           int       `db:"resolved_count" json:"resolved_count"`
	ResolvedCountThisPeriod int       `db:"resolved_count_this_period" json:"resolved_count_this_period"`
	RewardPoints            int       `db:"reward_points" json:"reward_points"`
	ActiveReportID          *int64    `db:"active_report_id" json:"active_report_id,omitempty"`
	CreatedAt               time.Time `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time `db:"updated_at" json:"updated_at"`
}

// VolunteerProfile is the authenticated self view: the stored record plus the
// decoded schedule and the activity flag derived from it.
type VolunteerProfile struct {
	Volunteer
	Availability []AvailabilitySlot `json:"availability"`
	IsActiveNow  bool               `json:"is_active_now"`
}

// ActiveVolunteer is the public snapshot exposed by the active listing. It
// never carries credentials.
type ActiveVolunteer struct {
	Email          string             `json:"email"`
	FullName       string             `json:"full_name"`
	Phone          *string            `json:"phone,omitempty"`
	City           *string            `json:"city,omitempty"`
	Availability   []AvailabilitySlot `json:"availability"`
	ManualActive   bool               `json:"manual_active"`
	ScheduleActive bool               `json:"schedule_active"`
	IsActiveNow    bool               `json:"is_active_now"`
}

// ActiveVolunteersResponse aggregates the public activity view. A volunteer
// active both manually and by schedule counts toward both totals.
type ActiveVolunteersResponse struct {
	TotalManualActive    int               `json:"total_manual_active"`
	TotalScheduleActive  int               `json:"total_schedule_active"`
	Volunteers           []ActiveVolunteer `json:"volunteers"`
	GeneratedAt          time.Time         `json:"generated_at"`
}

// VolunteerFilter captures listing options for volunteers.
type VolunteerFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
