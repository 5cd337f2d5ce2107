// ABOUTME: Data models for canvassing entities
// ABOUTME: Defines Prospect, Cycle, Message, QualityCheck, and CycleStatusLog structs
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage bounds. Stage 0 is canvassing, 1..7 are follow-up days.
const (
	StageCanvassing = 0
	MaxStage        = 7
)

type Prospect struct {
	ID            uuid.UUID `json:"id" db:"id"`
	Handle        string    `json:"handle" db:"handle"`
	Category      string    `json:"category,omitempty" db:"category"`
	BusinessType  string    `json:"business_type,omitempty" db:"business_type"`
	Channel       string    `json:"channel,omitempty" db:"channel"`
	ExternalLink  string    `json:"external_link,omitempty" db:"external_link"`
	ContactNumber string    `json:"contact_number,omitempty" db:"contact_number"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

type Cycle struct {
	ID               uuid.UUID   `json:"id" db:"id"`
	ProspectID       uuid.UUID   `json:"prospect_id" db:"prospect_id"`
	StaffID          int64       `json:"staff_id" db:"staff_id"`
	StartDate        time.Time   `json:"start_date" db:"start_date"`
	CurrentStage     int         `json:"current_stage" db:"current_stage"`
	Status           CycleStatus `json:"status" db:"status"`
	LastFollowupDate *time.Time  `json:"last_followup_date,omitempty" db:"last_followup_date"`
	NextFollowupDate *time.Time  `json:"next_followup_date,omitempty" db:"next_followup_date"`
	NextAction       string      `json:"next_action,omitempty" db:"next_action"`
	FailureReason    string      `json:"failure_reason,omitempty" db:"failure_reason"`
	Notes            string      `json:"notes,omitempty" db:"notes"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"`
}

type Message struct {
	ID                uuid.UUID  `json:"id" db:"id"`
	CycleID           uuid.UUID  `json:"cycle_id" db:"cycle_id"`
	Stage             int        `json:"stage" db:"stage"`
	Category          string     `json:"category" db:"category"`
	Channel           string     `json:"channel,omitempty" db:"channel"`
	InteractionStatus string     `json:"interaction_status,omitempty" db:"interaction_status"`
	ScreenshotKey     string     `json:"screenshot_key" db:"screenshot_key"`
	ScreenshotHash    string     `json:"screenshot_hash" db:"screenshot_hash"`
	OCRHandle         string     `json:"ocr_handle,omitempty" db:"ocr_handle"`
	OCRMessageSnippet string     `json:"ocr_message_snippet,omitempty" db:"ocr_message_snippet"`
	OCRDate           *time.Time `json:"ocr_date,omitempty" db:"ocr_date"`
	SubmittedAt       time.Time  `json:"submitted_at" db:"submitted_at"`
	ValidationStatus  string     `json:"validation_status" db:"validation_status"`
	InvalidReason     string     `json:"invalid_reason,omitempty" db:"invalid_reason"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at" db:"updated_at"`
}

type QualityCheck struct {
	ID           uuid.UUID `json:"id" db:"id"`
	MessageID    uuid.UUID `json:"message_id" db:"message_id"`
	SupervisorID int64     `json:"supervisor_id" db:"supervisor_id"`
	Status       string    `json:"status" db:"status"`
	Notes        string    `json:"notes,omitempty" db:"notes"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type CycleStatusLog struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CycleID   uuid.UUID `json:"cycle_id" db:"cycle_id"`
	OldStatus string    `json:"old_status,omitempty" db:"old_status"`
	NewStatus string    `json:"new_status" db:"new_status"`
	ChangedBy int64     `json:"changed_by" db:"changed_by"`
	Notes     string    `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// MessageView joins a message with its cycle and prospect for listings.
type MessageView struct {
	Message
	StaffID        int64       `json:"staff_id" db:"staff_id"`
	ProspectID     uuid.UUID   `json:"prospect_id" db:"prospect_id"`
	ProspectHandle string      `json:"prospect_handle" db:"prospect_handle"`
	CycleStatus    CycleStatus `json:"cycle_status" db:"cycle_status"`
}

// CycleView adds the prospect handle and message count to a cycle.
type CycleView struct {
	Cycle
	ProspectHandle string `json:"prospect_handle" db:"prospect_handle"`
	MessageCount   int    `json:"message_count" db:"message_count"`
}

// Validation statuses for messages.
const (
	ValidationPending = "pending"
	ValidationValid   = "valid"
	ValidationInvalid = "invalid"
)

// Quality check outcomes.
const (
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// Prospect categories.
const (
	CategoryUMKMFoodBeverage = "umkm_fb"
	CategoryCoffeeShop       = "coffee_shop"
	CategoryRestaurant       = "restoran"
)

// Outreach channels.
const (
	ChannelInstagram = "instagram"
	ChannelTikTok    = "tiktok"
	ChannelFacebook  = "facebook"
	ChannelThreads   = "threads"
	ChannelWhatsApp  = "whatsapp"
	ChannelOther     = "other"
)

// Interaction outcomes reported by staff with an upload.
const (
	OutcomeNoResponse = "no_response"
	OutcomeRefused    = "menolak"
	OutcomeInterested = "tertarik"
	OutcomeAccepted   = "menerima"
)

var categories = map[string]bool{
	CategoryUMKMFoodBeverage: true,
	CategoryCoffeeShop:       true,
	CategoryRestaurant:       true,
}

var channels = map[string]bool{
	ChannelInstagram: true,
	ChannelTikTok:    true,
	ChannelFacebook:  true,
	ChannelThreads:   true,
	ChannelWhatsApp:  true,
	ChannelOther:     true,
}

var outcomes = map[string]bool{
	OutcomeNoResponse: true,
	OutcomeRefused:    true,
	OutcomeInterested: true,
	OutcomeAccepted:   true,
}

func ValidCategory(c string) bool { return categories[c] }
func ValidChannel(c string) bool  { return channels[c] }
func ValidOutcome(o string) bool  { return outcomes[o] }

// ValidStage reports whether stage is within 0..MaxStage.
func ValidStage(stage int) bool {
	return stage >= StageCanvassing && stage <= MaxStage
}

// StageLabel returns the human label for a stage ("Canvassing", "Follow Up 3").
func StageLabel(stage int) string {
	if stage == StageCanvassing {
		return "Canvassing"
	}
	return fmt.Sprintf("Follow Up %d", stage)
}

// NextAction describes what staff should do after submitting stage.
func NextAction(stage int) string {
	if stage >= MaxStage {
		return "Closing"
	}
	return StageLabel(stage + 1)
}

// AdvanceFollowup sets the follow-up dates after a submission at the given
// stage. Follow-ups run daily, so the next one is due the following day.
func (c *Cycle) AdvanceFollowup(stage int, submittedAt time.Time) {
	last := submittedAt
	c.LastFollowupDate = &last
	c.NextAction = NextAction(stage)
	if stage >= MaxStage {
		c.NextFollowupDate = nil
		return
	}
	next := submittedAt.AddDate(0, 0, 1)
	c.NextFollowupDate = &next
}

// ApplyOutcome updates the cycle status from the staff-reported interaction
// outcome. It returns true when the status changed.
func (c *Cycle) ApplyOutcome(outcome string) bool {
	old := c.Status
	switch outcome {
	case OutcomeRefused:
		c.Status = StatusRejected
		c.FailureReason = "Menolak (Staff Input)"
	case OutcomeAccepted:
		c.Status = StatusConverted
	case OutcomeInterested:
		c.Status = StatusOngoing
	case OutcomeNoResponse:
		if c.Status == StatusActive {
			c.Status = StatusOngoing
		}
	}
	return c.Status != old
}
