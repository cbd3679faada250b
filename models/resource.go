package models

import "time"

type ResourceKind string

const (
	ResourceCourtroom      ResourceKind = "courtroom"
	ResourceConferenceRoom ResourceKind = "conference_room"
	ResourceEquipment      ResourceKind = "equipment"
	ResourceVirtual        ResourceKind = "virtual"
)

// BookingRules constrain requests against a resource. Zero means unrestricted.
type BookingRules struct {
	MinDurationMinutes int  `bson:"minDurationMinutes" json:"minDurationMinutes" mapstructure:"minDurationMinutes"`
	MaxDurationMinutes int  `bson:"maxDurationMinutes" json:"maxDurationMinutes" mapstructure:"maxDurationMinutes"`
	MinAdvanceHours    int  `bson:"minAdvanceHours" json:"minAdvanceHours" mapstructure:"minAdvanceHours"`
	MaxAdvanceDays     int  `bson:"maxAdvanceDays" json:"maxAdvanceDays" mapstructure:"maxAdvanceDays"`
	BufferMinutes      int  `bson:"bufferMinutes" json:"bufferMinutes" mapstructure:"bufferMinutes"`
	RequiresApproval   bool `bson:"requiresApproval" json:"requiresApproval" mapstructure:"requiresApproval"`
}

// BookableResource is static configuration changed only by administrators.
type BookableResource struct {
	ID             string       `bson:"id" json:"id" mapstructure:"id"`
	Name           string       `bson:"name" json:"name" mapstructure:"name"`
	Kind           ResourceKind `bson:"kind" json:"kind" mapstructure:"kind"`
	Capacity       int          `bson:"capacity" json:"capacity" mapstructure:"capacity"` // max concurrent occupants
	OperatingHours WeeklyHours  `bson:"operatingHours,omitempty" json:"operatingHours,omitempty" mapstructure:"operatingHours"`
	Rules          BookingRules `bson:"rules" json:"rules" mapstructure:"rules"`
	Active         bool         `bson:"active" json:"active" mapstructure:"active"`
	Version        int64        `bson:"version" json:"version" mapstructure:"-"`
	CreatedAt      time.Time    `bson:"createdAt" json:"createdAt" mapstructure:"-"`
	UpdatedAt      time.Time    `bson:"updatedAt" json:"updatedAt" mapstructure:"-"`
}

// EffectiveCapacity defaults an unset capacity to one occupant.
func (r BookableResource) EffectiveCapacity() int {
	if r.Capacity <= 0 {
		return 1
	}
	return r.Capacity
}

func (r BookableResource) Validate() error {
	verr := &ValidationError{}
	if r.ID == "" {
		verr.Add("id", "is required")
	}
	if r.Name == "" {
		verr.Add("name", "is required")
	}
	if r.Capacity < 0 {
		verr.Add("capacity", "must not be negative")
	}
	rules := r.Rules
	if rules.MinDurationMinutes < 0 || rules.MaxDurationMinutes < 0 || rules.MinAdvanceHours < 0 ||
		rules.MaxAdvanceDays < 0 || rules.BufferMinutes < 0 {
		verr.Add("rules", "values must not be negative")
	}
	if rules.MaxDurationMinutes > 0 && rules.MinDurationMinutes > rules.MaxDurationMinutes {
		verr.Add("rules.maxDurationMinutes", "must not be below minDurationMinutes")
	}
	if err := r.OperatingHours.Validate(); err != nil {
		verr.Add("operatingHours", err.Error())
	}
	return verr.OrNil()
}
