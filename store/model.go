// Package store holds the records owned by the collaborator store. The report
// engine only ever reads them.
package store

import (
	"strings"
	"time"
)

type PropertyRecord struct {
	ID          string     `json:"id" firestore:"-"`
	SessionID   string     `json:"session_id" firestore:"sessionId"`
	Street      string     `json:"street" firestore:"street"`
	City        string     `json:"city" firestore:"city"`
	State       string     `json:"state" firestore:"state"`
	Zip         string     `json:"zip" firestore:"zip"`
	Price       float64    `json:"price" firestore:"price"`
	Beds        float64    `json:"beds" firestore:"beds"`
	Baths       float64    `json:"baths" firestore:"baths"`
	Sqft        int        `json:"sqft" firestore:"sqft"`
	YearBuilt   int        `json:"year_built" firestore:"yearBuilt"`
	LotSize     string     `json:"lot_size" firestore:"lotSize"`
	Garage      string     `json:"garage" firestore:"garage"`
	Heating     string     `json:"heating" firestore:"heating"`
	Cooling     string     `json:"cooling" firestore:"cooling"`
	Summary     string     `json:"summary" firestore:"summary"`
	Description string     `json:"description" firestore:"description"`
	AgentNotes  string     `json:"agent_notes" firestore:"agentNotes"`
	Features    []string   `json:"features" firestore:"features"`
	OrderIndex  int        `json:"order_index" firestore:"orderIndex"`
	ShowingTime *time.Time `json:"showing_time,omitempty" firestore:"showingTime"`
}

// Title is the human-readable name of the property: its street address.
func (p *PropertyRecord) Title() string {
	if s := strings.TrimSpace(p.Street); s != "" {
		return s
	}
	return "Property"
}

// CityLine renders "City, ST 12345", skipping empty parts.
func (p *PropertyRecord) CityLine() string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(p.City))
	if st := strings.TrimSpace(p.State); st != "" {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(st)
	}
	if z := strings.TrimSpace(p.Zip); z != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(z)
	}
	return b.String()
}

// FullAddress joins the street and city line.
func (p *PropertyRecord) FullAddress() string {
	city := p.CityLine()
	if city == "" {
		return p.Title()
	}
	return p.Title() + ", " + city
}

type SessionRecord struct {
	ID          string    `json:"id" firestore:"-"`
	Title       string    `json:"title" firestore:"title"`
	ClientName  string    `json:"client_name" firestore:"clientName"`
	OwnerID     string    `json:"owner_id" firestore:"ownerId"`
	SessionDate time.Time `json:"session_date" firestore:"sessionDate"`
}

// DocumentType is the declared label of an uploaded attachment.
type DocumentType string

const (
	DocDisclosure DocumentType = "disclosure"
	DocInspection DocumentType = "inspection"
	DocHOA        DocumentType = "hoa"
	DocFloorPlan  DocumentType = "floor_plan"
	DocSurvey     DocumentType = "survey"
	DocTitle      DocumentType = "title"
	DocPhoto      DocumentType = "photo"
	DocOther      DocumentType = "other"
)

var documentLabels = map[DocumentType]string{
	DocDisclosure: "Seller Disclosure",
	DocInspection: "Inspection Report",
	DocHOA:        "HOA Documents",
	DocFloorPlan:  "Floor Plan",
	DocSurvey:     "Survey",
	DocTitle:      "Title Report",
	DocPhoto:      "Photo",
	DocOther:      "Other",
}

// Label returns the display label; unknown types read as "Other".
func (t DocumentType) Label() string {
	if l, ok := documentLabels[t]; ok {
		return l
	}
	return documentLabels[DocOther]
}

type AttachmentRecord struct {
	ID         string       `json:"id" firestore:"-"`
	PropertyID string       `json:"property_id" firestore:"propertyId"`
	Name       string       `json:"name" firestore:"name"`
	Type       DocumentType `json:"type" firestore:"type"`
	StorageRef string       `json:"storage_ref" firestore:"storageRef"`
	OrderIndex int          `json:"order_index" firestore:"orderIndex"`
}

type AgentIdentity struct {
	ID          string `json:"id" firestore:"-"`
	DisplayName string `json:"display_name" firestore:"displayName"`
	AvatarRef   string `json:"avatar_ref,omitempty" firestore:"avatarRef"`
	CompanyName string `json:"company_name,omitempty" firestore:"companyName"`
}
