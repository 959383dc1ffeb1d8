package model

import "time"

// Varietal is the grape variety of a wine.
type Varietal int

const (
	VarietalMalbec Varietal = iota + 1
	VarietalCabernetSauvignon
	VarietalChardonnay
	VarietalMerlot
	VarietalOther
)

var varietalNames = map[Varietal]string{
	VarietalMalbec:            "Malbec",
	VarietalCabernetSauvignon: "Cabernet Sauvignon",
	VarietalChardonnay:        "Chardonnay",
	VarietalMerlot:            "Merlot",
	VarietalOther:             "Other",
}

func (v Varietal) String() string {
	if name, ok := varietalNames[v]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether v is one of the known varietals.
func (v Varietal) Valid() bool {
	_, ok := varietalNames[v]
	return ok
}

// VarietalChoice is one entry of the varietal list offered to clients.
type VarietalChoice struct {
	ID    Varietal `json:"id"`
	Value string   `json:"value"`
}

// Varietals lists every varietal in id order.
func Varietals() []VarietalChoice {
	out := make([]VarietalChoice, 0, len(varietalNames))
	for v := VarietalMalbec; v <= VarietalOther; v++ {
		out = append(out, VarietalChoice{ID: v, Value: v.String()})
	}
	return out
}

// WineLine groups the wines a winery sells under one label.
type WineLine struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:20;not null" json:"name"`
	Description string    `json:"description"`
	WineryID    uint      `gorm:"index;not null" json:"winery_id"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`

	Wines []Wine `gorm:"constraint:OnDelete:CASCADE" json:"wines"`
}

// Wine belongs to one line of one winery.
type Wine struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:20;not null" json:"name"`
	Description string    `json:"description"`
	Varietal    Varietal  `gorm:"not null;default:4" json:"varietal"`
	WineryID    uint      `gorm:"index;not null" json:"winery_id"`
	WineLineID  uint      `gorm:"index;not null" json:"wine_line_id"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`

	Winery *Winery `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
