package models

import "strconv"

// Classification groups cryptids by the nature of the accounts describing them.
type Classification struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	CategoryType string `json:"category_type"`
}

// Cryptid is a catalog entry as stored by the storage backends.
type Cryptid struct {
	ID               int64
	Name             string
	Aliases          []string
	ClassificationID int64
	Classification   string
	Status           string
	ThreatLevel      string
	ShortDescription string
	Description      string
	HasImages        bool
}

type Image struct {
	ID        int64  `json:"id"`
	CryptidID int64  `json:"cryptid_id"`
	URL       string `json:"url"`
	AltText   string `json:"alt_text"`
	Source    string `json:"source"`
	License   string `json:"license"`
}

// CryptidSummary is the listing representation of a cryptid.
type CryptidSummary struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Aliases          []string `json:"aliases"`
	Classification   string   `json:"classification"`
	Status           string   `json:"status"`
	ThreatLevel      string   `json:"threat_level"`
	HasImages        bool     `json:"has_images"`
	ShortDescription string   `json:"short_description"`
}

// CryptidDetail is the single-resource representation of a cryptid.
type CryptidDetail struct {
	CryptidSummary
	Description string `json:"description"`
}

func (c *Cryptid) Summary() CryptidSummary {
	aliases := c.Aliases
	if aliases == nil {
		aliases = []string{}
	}
	return CryptidSummary{
		ID:               strconv.FormatInt(c.ID, 10),
		Name:             c.Name,
		Aliases:          aliases,
		Classification:   c.Classification,
		Status:           c.Status,
		ThreatLevel:      c.ThreatLevel,
		HasImages:        c.HasImages,
		ShortDescription: c.ShortDescription,
	}
}

func (c *Cryptid) Detail() CryptidDetail {
	return CryptidDetail{
		CryptidSummary: c.Summary(),
		Description:    c.Description,
	}
}
