package domain

// Counterpart is a client record in the accounting system
type Counterpart struct {
	ID            int    `json:"id,omitempty"`
	ContactTypeID int    `json:"contact_type_id"`
	Name1         string `json:"name_1"`
	Name2         string `json:"name_2,omitempty"`
	SalutationID  *int   `json:"salutation_id,omitempty"`
	Address       string `json:"address,omitempty"`
	Postcode      string `json:"postcode,omitempty"`
	City          string `json:"city,omitempty"`
	CountryID     int    `json:"country_id,omitempty"`
	Mail          string `json:"mail,omitempty"`
	PhoneMobile   string `json:"phone_mobile,omitempty"`
	LanguageID    int    `json:"language_id,omitempty"`
	UserID        int    `json:"user_id,omitempty"`
	OwnerID       int    `json:"owner_id,omitempty"`
}

// CounterpartRelation links a company counterpart to a person counterpart
type CounterpartRelation struct {
	ID           int    `json:"id,omitempty"`
	ContactID    int    `json:"contact_id,omitempty"`
	ContactSubID int    `json:"contact_sub_id"`
	Description  string `json:"description,omitempty"`
}

// ContactResolution identifies the counterparts a quote is addressed to.
// AssociateID is only set for company clients.
type ContactResolution struct {
	PrimaryID   int  `json:"primaryId"`
	AssociateID *int `json:"associateId,omitempty"`
}
