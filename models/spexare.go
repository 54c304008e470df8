package models

import "time"

// Spexare is a member of the registry together with everything the search
// index needs to know about them
type Spexare struct {
	ID                   int64  `json:"id"`
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	NickName             string `json:"nickName,omitempty"`
	BirthDate            string `json:"birthDate,omitempty"`
	SocialSecurityNumber string `json:"socialSecurityNumber,omitempty"`
	Graduation           string `json:"graduation,omitempty"`
	Comment              string `json:"comment,omitempty"`

	Activities  []Activity   `json:"activities,omitempty"`
	Tags        []Tag        `json:"tags,omitempty"`
	Addresses   []Address    `json:"addresses,omitempty"`
	Memberships []Membership `json:"memberships,omitempty"`
	Consents    []Consent    `json:"consents,omitempty"`
	Toggles     []Toggle     `json:"toggles,omitempty"`

	CreatedBy      string     `json:"createdBy,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	LastModifiedBy string     `json:"lastModifiedBy,omitempty"`
	LastModifiedAt *time.Time `json:"lastModifiedAt,omitempty"`
}

// Type is an entry of one of the registry's type lists (vocal ranges,
// membership kinds, consent kinds, ...)
type Type struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// Activity is one engagement of a spexare, either in a spex or in a task
type Activity struct {
	ID             int64          `json:"id,omitempty"`
	SpexActivity   *SpexActivity  `json:"spexActivity,omitempty"`
	TaskActivities []TaskActivity `json:"taskActivities,omitempty"`
}

type SpexActivity struct {
	Spex Spex `json:"spex"`
}

type Spex struct {
	Year    string      `json:"year"`
	Details SpexDetails `json:"details"`
}

type SpexDetails struct {
	Title    string   `json:"title"`
	Category Category `json:"category"`
}

type Category struct {
	Name string `json:"name"`
}

type TaskActivity struct {
	Task   Task    `json:"task"`
	Actors []Actor `json:"actors,omitempty"`
}

type Task struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
}

// Actor is a role played on stage. Vocal is the voice type, if any.
type Actor struct {
	Role  string `json:"role,omitempty"`
	Vocal *Type  `json:"vocal,omitempty"`
}

type Tag struct {
	Name string `json:"name"`
}

type Address struct {
	Type          *Type  `json:"type,omitempty"`
	StreetAddress string `json:"streetAddress,omitempty"`
	PostalCode    string `json:"postalCode,omitempty"`
	City          string `json:"city,omitempty"`
	Country       string `json:"country,omitempty"`
	Phone         string `json:"phone,omitempty"`
	PhoneMobile   string `json:"phoneMobile,omitempty"`
	EmailAddress  string `json:"emailAddress,omitempty"`
}

type Membership struct {
	Year string `json:"year"`
	Type Type   `json:"type"`
}

type Consent struct {
	Value bool `json:"value"`
	Type  Type `json:"type"`
}

type Toggle struct {
	Value bool `json:"value"`
	Type  Type `json:"type"`
}
