package export

import (
	"time"
)

// Document is the assembled export: one project's process configuration and
// twelve months of activity, serialized as a single JSON object.
type Document struct {
	ExportedAt    time.Time      `json:"exportedAt"`
	Organization  string         `json:"organization"`
	Project       Project        `json:"project"`
	WorkItemTypes []WorkItemType `json:"workItemTypes"`
	Fields        []Field        `json:"fields"`
	Behaviors     []Behavior     `json:"behaviors"`
	Teams         []Team         `json:"teams"`
	BacklogLevels []BacklogLevel `json:"backlogLevels"`
	Metrics       *Metrics       `json:"metrics"`
	Warnings      []string       `json:"warnings"`
}

type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
	State       string `json:"state"`
	Revision    int64  `json:"revision"`
	Visibility  string `json:"visibility"`
}

type WorkItemType struct {
	Name         string `json:"name"`
	RefName      string `json:"refName"`
	Description  string `json:"description"`
	Color        string `json:"color"`
	Icon         string `json:"icon"`
	IsDisabled   bool   `json:"isDisabled"`
	UsageLast12M int    `json:"usageLast12M"`
}

type Field struct {
	RefName             string   `json:"refName"`
	Name                string   `json:"name"`
	Type                string   `json:"type"`
	Description         string   `json:"description"`
	Usage               string   `json:"usage"`
	ReadOnly            bool     `json:"readOnly"`
	CanSortBy           bool     `json:"canSortBy"`
	IsQueryable         bool     `json:"isQueryable"`
	SupportedOperations []string `json:"supportedOperations"`
}

type Behavior struct {
	Name        string `json:"name"`
	RefName     string `json:"refName"`
	Inherits    string `json:"inherits"`
	Description string `json:"description"`
	Abstract    bool   `json:"abstract"`
}

type Team struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	ProjectID   string        `json:"projectId"`
	Settings    *TeamSettings `json:"settings"`
	Members     []TeamMember  `json:"members"`
}

type TeamSettings struct {
	WorkingDays           []string `json:"workingDays"`
	BugsBehavior          string   `json:"bugsBehavior"`
	DefaultIteration      string   `json:"defaultIteration"`
	DefaultIterationMacro string   `json:"defaultIterationMacro"`
	BacklogIteration      string   `json:"backlogIteration"`
}

// TeamMember is one membership row. AadID and Mail are filled by the
// assembler from the identity section when an identity with a matching
// unique name exists.
type TeamMember struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
	URL         string `json:"url"`
	ImageURL    string `json:"imageUrl"`
	AadID       string `json:"aadId,omitempty"`
	Mail        string `json:"mail,omitempty"`
}

type BacklogLevel struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	RefName       string   `json:"refName"`
	Rank          int      `json:"rank"`
	Color         string   `json:"color"`
	WorkItemTypes []string `json:"workItemTypes"`
}

// MonthlyCounts buckets an activity counter by "YYYY-MM" month key.
type MonthlyCounts map[string]int

// Metrics carries the six activity counters. A nil counter means that
// counter could not be fetched; the cause is in the document warnings.
type Metrics struct {
	WorkItemsCreatedPerMonth MonthlyCounts `json:"workItemsCreatedPerMonth"`
	WorkItemsClosedPerMonth  MonthlyCounts `json:"workItemsClosedPerMonth"`
	WorkItemsUpdatedPerMonth MonthlyCounts `json:"workItemsUpdatedPerMonth"`
	PRsCreatedPerMonth       MonthlyCounts `json:"prsCreatedPerMonth"`
	PRsMergedPerMonth        MonthlyCounts `json:"prsMergedPerMonth"`
	PipelineRunsPerMonth     MonthlyCounts `json:"pipelineRunsPerMonth"`
}

// Identity is one organization member from the identity graph. Identities
// are not a document section of their own; they enrich team members.
type Identity struct {
	Descriptor  string `json:"descriptor"`
	DisplayName string `json:"displayName"`
	UniqueName  string `json:"uniqueName"`
	Mail        string `json:"mail"`
	Origin      string `json:"origin"`
	OriginID    string `json:"originId"`
}
