package tableau

import (
	"sort"
	"time"
)

// Credentials is the personal access token exchanged during sign-in.
type Credentials struct {
	TokenName      string
	TokenSecret    string
	SiteContentURL string
}

// Session is the signed-in handle returned by the sign-in exchange. The
// token goes into the X-Tableau-Auth header of every subsequent REST
// call; SiteID scopes the collection URLs.
type Session struct {
	Token  string
	SiteID string
	UserID string
}

// Pagination is the envelope Tableau attaches to every collection page.
// The numeric fields arrive as JSON strings.
type Pagination struct {
	PageNumber     string `json:"pageNumber"`
	PageSize       string `json:"pageSize"`
	TotalAvailable string `json:"totalAvailable"`
}

type IDRef struct {
	ID string `json:"id"`
}

type NameRef struct {
	Name string `json:"name"`
}

// Datasource is the raw listing object from GET .../datasources. Flag
// fields Tableau serves as "true"/"false" strings stay strings here; the
// normalizer owns coercion.
type Datasource struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	ContentURL          string      `json:"contentUrl"`
	Type                string      `json:"type"`
	CreatedAt           *time.Time  `json:"createdAt"`
	UpdatedAt           *time.Time  `json:"updatedAt"`
	Certified           bool        `json:"isCertified"`
	CertificationNote   string      `json:"certificationNote"`
	EncryptExtracts     string      `json:"encryptExtracts"`
	HasExtracts         bool        `json:"hasExtracts"`
	UseRemoteQueryAgent bool        `json:"useRemoteQueryAgent"`
	AskData             *AskData    `json:"askData"`
	Owner               *IDRef      `json:"owner"`
	Project             *ProjectRef `json:"project"`
	Tags                TagList     `json:"tags"`
}

type AskData struct {
	Enablement string `json:"enablement"`
}

type ProjectRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// TagList models the {"tag":[{"label":...}]} wrapper.
type TagList struct {
	Tag []Tag `json:"tag"`
}

type Tag struct {
	Label string `json:"label"`
}

// Labels returns the tag labels in server order.
func (t TagList) Labels() []string {
	labels := make([]string, 0, len(t.Tag))
	for _, tag := range t.Tag {
		labels = append(labels, tag.Label)
	}
	return labels
}

// Connection is one entry of a connections enrichment response. Ports
// arrive as strings on the wire.
type Connection struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	ServerAddress string    `json:"serverAddress"`
	ServerPort    string    `json:"serverPort"`
	UserName      string    `json:"userName"`
	EmbedPassword bool      `json:"embedPassword"`
	Datasource    *NamedRef `json:"datasource"`
}

type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// GranteeCapability is one entry of a permissions enrichment response:
// exactly one of Group/User is set, plus the capability list.
type GranteeCapability struct {
	Group        *IDRef         `json:"group"`
	User         *IDRef         `json:"user"`
	Capabilities CapabilityList `json:"capabilities"`
}

type CapabilityList struct {
	Capability []Capability `json:"capability"`
}

type Capability struct {
	Name string `json:"name"`
	Mode string `json:"mode"`
}

// Grantee resolves the grantee reference to (id, tag name). Tag name is
// "group" or "user" depending on which reference is present.
func (g GranteeCapability) Grantee() (id, tagName string) {
	if g.Group != nil {
		return g.Group.ID, "group"
	}
	if g.User != nil {
		return g.User.ID, "user"
	}
	return "", ""
}

type Group struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Domain *NameRef     `json:"domain"`
	Import *GroupImport `json:"import"`
}

// GroupImport carries the on-demand membership settings of a group.
type GroupImport struct {
	SiteRole         string `json:"siteRole"`
	GrantLicenseMode string `json:"grantLicenseMode"`
}

type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	SiteRole    string `json:"siteRole"`
	AuthSetting string `json:"authSetting"`
}

type Project struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description"`
	ContentPermissions string `json:"contentPermissions"`
	ParentProjectID    string `json:"parentProjectId"`
	Owner              *IDRef `json:"owner"`
}

type Schedule struct {
	ID               string            `json:"id"`
	Name             string            `json:"name"`
	State            string            `json:"state"`
	Priority         int               `json:"priority"`
	Type             string            `json:"type"`
	Frequency        string            `json:"frequency"`
	ExecutionOrder   string            `json:"executionOrder"`
	CreatedAt        *time.Time        `json:"createdAt"`
	UpdatedAt        *time.Time        `json:"updatedAt"`
	NextRunAt        *time.Time        `json:"nextRunAt"`
	EndScheduleAt    *time.Time        `json:"endScheduleAt"`
	FrequencyDetails *FrequencyDetails `json:"frequencyDetails"`
}

type FrequencyDetails struct {
	Start     string       `json:"start"`
	End       string       `json:"end"`
	Intervals IntervalList `json:"intervals"`
}

type IntervalList struct {
	Interval []map[string]string `json:"interval"`
}

// Values flattens the interval entries to their values, entries in
// server order and attributes within an entry in key order.
func (l IntervalList) Values() []string {
	vals := make([]string, 0, len(l.Interval))
	for _, entry := range l.Interval {
		keys := make([]string, 0, len(entry))
		for k := range entry {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			vals = append(vals, entry[k])
		}
	}
	return vals
}

// Task is one entry of the extract-refresh task collection; the payload
// sits under the extractRefresh wrapper.
type Task struct {
	ExtractRefresh ExtractRefresh `json:"extractRefresh"`
}

type ExtractRefresh struct {
	ID                     string     `json:"id"`
	Priority               int        `json:"priority"`
	ConsecutiveFailedCount int        `json:"consecutiveFailedCount"`
	Type                   string     `json:"type"`
	LastRunAt              *time.Time `json:"lastRunAt"`
	Schedule               *IDRef     `json:"schedule"`
	Datasource             *IDRef     `json:"datasource"`
	Workbook               *IDRef     `json:"workbook"`
}

// Target resolves the task's refresh target to (id, type).
func (e ExtractRefresh) Target() (id, targetType string) {
	if e.Datasource != nil {
		return e.Datasource.ID, "datasource"
	}
	if e.Workbook != nil {
		return e.Workbook.ID, "workbook"
	}
	return "", ""
}

type Workbook struct {
	ID                     string                  `json:"id"`
	Name                   string                  `json:"name"`
	Description            string                  `json:"description"`
	ContentURL             string                  `json:"contentUrl"`
	WebpageURL             string                  `json:"webpageUrl"`
	ShowTabs               string                  `json:"showTabs"`
	Size                   string                  `json:"size"`
	CreatedAt              *time.Time              `json:"createdAt"`
	UpdatedAt              *time.Time              `json:"updatedAt"`
	Owner                  *IDRef                  `json:"owner"`
	Project                *ProjectRef             `json:"project"`
	Tags                   TagList                 `json:"tags"`
	DataAccelerationConfig *DataAccelerationConfig `json:"dataAccelerationConfig"`
}

type DataAccelerationConfig struct {
	AccelerationEnabled bool       `json:"accelerationEnabled"`
	AccelerateNow       bool       `json:"accelerateNow"`
	LastUpdatedAt       *time.Time `json:"lastUpdatedAt"`
	AccelerationStatus  string     `json:"accelerationStatus"`
}

type View struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	ContentURL string     `json:"contentUrl"`
	CreatedAt  *time.Time `json:"createdAt"`
	UpdatedAt  *time.Time `json:"updatedAt"`
}
