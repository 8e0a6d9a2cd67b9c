// pkg/config/jira.go
package config

import (
	"net/url"
	"time"
)

// JiraConfig holds the issue tracker connection and query parameters
type JiraConfig struct {
	BaseURL  string
	Username string
	APIToken string
	// Cookie is sent verbatim when set, for session-based instances
	Cookie string

	Project  string
	PageSize int

	RetryAttempts     int
	RetryDelay        time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64

	// StrictPagination turns a malformed page into a fatal error instead
	// of the end of the result set
	StrictPagination bool

	Fields CustomFields
}

// CustomFields maps the opaque custom field ids used by the project
type CustomFields struct {
	EntityCourse      string
	Coordinator       string
	CoordinatorMaster string
	ContentistaCPF    string
	Contentista       string
}

// LoadJiraConfig loads Jira configuration from environment variables
func LoadJiraConfig() *JiraConfig {
	defaults := DefaultCustomFields()
	return &JiraConfig{
		BaseURL:  getEnv("JIRA_BASE_URL", "https://jira.unyleya.com.br"),
		Username: getEnv("JIRA_USERNAME", ""),
		APIToken: getEnv("JIRA_API_TOKEN", ""),
		Cookie:   getEnv("JIRA_COOKIE", ""),

		Project:  getEnv("JIRA_PROJECT", "PROCONTEUD"),
		PageSize: getEnvAsInt("JIRA_PAGE_SIZE", 1000),

		RetryAttempts:     getEnvAsInt("RETRY_ATTEMPTS", 3),
		RetryDelay:        time.Duration(getEnvAsInt("RETRY_DELAY_MS", 2000)) * time.Millisecond,
		RequestTimeout:    time.Duration(getEnvAsInt("JIRA_REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
		RequestsPerSecond: getEnvAsFloat("JIRA_REQUESTS_PER_SECOND", 0),
		StrictPagination:  getEnvAsBool("JIRA_STRICT_PAGINATION", false),

		Fields: CustomFields{
			EntityCourse:      getEnv("JIRA_FIELD_ENTITY_COURSE", defaults.EntityCourse),
			Coordinator:       getEnv("JIRA_FIELD_COORDINATOR", defaults.Coordinator),
			CoordinatorMaster: getEnv("JIRA_FIELD_COORDINATOR_MASTER", defaults.CoordinatorMaster),
			ContentistaCPF:    getEnv("JIRA_FIELD_CONTENTISTA_CPF", defaults.ContentistaCPF),
			Contentista:       getEnv("JIRA_FIELD_CONTENTISTA", defaults.Contentista),
		},
	}
}

// DefaultCustomFields returns the field ids of the production project
func DefaultCustomFields() CustomFields {
	return CustomFields{
		EntityCourse:      "customfield_10808",
		Coordinator:       "customfield_10803",
		CoordinatorMaster: "customfield_10804",
		ContentistaCPF:    "customfield_11303",
		Contentista:       "customfield_10802",
	}
}

// Validate ensures the Jira settings are usable
func (c *JiraConfig) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ValidationError{Field: "JIRA_BASE_URL", Message: "must be an absolute URL"}
	}

	if c.Cookie == "" && (c.Username == "" || c.APIToken == "") {
		return &ValidationError{Field: "JIRA_USERNAME", Message: "JIRA_USERNAME and JIRA_API_TOKEN, or JIRA_COOKIE, are required"}
	}

	if c.Project == "" {
		return &ValidationError{Field: "JIRA_PROJECT", Message: "environment variable is required"}
	}

	if c.PageSize <= 0 {
		return &ValidationError{Field: "JIRA_PAGE_SIZE", Message: "must be positive"}
	}

	if c.RetryAttempts < 1 {
		return &ValidationError{Field: "RETRY_ATTEMPTS", Message: "must be at least 1"}
	}

	if c.RetryDelay < 0 {
		return &ValidationError{Field: "RETRY_DELAY_MS", Message: "cannot be negative"}
	}

	if c.Fields.EntityCourse == "" {
		return &ValidationError{Field: "JIRA_FIELD_ENTITY_COURSE", Message: "field id is required"}
	}

	return nil
}
