// pkg/converter/issue.go
package converter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/jira"
	"github.com/danexplore/JiraSQL/pkg/model"
	"github.com/danexplore/JiraSQL/pkg/normalize"
)

const migrationLabel = "SV>CV"

// ConvertIssue builds the fact record of a production ticket. Tickets that
// cannot be placed in an allowed entity and course are skipped whole.
func (c *IssueConverter) ConvertIssue(issue jira.Issue) Outcome[model.WorkItem] {
	f := &issue.Fields
	ec := c.entityCourse(f)

	placement, reason := normalize.ExtractPlacement(ec, deref(f.Description))
	if reason != normalize.SkipNone {
		c.logger.Debug("Skipping issue",
			zap.String("issueKey", issue.Key),
			zap.String("reason", string(reason)),
			zap.String("entityCourse", ec.Composite()))
		return skip[model.WorkItem](reason, ec.Composite())
	}

	var itemType model.ItemType
	if f.IssueType != nil {
		itemType = model.ItemType(f.IssueType.Name)
	}

	children := make([]normalize.Child, 0, len(f.Subtasks))
	for _, st := range f.Subtasks {
		child := normalize.Child{Summary: st.Fields.Summary}
		if st.Fields.Status != nil {
			child.Status = st.Fields.Status.Name
		}
		children = append(children, child)
	}
	rollup := normalize.Aggregate(itemType, children)

	versions := versionNames(f.FixVersions)
	launch := ParseLaunch(strings.Join(versions, ", "), c.config.Now())

	migration := model.MigrationNoVideo
	switch {
	case containsSubstring(f.Labels, migrationLabel):
		migration = model.MigrationToVideo
	case rollup.HasVideo:
		migration = model.MigrationVideo
	}

	coordinator := f.CustomText(c.config.Fields.Coordinator)

	item := &model.WorkItem{
		Key:                  issue.Key,
		Link:                 c.config.BrowseURL(issue.Key),
		Labels:               joined(f.Labels),
		DueDate:              c.parseDate(issue.Key, "duedate", f.DueDate),
		Created:              c.parseDate(issue.Key, "created", f.Created),
		Updated:              c.parseDate(issue.Key, "updated", f.Updated),
		ReleaseDate:          c.earliestRelease(issue.Key, f.FixVersions),
		LaunchCode:           string(model.LaunchNoForecast),
		LaunchStatus:         launch.Status,
		Summary:              nullable(f.Summary),
		Description:          nullable(deref(f.Description)),
		FixVersions:          joined(versions),
		ItemType:             itemType,
		Status:               f.StatusName(),
		ContentistaCPF:       f.CustomText(c.config.Fields.ContentistaCPF),
		Contentista:          f.CustomText(c.config.Fields.Contentista),
		Coordinator:          coordinator,
		CanonicalCoordinator: normalize.Coordinator(coordinator),
		CoordinatorMaster:    f.CustomText(c.config.Fields.CoordinatorMaster),
		EntityCourse:         placement.EntityCourse,
		Entity:               placement.Entity,
		Migration:            migration,
		Course:               placement.Course,
		ContractStatus:       rollup.Contract,
		ContentStatus:        rollup.Content,
		VideoStatus:          rollup.Video,
	}

	if launch.Code != "" {
		item.LaunchCode = launch.Code
		item.LaunchYear = &launch.Year
		item.LaunchMonth = &launch.Month
	}

	return accept(item)
}
