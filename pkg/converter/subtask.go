// pkg/converter/subtask.go
package converter

import (
	"strings"

	"go.uber.org/zap"

	"github.com/danexplore/JiraSQL/pkg/jira"
	"github.com/danexplore/JiraSQL/pkg/model"
	"github.com/danexplore/JiraSQL/pkg/normalize"
)

// ConvertSubtask builds the discipline record of a content or video
// sub-task. A missing course is left nil so the store can inherit the
// parent ticket's course.
func (c *IssueConverter) ConvertSubtask(issue jira.Issue) Outcome[model.Discipline] {
	f := &issue.Fields
	ec := c.entityCourse(f)

	composite, entity, reason := normalize.CheckEntity(ec)
	if reason != normalize.SkipNone {
		c.logger.Debug("Skipping sub-task",
			zap.String("issueKey", issue.Key),
			zap.String("reason", string(reason)),
			zap.String("entityCourse", composite))
		return skip[model.Discipline](reason, composite)
	}

	name, _, _ := strings.Cut(f.Summary, ": ")

	var kind *string
	if len(f.Components) > 0 {
		head, _, _ := strings.Cut(f.Components[0].Name, " - ")
		kind = nullable(strings.TrimSpace(head))
	}

	var parentKey *string
	if f.Parent != nil {
		parentKey = nullable(f.Parent.Key)
	}

	coordinator := f.CustomText(c.config.Fields.Coordinator)

	return accept(&model.Discipline{
		Key:                  issue.Key,
		ParentKey:            parentKey,
		Link:                 c.config.BrowseURL(issue.Key),
		Labels:               joined(f.Labels),
		DueDate:              c.parseDate(issue.Key, "duedate", f.DueDate),
		Created:              c.parseDate(issue.Key, "created", f.Created),
		Updated:              c.parseDate(issue.Key, "updated", f.Updated),
		ResolutionDate:       c.parseDate(issue.Key, "resolutiondate", f.ResolutionDate),
		Name:                 strings.TrimSpace(name),
		Coordinator:          coordinator,
		CanonicalCoordinator: normalize.Coordinator(coordinator),
		CoordinatorMaster:    f.CustomText(c.config.Fields.CoordinatorMaster),
		EntityCourse:         composite,
		Entity:               entity,
		Migration:            model.CourseVersion(entity),
		Course:               nullable(strings.TrimSpace(ec.Child)),
		Status:               f.StatusName(),
		Kind:                 kind,
	})
}
