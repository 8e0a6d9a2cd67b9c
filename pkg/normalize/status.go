// pkg/normalize/status.go
package normalize

import (
	"strings"

	"github.com/danexplore/JiraSQL/pkg/model"
)

// Workstream keywords matched against upper-cased sub-task titles
const (
	contractKeyword = "CONTRATO - ELABORAR"
	contentKeyword  = "CONTEÚDO - ENTREGAR"
	videoKeyword    = "VÍDEO - GRAVAR"
)

// Any mention of video in a reused ticket's sub-task marks it as having video
var reuseVideoKeywords = []string{"VIDEO", "VÍDEO"}

// Sub-task status names as configured in the Jira workflow
const (
	subtaskOpen         = "Aberto"
	subtaskResolved     = "Resolvido"
	subtaskApproved     = "Fechado/Aprovado"
	subtaskInResolution = "Em Resolução"
	subtaskReopened     = "Reopen"
	subtaskPending      = "Pendente"
)

// Child is the part of a sub-task the status roll-up looks at
type Child struct {
	Summary string
	Status  string
}

// Rollup is the per-workstream status of a ticket. A nil status means no
// sub-task of that workstream was observed or none had a known status.
type Rollup struct {
	Contract *model.WorkstreamStatus
	Content  *model.WorkstreamStatus
	Video    *model.WorkstreamStatus
	HasVideo bool
}

// Aggregate rolls the sub-tasks of a ticket up into its contract, content
// and video statuses. Reused tickets report REUSO for every workstream.
func Aggregate(itemType model.ItemType, children []Child) Rollup {
	if itemType == model.ItemTypeReuse {
		reuse := model.StatusReuse
		rollup := Rollup{Contract: &reuse, Content: &reuse, Video: &reuse}
		for _, child := range children {
			if mentionsVideo(child.Summary) {
				rollup.HasVideo = true
				break
			}
		}
		return rollup
	}

	var contract, content, video []string
	hasVideo := false
	for _, child := range children {
		title := strings.ToUpper(child.Summary)
		if strings.Contains(title, videoKeyword) {
			hasVideo = true
		}
		switch {
		case strings.Contains(title, contractKeyword):
			contract = append(contract, child.Status)
		case strings.Contains(title, contentKeyword):
			content = append(content, child.Status)
		case strings.Contains(title, videoKeyword):
			video = append(video, child.Status)
		}
	}

	return Rollup{
		Contract: resolveBucket(contract),
		Content:  resolveBucket(content),
		Video:    resolveBucket(video),
		HasVideo: hasVideo,
	}
}

// resolveBucket picks the bucket status by priority: open, closed, in
// resolution, pending.
func resolveBucket(statuses []string) *model.WorkstreamStatus {
	var result model.WorkstreamStatus
	switch {
	case containsAny(statuses, subtaskOpen):
		result = model.StatusOpen
	case containsAny(statuses, subtaskResolved, subtaskApproved):
		result = model.StatusClosed
	case containsAny(statuses, subtaskInResolution):
		result = model.StatusInResolution
	case containsAny(statuses, subtaskReopened, subtaskPending):
		result = model.StatusPending
	default:
		return nil
	}
	return &result
}

func containsAny(statuses []string, wanted ...string) bool {
	for _, s := range statuses {
		for _, w := range wanted {
			if s == w {
				return true
			}
		}
	}
	return false
}

func mentionsVideo(summary string) bool {
	title := strings.ToUpper(summary)
	for _, kw := range reuseVideoKeywords {
		if strings.Contains(title, kw) {
			return true
		}
	}
	return false
}
