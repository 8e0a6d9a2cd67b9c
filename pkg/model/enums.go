// pkg/model/enums.go
package model

// ItemType is the issue type of a production ticket
type ItemType string

const (
	ItemTypeComplete ItemType = "SR-Completa"
	ItemTypeReuse    ItemType = "SR-Reuso"
	ItemTypeModified ItemType = "SR-Modificada"
)

// ItemTypes lists the issue types tracked by the fact table
var ItemTypes = []ItemType{ItemTypeComplete, ItemTypeReuse, ItemTypeModified}

// WorkstreamStatus is the rolled-up status of one workstream (contract,
// content or video) of a ticket
type WorkstreamStatus string

const (
	StatusOpen         WorkstreamStatus = "Aberto"
	StatusClosed       WorkstreamStatus = "Fechado"
	StatusInResolution WorkstreamStatus = "Em Resolução"
	StatusPending      WorkstreamStatus = "Pendente"
	StatusReuse        WorkstreamStatus = "REUSO"
)

// LaunchStatus classifies the planned launch of a ticket
type LaunchStatus string

const (
	LaunchNoForecast LaunchStatus = "Sem Previsão"
	LaunchLaunched   LaunchStatus = "Lançado"
	LaunchUpcoming   LaunchStatus = "Em breve"
)

// Migration flags whether a course carries video
type Migration string

const (
	MigrationToVideo Migration = "SV>CV"
	MigrationVideo   Migration = "CV"
	MigrationNoVideo Migration = "SV"
)

// PostGraduationEntity is the entity whose courses are produced without video
const PostGraduationEntity = "Pós-Graduação"

// CourseVersion returns the version tag of a course of the given entity
func CourseVersion(entity string) Migration {
	if entity == PostGraduationEntity {
		return MigrationNoVideo
	}
	return MigrationVideo
}
