// pkg/model/workitem.go
package model

// WorkItem is one production ticket, the fact row keyed by Key.
// Nil pointers and absent dates are stored as NULL.
type WorkItem struct {
	Key                  string            `db:"chave"`
	Link                 string            `db:"link_jira"`
	Labels               *string           `db:"rotulos"`
	DueDate              Date              `db:"data_para_ficar_pronto"`
	Created              Date              `db:"data_criacao"`
	Updated              Date              `db:"data_atualizacao"`
	ReleaseDate          Date              `db:"data_de_lancamento"`
	LaunchCode           string            `db:"date_launch_jira"` // MMYYYY or "Sem Previsão"
	LaunchYear           *string           `db:"ano"`
	LaunchMonth          *string           `db:"mes"`
	LaunchStatus         LaunchStatus      `db:"status_launch"`
	Summary              *string           `db:"resumo"`
	Description          *string           `db:"descricao"`
	FixVersions          *string           `db:"versoes_corrigidas"`
	ItemType             ItemType          `db:"tipo_de_item"`
	Status               *string           `db:"situacao"`
	ContentistaCPF       *string           `db:"cpf_conteudista"`
	Contentista          *string           `db:"conteudista"`
	Coordinator          *string           `db:"coordenador"`
	CanonicalCoordinator *string           `db:"coordenador_canonico"`
	CoordinatorMaster    *string           `db:"coordenador_master"`
	EntityCourse         string            `db:"entidade_curso"`
	Entity               string            `db:"entidade"`
	Migration            Migration         `db:"migracao"`
	Course               string            `db:"curso"`
	CourseID             *int64            `db:"curso_id"`
	CoordinatorID        *int64            `db:"coordenador_id"`
	ContractStatus       *WorkstreamStatus `db:"status_contrato"`
	ContentStatus        *WorkstreamStatus `db:"status_conteudos"`
	VideoStatus          *WorkstreamStatus `db:"status_videos"`
}

// Discipline is one production sub-task (content or video delivery of a
// single discipline), keyed by Key and linked to its parent ticket
type Discipline struct {
	Key                  string    `db:"chave"`
	ParentKey            *string   `db:"chave_pai"`
	Link                 string    `db:"link_jira"`
	Labels               *string   `db:"rotulos"`
	DueDate              Date      `db:"data_para_ficar_pronto"`
	Created              Date      `db:"data_criacao"`
	Updated              Date      `db:"data_atualizacao"`
	ResolutionDate       Date      `db:"data_de_resolucao"`
	Name                 string    `db:"disciplina"`
	Coordinator          *string   `db:"coordenador"`
	CanonicalCoordinator *string   `db:"coordenador_canonico"`
	CoordinatorMaster    *string   `db:"coordenador_master"`
	EntityCourse         string    `db:"entidade_curso"`
	Entity               string    `db:"entidade"`
	Migration            Migration `db:"migracao"`
	Course               *string   `db:"curso"` // filled from the parent when absent
	Status               *string   `db:"situacao"`
	Kind                 *string   `db:"tipo"`
	CourseID             *int64    `db:"curso_id"`
	CoordinatorID        *int64    `db:"coordenador_id"`
}
