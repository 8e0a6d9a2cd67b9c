// pkg/store/schema.go
package store

import "github.com/danexplore/JiraSQL/pkg/model"

// Table names
const (
	TableCoordinators = "coordenadores"
	TableCourses      = "cursos"
	TableWorkItems    = "db_dpc_jira"
	TableDisciplines  = "db_dpc_jira_disciplinas"
	ViewProduction    = "vw_analise_producao"
)

// Foreign key columns, maintained by the backfill stages only
const (
	columnCourseID      = "curso_id"
	columnCoordinatorID = "coordenador_id"
)

func text(name string) model.Column {
	return model.Column{Name: name, PgType: "TEXT", SQLiteType: "TEXT", Nullable: true}
}

func required(name string) model.Column {
	return model.Column{Name: name, PgType: "TEXT", SQLiteType: "TEXT"}
}

func date(name string) model.Column {
	return model.Column{Name: name, PgType: "DATE", SQLiteType: "TEXT", Nullable: true}
}

func reference(name, table string) model.Column {
	return model.Column{
		Name:       name,
		PgType:     "INTEGER REFERENCES " + table + "(id)",
		SQLiteType: "INTEGER REFERENCES " + table + "(id)",
		Nullable:   true,
	}
}

func surrogateKey() model.Column {
	return model.Column{
		Name:       "id",
		PgType:     "SERIAL PRIMARY KEY",
		SQLiteType: "INTEGER PRIMARY KEY AUTOINCREMENT",
	}
}

// CoordinatorTable is the coordinator dimension
var CoordinatorTable = model.TableMetadata{
	Table: TableCoordinators,
	Columns: []model.Column{
		surrogateKey(),
		required("coordenador"),
		text("coordenador_master"),
	},
	PrimaryKeys: []string{"id"},
	Uniques:     [][]string{{"coordenador"}},
}

// CourseTable is the course dimension
var CourseTable = model.TableMetadata{
	Table: TableCourses,
	Columns: []model.Column{
		surrogateKey(),
		required("nome_curso"),
		required("entidade"),
		text("versao"),
		reference(columnCoordinatorID, TableCoordinators),
	},
	PrimaryKeys: []string{"id"},
	Uniques:     [][]string{{"nome_curso", "entidade"}},
}

// WorkItemTable is the fact table of production tickets
var WorkItemTable = model.TableMetadata{
	Table: TableWorkItems,
	Columns: []model.Column{
		{Name: "chave", PgType: "VARCHAR(50)", SQLiteType: "TEXT"},
		required("link_jira"),
		text("rotulos"),
		date("data_para_ficar_pronto"),
		date("data_criacao"),
		date("data_atualizacao"),
		date("data_de_lancamento"),
		required("date_launch_jira"),
		text("ano"),
		text("mes"),
		required("status_launch"),
		text("resumo"),
		text("descricao"),
		text("versoes_corrigidas"),
		required("tipo_de_item"),
		text("situacao"),
		text("cpf_conteudista"),
		text("conteudista"),
		text("coordenador"),
		text("coordenador_canonico"),
		text("coordenador_master"),
		required("entidade_curso"),
		required("entidade"),
		required("migracao"),
		required("curso"),
		reference(columnCourseID, TableCourses),
		reference(columnCoordinatorID, TableCoordinators),
		text("status_contrato"),
		text("status_conteudos"),
		text("status_videos"),
	},
	PrimaryKeys: []string{"chave"},
}

// DisciplineTable holds the per-discipline sub-tasks
var DisciplineTable = model.TableMetadata{
	Table: TableDisciplines,
	Columns: []model.Column{
		{Name: "chave", PgType: "VARCHAR(50)", SQLiteType: "TEXT"},
		text("chave_pai"),
		required("link_jira"),
		text("rotulos"),
		date("data_para_ficar_pronto"),
		date("data_criacao"),
		date("data_atualizacao"),
		date("data_de_resolucao"),
		required("disciplina"),
		text("coordenador"),
		text("coordenador_canonico"),
		text("coordenador_master"),
		required("entidade_curso"),
		required("entidade"),
		required("migracao"),
		text("curso"),
		text("situacao"),
		text("tipo"),
		reference(columnCourseID, TableCourses),
		reference(columnCoordinatorID, TableCoordinators),
	},
	PrimaryKeys: []string{"chave"},
}

// Tables lists the managed tables in dependency order
var Tables = []model.TableMetadata{CoordinatorTable, CourseTable, WorkItemTable, DisciplineTable}

// upsertColumns returns the columns written from a record: everything but
// the surrogate key and the backfilled foreign keys
func upsertColumns(table model.TableMetadata) []string {
	var cols []string
	for _, name := range table.ColumnNames() {
		if name == "id" || name == columnCourseID || name == columnCoordinatorID {
			continue
		}
		cols = append(cols, name)
	}
	return cols
}
